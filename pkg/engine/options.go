/*
Copyright 2024 The Tidemark Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tidemark/tidemark/pkg/shared/logging"
	"github.com/tidemark/tidemark/pkg/window"
)

// Options for the windowing engine.
type Options struct {
	// logger is the diagnostics sink; injected so the engine carries no
	// process-wide logging state.
	logger *zap.SugaredLogger
	// maxResidentWindows caps the number of concurrently open windows;
	// 0 means unbounded.
	maxResidentWindows int
}

type Option func(*Options) error

func DefaultOptions() *Options {
	return &Options{
		logger:             logging.NewLogger(),
		maxResidentWindows: 0,
	}
}

// WithLogger sets the diagnostics sink.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *Options) error {
		o.logger = logger
		return nil
	}
}

// WithMaxResidentWindows caps the number of concurrently open windows. When
// an insert pushes the store past the cap, the oldest window is force-closed
// and emitted early.
func WithMaxResidentWindows(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return fmt.Errorf("%w: max resident windows must be >= 0", window.ErrInvalidConfig)
		}
		o.maxResidentWindows = n
		return nil
	}
}
