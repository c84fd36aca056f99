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

package window

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every construction-time configuration error.
// A pipeline carrying such an error is rejected before any data flows.
var ErrInvalidConfig = errors.New("invalid window configuration")

// DefaultTimeField is the payload column holding event time unless
// configured otherwise.
const DefaultTimeField = "timestamp"

// Configuration keys consumed by SpecFromConfig.
const (
	keyType            = "type"
	keySize            = "size"
	keySlide           = "slide"
	keyAllowedLateness = "allowed_lateness"
	keyTimeField       = "time_field"
)

// Spec is the window specification: a tagged variant over Strategy with the
// per-strategy fields alongside.
type Spec struct {
	// Strategy selects Tumbling or Sliding.
	Strategy Strategy
	// Length is the temporal length of the window.
	Length time.Duration
	// Slide is the offset between successive window starts, Sliding only.
	Slide time.Duration
	// AllowedLateness is the grace period after a window's end during which
	// late events are still admitted before the window closes.
	AllowedLateness time.Duration
	// TimeField is the payload column holding event time.
	TimeField string
}

// Validate checks the construction invariants. It is called by the engine
// constructor so a misconfigured spec fails fast.
func (s *Spec) Validate() error {
	switch s.Strategy {
	case Tumbling:
		if s.Slide != 0 {
			return fmt.Errorf("%w: slide must not be set for tumbling windows", ErrInvalidConfig)
		}
	case Sliding:
		if s.Slide <= 0 {
			return fmt.Errorf("%w: sliding windows require slide > 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown window type %v", ErrInvalidConfig, s.Strategy)
	}
	if s.Length <= 0 {
		return fmt.Errorf("%w: window size must be > 0", ErrInvalidConfig)
	}
	if s.AllowedLateness < 0 {
		return fmt.Errorf("%w: allowed_lateness must be >= 0", ErrInvalidConfig)
	}
	if s.TimeField == "" {
		return fmt.Errorf("%w: time_field must not be empty", ErrInvalidConfig)
	}
	return nil
}

// SpecFromConfig builds a Spec from the flat configuration map supplied by
// the surrounding config loader. Unknown keys are ignored.
//
//	type:             tumbling | sliding    (default tumbling)
//	size:             duration string       (required)
//	slide:            duration string       (sliding only, default = size)
//	allowed_lateness: duration string       (default "0s")
//	time_field:       string                (default "timestamp")
func SpecFromConfig(cfg map[string]string) (*Spec, error) {
	spec := &Spec{TimeField: DefaultTimeField}

	switch cfg[keyType] {
	case "", "tumbling":
		spec.Strategy = Tumbling
	case "sliding":
		spec.Strategy = Sliding
	default:
		return nil, fmt.Errorf("%w: window type must be 'tumbling' or 'sliding', got %q", ErrInvalidConfig, cfg[keyType])
	}

	size, ok := cfg[keySize]
	if !ok {
		return nil, fmt.Errorf("%w: size is required", ErrInvalidConfig)
	}
	length, err := ParseDuration(size)
	if err != nil {
		return nil, err
	}
	spec.Length = length

	if slide, ok := cfg[keySlide]; ok {
		if spec.Strategy == Tumbling {
			return nil, fmt.Errorf("%w: slide must not be set for tumbling windows", ErrInvalidConfig)
		}
		if spec.Slide, err = ParseDuration(slide); err != nil {
			return nil, err
		}
	} else if spec.Strategy == Sliding {
		spec.Slide = spec.Length
	}

	if lateness, ok := cfg[keyAllowedLateness]; ok {
		if spec.AllowedLateness, err = ParseDuration(lateness); err != nil {
			return nil, err
		}
	}

	if field, ok := cfg[keyTimeField]; ok {
		spec.TimeField = field
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}
