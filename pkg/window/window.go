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

// Package window defines the windowing vocabulary: the strategy enum, the
// window specification consumed from configuration, the interval window key,
// and the assigner contract implemented per strategy.
package window

import (
	"fmt"
	"time"
)

// IntervalWindow is a half-open event-time interval [Start, End). Start is
// aligned to a multiple of the window length (Tumbling) or slide (Sliding)
// relative to the Unix epoch, and identifies the window.
type IntervalWindow struct {
	Start time.Time
	End   time.Time
}

func (iw *IntervalWindow) String() string {
	return fmt.Sprintf("%v-%v", iw.Start.UnixMilli(), iw.End.UnixMilli())
}

// Assigner maps an event time to the set of interval windows it belongs to.
// Implementations are pure functions of the event time and must be safe to
// call repeatedly with out-of-order times.
type Assigner interface {
	AssignWindows(eventTime time.Time) []*IntervalWindow
}

// Strategy represents the windowing strategy.
type Strategy int

const (
	Tumbling Strategy = iota
	Sliding
)

func (s Strategy) String() string {
	switch s {
	case Tumbling:
		return "Tumbling"
	case Sliding:
		return "Sliding"
	default:
		return "Unknown"
	}
}
