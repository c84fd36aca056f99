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

// Package fixed implements fixed (tumbling) windows: static-length,
// non-overlapping, contiguous buckets aligned to the Unix epoch. Every event
// time maps to exactly one window.
package fixed

import (
	"time"

	"github.com/tidemark/tidemark/pkg/window"
)

// Fixed assigns event times to tumbling windows of a static Length.
type Fixed struct {
	// Length is the temporal length of the window.
	Length time.Duration
}

var _ window.Assigner = (*Fixed)(nil)

// NewFixed returns a Fixed assigner.
func NewFixed(length time.Duration) *Fixed {
	return &Fixed{Length: length}
}

// AssignWindows assigns a window for the given eventTime.
func (f *Fixed) AssignWindows(eventTime time.Time) []*window.IntervalWindow {
	// Use the highest integer multiple of the window length which is not
	// after the eventTime as the start of the window.
	//
	// Assignment follows a left inclusive and right exclusive principle, so
	// an element exactly on a boundary falls into the window to the right of
	// the boundary.
	millis := eventTime.UnixMilli()
	length := f.Length.Milliseconds()
	aligned := (millis / length) * length
	// Integer division truncates toward zero; pre-epoch times need the floor,
	// otherwise the event would land left of its window.
	if millis < 0 && millis%length != 0 {
		aligned -= length
	}
	start := time.UnixMilli(aligned).UTC()

	return []*window.IntervalWindow{
		{Start: start, End: start.Add(f.Length)},
	}
}
