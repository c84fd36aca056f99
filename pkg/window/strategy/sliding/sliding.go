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

// Package sliding implements sliding windows: static-length buckets whose
// boundaries advance by a fixed slide smaller than (or equal to) the length,
// so one event time belongs to up to ceil(length/slide) overlapping windows.
package sliding

import (
	"time"

	"github.com/tidemark/tidemark/pkg/window"
)

// Sliding assigns event times to overlapping windows of a static Length,
// phased apart by Slide.
type Sliding struct {
	// Length is the temporal length of the window.
	Length time.Duration
	// Slide is the offset between successive window starts.
	Slide time.Duration
}

var _ window.Assigner = (*Sliding)(nil)

// NewSliding returns a Sliding assigner.
func NewSliding(length time.Duration, slide time.Duration) *Sliding {
	return &Sliding{Length: length, Slide: slide}
}

// AssignWindows returns the set of windows that contain the given eventTime.
func (s *Sliding) AssignWindows(eventTime time.Time) []*window.IntervalWindow {
	windows := make([]*window.IntervalWindow, 0, s.Length/s.Slide+1)

	// Use the highest integer multiple of the slide which is not after the
	// eventTime as the start of the most recent containing window; the
	// earlier containing windows follow by repeatedly subtracting the slide.
	startTime := time.UnixMilli((eventTime.UnixMilli() / s.Slide.Milliseconds()) * s.Slide.Milliseconds()).UTC()
	endTime := startTime.Add(s.Length)

	// Assignment is left inclusive and right exclusive: an element exactly on
	// a boundary belongs to the window starting at that boundary, not the one
	// ending there. Windows never start before the Unix epoch. When the slide
	// exceeds the length this loop can yield zero windows, leaving the event
	// time unassigned.
	for !startTime.After(eventTime) && endTime.After(eventTime) && startTime.UnixMilli() >= 0 {
		windows = append(windows, &window.IntervalWindow{Start: startTime, End: endTime})
		startTime = startTime.Add(-s.Slide)
		endTime = endTime.Add(-s.Slide)
	}

	return windows
}
