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

// Package watermark tracks the maximum observed event time and derives the
// watermark: a monotonic estimate of "no events earlier than this will
// arrive", used to decide window completeness.
package watermark

import (
	"time"
)

// Tracker keeps the maximum event time seen so far. It is owned by a single
// engine goroutine and is deliberately unsynchronized; concurrent engines
// each run their own Tracker.
type Tracker struct {
	maxEventTime time.Time
}

// NewTracker returns a Tracker that has observed nothing.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records an event time. An older time never moves the tracked
// maximum backward, which is what keeps the watermark monotonic even when
// the stream itself is out of order.
func (t *Tracker) Observe(eventTime time.Time) {
	if t.maxEventTime.IsZero() || eventTime.After(t.maxEventTime) {
		t.maxEventTime = eventTime
	}
}

// Current returns the watermark: the maximum observed event time minus the
// allowed lateness. Before the first observation it returns the zero time,
// so no window can close before any data arrives.
func (t *Tracker) Current(allowedLateness time.Duration) time.Time {
	if t.maxEventTime.IsZero() {
		return time.Time{}
	}
	return t.maxEventTime.Add(-allowedLateness)
}
