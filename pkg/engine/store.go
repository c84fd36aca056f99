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
	"sort"
	"time"

	"github.com/tidemark/tidemark/pkg/batch"
	"github.com/tidemark/tidemark/pkg/window"
)

// windowState is the accumulating state of one open window: its interval,
// the member batches in arrival order, and the running row count. A state is
// created lazily on first assignment, grows strictly by append, and is
// removed from the store exactly once.
type windowState struct {
	win      *window.IntervalWindow
	members  []*batch.Batch
	rowCount int64
}

func (ws *windowState) append(b *batch.Batch) {
	ws.members = append(ws.members, b)
	ws.rowCount += b.Metadata.RecordCount()
}

// store owns the set of open windows, kept sorted ascending by start time so
// that closure and end-of-stream flush drain in deterministic key order. The
// engine is single threaded, so the store is unsynchronized.
//
// The store is unbounded unless the engine enforces a resident-window cap:
// a large allowed lateness or many overlapping sliding windows grow it
// without limit.
type store struct {
	states []*windowState
}

func newStore() *store {
	return &store{states: make([]*windowState, 0)}
}

func (s *store) len() int {
	return len(s.states)
}

// upsert appends b to the state for win, creating the state if absent.
// Aligned windows of one spec share a fixed length, so ordering by start
// also orders by end.
func (s *store) upsert(win *window.IntervalWindow, b *batch.Batch) {
	i := sort.Search(len(s.states), func(i int) bool {
		return !s.states[i].win.Start.Before(win.Start)
	})
	if i < len(s.states) && s.states[i].win.Start.Equal(win.Start) {
		s.states[i].append(b)
		return
	}
	ws := &windowState{win: win}
	ws.append(b)
	s.states = append(s.states, nil)
	copy(s.states[i+1:], s.states[i:])
	s.states[i] = ws
}

// removeClosed pops every window the watermark has passed: those with
// end + allowedLateness <= wm. A zero watermark (nothing observed yet)
// closes nothing.
func (s *store) removeClosed(wm time.Time, allowedLateness time.Duration) []*windowState {
	if wm.IsZero() {
		return nil
	}
	i := sort.Search(len(s.states), func(i int) bool {
		return s.states[i].win.End.Add(allowedLateness).After(wm)
	})
	if i == 0 {
		return nil
	}
	closed := make([]*windowState, i)
	copy(closed, s.states[:i])
	s.states = s.states[i:]
	return closed
}

// popOldest removes and returns the window with the smallest start time,
// nil when the store is empty.
func (s *store) popOldest() *windowState {
	if len(s.states) == 0 {
		return nil
	}
	oldest := s.states[0]
	s.states = s.states[1:]
	return oldest
}

// drain removes and returns every remaining window in ascending start order.
func (s *store) drain() []*windowState {
	drained := s.states
	s.states = make([]*windowState, 0)
	return drained
}
