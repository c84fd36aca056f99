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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/tidemark/tidemark/pkg/batch"
	"github.com/tidemark/tidemark/pkg/window"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// eventBatch carries the event time both in metadata (the extraction fast
// path) and in the payload's id/timestamp columns.
func eventBatch(id int, eventTime time.Time) *batch.Batch {
	return batch.New(
		batch.Columns{
			"id":        []any{id},
			"timestamp": []any{eventTime},
		},
		batch.Metadata{
			batch.MetaEventTime:  eventTime,
			batch.MetaSourceInfo: map[string]any{"uri": "test://"},
			batch.MetaSchema:     map[string]any{"columns": []string{"id", "timestamp"}},
		},
	)
}

func newTestEngine(t *testing.T, spec *window.Spec, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop().Sugar())}, opts...)
	eng, err := New(spec, opts...)
	require.NoError(t, err)
	return eng
}

// runEngine feeds the batches in order, closes the input, and collects every
// emitted window.
func runEngine(eng *Engine, batches ...*batch.Batch) []*batch.Batch {
	in := make(chan *batch.Batch)
	go func() {
		defer close(in)
		for _, b := range batches {
			in <- b
		}
	}()
	var out []*batch.Batch
	for b := range eng.Process(context.Background(), in) {
		out = append(out, b)
	}
	return out
}

func windowOf(t *testing.T, b *batch.Batch) batch.WindowMeta {
	t.Helper()
	wm, ok := b.Metadata.Window()
	require.True(t, ok, "emitted batch is missing the window metadata entry")
	return wm
}

func ids(t *testing.T, b *batch.Batch) []any {
	t.Helper()
	cols, ok := b.Payload.(batch.Columns)
	require.True(t, ok)
	return cols["id"]
}

func TestEngine_Tumbling(t *testing.T) {
	// events at t = 0..4s, size 2s, no lateness: windows [0,2) [2,4) [4,6)
	base := time.Unix(0, 0).UTC()
	var batches []*batch.Batch
	for i := 0; i < 5; i++ {
		batches = append(batches, eventBatch(i, base.Add(time.Duration(i)*time.Second)))
	}

	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    2 * time.Second,
		TimeField: "timestamp",
	})
	out := runEngine(eng, batches...)

	require.Len(t, out, 3)
	wantStarts := []int64{0, 2, 4}
	wantRows := []int64{2, 2, 1}
	wantIDs := [][]any{{0, 1}, {2, 3}, {4}}
	for i, b := range out {
		wm := windowOf(t, b)
		assert.Equal(t, wantStarts[i], wm.Start.Unix())
		assert.Equal(t, wantStarts[i]+2, wm.End.Unix())
		assert.Equal(t, wantRows[i], wm.RowCount)
		assert.Equal(t, wantIDs[i], ids(t, b))
	}
	assert.Equal(t, 0, eng.store.len(), "store must be empty after end-of-stream flush")
}

func TestEngine_Sliding(t *testing.T) {
	// events at t = 0..3s, size 3s, slide 1s: windows starting at 0,1,2,3
	base := time.Unix(0, 0).UTC()
	var batches []*batch.Batch
	for i := 0; i < 4; i++ {
		batches = append(batches, eventBatch(i, base.Add(time.Duration(i)*time.Second)))
	}

	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Sliding,
		Length:    3 * time.Second,
		Slide:     time.Second,
		TimeField: "timestamp",
	})
	out := runEngine(eng, batches...)

	require.Len(t, out, 4)
	wantStarts := []int64{0, 1, 2, 3}
	wantRows := []int64{3, 3, 2, 1}
	for i, b := range out {
		wm := windowOf(t, b)
		assert.Equal(t, wantStarts[i], wm.Start.Unix())
		assert.Equal(t, wantRows[i], wm.RowCount)
	}
	assert.Equal(t, 0, eng.store.len())
}

func TestEngine_RowCountsSumToInputCount(t *testing.T) {
	// strictly increasing event times, no lateness: no batch is ever lost
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var batches []*batch.Batch
	for i := 0; i < 10; i++ {
		batches = append(batches, eventBatch(i, base.Add(time.Duration(i)*time.Second)))
	}

	size := 3 * time.Second
	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    size,
		TimeField: "timestamp",
	})
	out := runEngine(eng, batches...)

	var total int64
	for _, b := range out {
		wm := windowOf(t, b)
		total += wm.RowCount
		// every member's event time lies in [start, start+size)
		cols := b.Payload.(batch.Columns)
		for _, v := range cols["timestamp"] {
			ts := v.(time.Time)
			assert.False(t, ts.Before(wm.Start))
			assert.True(t, ts.Before(wm.Start.Add(size)))
		}
	}
	assert.Equal(t, int64(len(batches)), total)
	assert.Equal(t, 0, eng.store.len())
}

func TestEngine_OutOfOrderEventStillAssigned(t *testing.T) {
	// t=5 then t=2: the watermark stays at 5 and the late event is still
	// appended to its (still open) window, which then closes immediately
	base := time.Unix(0, 0).UTC()
	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    2 * time.Second,
		TimeField: "timestamp",
	})
	out := runEngine(eng,
		eventBatch(0, base.Add(5*time.Second)),
		eventBatch(1, base.Add(2*time.Second)),
	)

	require.Len(t, out, 2)
	first := windowOf(t, out[0])
	assert.Equal(t, int64(2), first.Start.Unix())
	assert.Equal(t, []any{1}, ids(t, out[0]))
	second := windowOf(t, out[1])
	assert.Equal(t, int64(4), second.Start.Unix())
	assert.Equal(t, []any{0}, ids(t, out[1]))
}

func TestEngine_EndOfStreamFlush(t *testing.T) {
	// a window far from closing is still emitted at end of stream
	base := time.Unix(0, 0).UTC()
	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    time.Hour,
		TimeField: "timestamp",
	})
	out := runEngine(eng,
		eventBatch(0, base),
		eventBatch(1, base.Add(time.Second)),
		eventBatch(2, base.Add(2*time.Second)),
	)

	require.Len(t, out, 1)
	assert.Equal(t, int64(3), windowOf(t, out[0]).RowCount)
	assert.Equal(t, 0, eng.store.len())
}

func TestEngine_ArrivalOrderPreserved(t *testing.T) {
	// members are concatenated in arrival order, not event-time order
	base := time.Unix(0, 0).UTC()
	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    2 * time.Second,
		TimeField: "timestamp",
	})
	out := runEngine(eng,
		eventBatch(1, base.Add(time.Second)),
		eventBatch(2, base),
	)

	require.Len(t, out, 1)
	assert.Equal(t, []any{1, 2}, ids(t, out[0]))
}

func TestEngine_ExtractionFallbackNeverDropsBatch(t *testing.T) {
	// no event_time metadata and no time field in the payload: the batch
	// falls back to wall clock and is still windowed and flushed
	b := batch.New(batch.Columns{"id": []any{0}}, batch.Metadata{})

	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    time.Hour,
		TimeField: "timestamp",
	})
	out := runEngine(eng, b)

	require.Len(t, out, 1)
	assert.Equal(t, int64(1), windowOf(t, out[0]).RowCount)
	assert.Equal(t, 0, eng.store.len())
}

func TestEngine_EventTimeFromPayload(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	tests := []struct {
		name      string
		value     any
		wantStart int64
	}{
		{name: "time value", value: base.Add(time.Second), wantStart: 0},
		{name: "unix milliseconds", value: int64(3000), wantStart: 2},
		{name: "timestamp string", value: "1970-01-01T00:00:05Z", wantStart: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := batch.New(batch.Columns{"ts": []any{tt.value}}, batch.Metadata{})
			eng := newTestEngine(t, &window.Spec{
				Strategy:  window.Tumbling,
				Length:    2 * time.Second,
				TimeField: "ts",
			})
			out := runEngine(eng, b)
			require.Len(t, out, 1)
			assert.Equal(t, tt.wantStart, windowOf(t, out[0]).Start.Unix())
		})
	}
}

func TestEngine_MaxResidentWindowsForceClosesOldest(t *testing.T) {
	// a large lateness keeps every window open; the cap steps in instead
	base := time.Unix(0, 0).UTC()
	eng := newTestEngine(t, &window.Spec{
		Strategy:        window.Tumbling,
		Length:          time.Second,
		AllowedLateness: time.Hour,
		TimeField:       "timestamp",
	}, WithMaxResidentWindows(2))

	out := runEngine(eng,
		eventBatch(0, base),
		eventBatch(1, base.Add(time.Second)),
		eventBatch(2, base.Add(2*time.Second)),
	)

	require.Len(t, out, 3)
	// the oldest window was emitted as soon as the cap was exceeded
	assert.Equal(t, int64(0), windowOf(t, out[0]).Start.Unix())
	assert.Equal(t, int64(1), windowOf(t, out[1]).Start.Unix())
	assert.Equal(t, int64(2), windowOf(t, out[2]).Start.Unix())
}

func TestEngine_EmittedMetadataCarriesSourceInfo(t *testing.T) {
	base := time.Unix(0, 0).UTC()
	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    time.Second,
		TimeField: "timestamp",
	})
	out := runEngine(eng, eventBatch(0, base))

	require.Len(t, out, 1)
	assert.Equal(t, map[string]any{"uri": "test://"}, out[0].Metadata[batch.MetaSourceInfo])
	assert.NotNil(t, out[0].Metadata[batch.MetaSchema])
}

func TestEngine_CancelDiscardsOpenWindows(t *testing.T) {
	eng := newTestEngine(t, &window.Spec{
		Strategy:  window.Tumbling,
		Length:    time.Hour,
		TimeField: "timestamp",
	})

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan *batch.Batch)
	out := eng.Process(ctx, in)

	in <- eventBatch(0, time.Unix(0, 0).UTC())
	cancel()

	_, open := <-out
	assert.False(t, open, "output must close without a flush on cancellation")
}

func TestNew_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		spec *window.Spec
		opts []Option
	}{
		{
			name: "slide on tumbling",
			spec: &window.Spec{Strategy: window.Tumbling, Length: 2 * time.Second, Slide: time.Second, TimeField: "timestamp"},
		},
		{
			name: "zero length",
			spec: &window.Spec{Strategy: window.Tumbling, TimeField: "timestamp"},
		},
		{
			name: "unknown strategy",
			spec: &window.Spec{Strategy: window.Strategy(42), Length: time.Second, TimeField: "timestamp"},
		},
		{
			name: "negative resident cap",
			spec: &window.Spec{Strategy: window.Tumbling, Length: time.Second, TimeField: "timestamp"},
			opts: []Option{WithMaxResidentWindows(-1)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, tt.opts...)
			assert.ErrorIs(t, err, window.ErrInvalidConfig)
		})
	}
}
