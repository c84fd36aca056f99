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

// Package engine orchestrates event-time windowing over a stream of batches:
// it extracts each batch's event time, advances the watermark, assigns the
// batch to its windows, and emits a window once the watermark passes its end
// plus the allowed lateness. At end of stream every remaining window is
// flushed unconditionally.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tidemark/tidemark/pkg/batch"
	"github.com/tidemark/tidemark/pkg/watermark"
	"github.com/tidemark/tidemark/pkg/window"
	"github.com/tidemark/tidemark/pkg/window/strategy/fixed"
	"github.com/tidemark/tidemark/pkg/window/strategy/sliding"
)

// Engine is a single-partition windowing engine. All state is owned by the
// one goroutine started by Process; parallelism across partitions is achieved
// by running independent Engine instances, not by sharing one.
type Engine struct {
	spec     *window.Spec
	assigner window.Assigner
	tracker  *watermark.Tracker
	store    *store
	opts     *Options
	log      *zap.SugaredLogger
}

// New validates the spec and returns an Engine. A misconfigured spec is
// rejected here, before any data flows.
func New(spec *window.Spec, opts ...Option) (*Engine, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	options := DefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	var assigner window.Assigner
	switch spec.Strategy {
	case window.Tumbling:
		assigner = fixed.NewFixed(spec.Length)
	case window.Sliding:
		assigner = sliding.NewSliding(spec.Length, spec.Slide)
	default:
		return nil, fmt.Errorf("%w: unknown window type %v", window.ErrInvalidConfig, spec.Strategy)
	}

	return &Engine{
		spec:     spec,
		assigner: assigner,
		tracker:  watermark.NewTracker(),
		store:    newStore(),
		opts:     options,
		log:      options.logger,
	}, nil
}

// Process consumes batches from in until it is closed or ctx is canceled and
// returns the channel on which windowed batches are emitted. The output
// channel is unbuffered: the engine does not accept the next input batch
// while an emission is unacknowledged, so downstream backpressure propagates
// upstream. When in closes, the remaining windows are flushed in ascending
// start order and the output channel is closed. Cancellation stops the
// engine without flushing; buffered window state is discarded.
//
// Process must be called at most once per Engine.
func (e *Engine) Process(ctx context.Context, in <-chan *batch.Batch) <-chan *batch.Batch {
	out := make(chan *batch.Batch)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				e.log.Infow("Stopping windowing engine, discarding open windows",
					"openWindows", e.store.len())
				return
			case b, ok := <-in:
				if !ok {
					e.flushAll(ctx, out)
					return
				}
				e.processBatch(ctx, b, out)
			}
		}
	}()
	return out
}

// processBatch runs the full per-batch cycle: extract, observe, assign,
// store, then synchronously close every window the new watermark has passed.
func (e *Engine) processBatch(ctx context.Context, b *batch.Batch, out chan<- *batch.Batch) {
	batchesInCount.Inc()

	eventTime := e.resolveEventTime(b)
	e.tracker.Observe(eventTime)

	for _, w := range e.assigner.AssignWindows(eventTime) {
		e.store.upsert(w, b)
	}

	if max := e.opts.maxResidentWindows; max > 0 {
		for e.store.len() > max {
			oldest := e.store.popOldest()
			windowsForceClosedCount.Inc()
			e.log.Warnw("Resident window cap exceeded, force closing oldest window",
				"window", oldest.win.String(), "cap", max)
			if err := e.emit(ctx, oldest, out); err != nil {
				e.log.Errorw("Dropped force-closed window, payload merge failed",
					"window", oldest.win.String(), zap.Error(err))
			}
		}
	}

	wm := e.tracker.Current(e.spec.AllowedLateness)
	for _, ws := range e.store.removeClosed(wm, e.spec.AllowedLateness) {
		if err := e.emit(ctx, ws, out); err != nil {
			e.log.Errorw("Dropped closed window, payload merge failed",
				"window", ws.win.String(), zap.Error(err))
		}
	}

	residentWindows.Set(float64(e.store.len()))
}

// flushAll emits every remaining open window regardless of the watermark,
// in ascending start order, leaving the store empty.
func (e *Engine) flushAll(ctx context.Context, out chan<- *batch.Batch) {
	var errs error
	for _, ws := range e.store.drain() {
		if err := e.emit(ctx, ws, out); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("window %s: %w", ws.win.String(), err))
		}
	}
	residentWindows.Set(0)
	if errs != nil {
		e.log.Errorw("Dropped windows during end-of-stream flush, payload merge failed", zap.Error(errs))
	}
}

// emit merges a window's members into one batch and sends it downstream. A
// merge failure drops only this window; previously accumulated state of other
// windows is unaffected.
func (e *Engine) emit(ctx context.Context, ws *windowState, out chan<- *batch.Batch) error {
	merged, err := mergeWindow(ws)
	if err != nil {
		windowMergeErrorCount.Inc()
		return err
	}
	select {
	case out <- merged:
		windowsEmittedCount.Inc()
	case <-ctx.Done():
	}
	return nil
}

// mergeWindow concatenates the member payloads in arrival order (not sorted
// by event time) and stamps the window entry onto a copy of the first
// member's metadata.
func mergeWindow(ws *windowState) (*batch.Batch, error) {
	payload := ws.members[0].Payload
	for _, m := range ws.members[1:] {
		next, err := payload.Concat(m.Payload)
		if err != nil {
			return nil, err
		}
		payload = next
	}

	meta := ws.members[0].Metadata.Clone()
	meta[batch.MetaWindow] = batch.WindowMeta{
		Start:    ws.win.Start,
		End:      ws.win.End,
		RowCount: ws.rowCount,
	}

	return &batch.Batch{Payload: payload, Metadata: meta}, nil
}
