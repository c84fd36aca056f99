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
	"time"

	"github.com/araddon/dateparse"

	"github.com/tidemark/tidemark/pkg/batch"
)

// resolveEventTime resolves the event time of a batch, in priority order:
// the event_time metadata entry, then the first value of the configured time
// field in the payload, then wall-clock now. A batch is never rejected for a
// time-extraction failure; the fallback is only observable through the
// counter and debug logs.
func (e *Engine) resolveEventTime(b *batch.Batch) time.Time {
	if t, ok := b.Metadata.EventTime(); ok {
		return t.UTC()
	}
	if v, ok := b.Payload.FirstValue(e.spec.TimeField); ok {
		if t, ok := asTime(v); ok {
			return t
		}
	}
	extractionFallbackCount.Inc()
	e.log.Debugw("Event time extraction failed, falling back to wall clock",
		"timeField", e.spec.TimeField)
	return time.Now().UTC()
}

// asTime coerces the supported event-time representations: time.Time,
// integer Unix milliseconds, and parseable timestamp strings.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case float64:
		// JSON numbers decode as float64.
		return time.UnixMilli(int64(t)).UTC(), true
	case string:
		parsed, err := dateparse.ParseAny(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed.UTC(), true
	default:
		return time.Time{}, false
	}
}
