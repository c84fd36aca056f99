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

// Package batch defines the unit of data flow through the windowing engine:
// an opaque column-oriented payload plus a metadata map. A batch is owned
// exclusively by the engine from ingestion until emission, at which point
// ownership transfers downstream.
package batch

import (
	"time"
)

// Well-known metadata keys.
const (
	// MetaRecordCount is the number of records carried by the payload.
	MetaRecordCount = "record_count"
	// MetaSourceInfo describes where the batch was ingested from.
	MetaSourceInfo = "source_info"
	// MetaSchema describes the payload columns.
	MetaSchema = "schema"
	// MetaEventTime, when present, short-circuits event-time extraction.
	MetaEventTime = "event_time"
	// MetaWindow is attached to every batch emitted by the engine.
	MetaWindow = "window"
)

// Payload is the column-oriented dataset carried by a Batch. The engine is
// oblivious to its representation beyond the three capabilities below.
type Payload interface {
	// NumRows returns the number of records in the payload.
	NumRows() int
	// FirstValue returns the first value of the named column, false if the
	// column is absent or empty.
	FirstValue(column string) (any, bool)
	// Concat returns a new payload holding this payload's records followed
	// by other's. The receiver is not modified.
	Concat(other Payload) (Payload, error)
}

// Metadata is the per-batch metadata map. Values are untyped; the accessors
// below coerce the well-known entries.
type Metadata map[string]any

// RecordCount returns the record_count entry, 0 if absent or of an
// unexpected type.
func (m Metadata) RecordCount() int64 {
	switch v := m[MetaRecordCount].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		// JSON numbers decode as float64.
		return int64(v)
	default:
		return 0
	}
}

// EventTime returns the event_time entry if it carries a time.Time.
func (m Metadata) EventTime() (time.Time, bool) {
	t, ok := m[MetaEventTime].(time.Time)
	return t, ok
}

// SourceInfo returns the source_info entry, nil if absent.
func (m Metadata) SourceInfo() map[string]any {
	si, _ := m[MetaSourceInfo].(map[string]any)
	return si
}

// Window returns the window entry attached at emission.
func (m Metadata) Window() (WindowMeta, bool) {
	w, ok := m[MetaWindow].(WindowMeta)
	return w, ok
}

// Clone returns a shallow copy, so that emission can extend the metadata of
// the first member without mutating it.
func (m Metadata) Clone() Metadata {
	c := make(Metadata, len(m)+1)
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Batch is a payload plus its metadata.
type Batch struct {
	Payload  Payload
	Metadata Metadata
}

// New returns a batch over payload with record_count derived from it.
func New(payload Payload, metadata Metadata) *Batch {
	if metadata == nil {
		metadata = Metadata{}
	}
	if _, ok := metadata[MetaRecordCount]; !ok {
		metadata[MetaRecordCount] = int64(payload.NumRows())
	}
	return &Batch{Payload: payload, Metadata: metadata}
}

// WindowMeta is the window entry every emitted batch carries in its metadata.
type WindowMeta struct {
	Start    time.Time
	End      time.Time
	RowCount int64
}
