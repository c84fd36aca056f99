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

package batch

import (
	"fmt"
)

// Columns is the shipped Payload implementation: a column-name to values
// map. It is what the CLI harness ingests from JSON lines; library users with
// richer columnar formats implement Payload themselves.
type Columns map[string][]any

var _ Payload = (Columns)(nil)

func (c Columns) NumRows() int {
	n := 0
	for _, vals := range c {
		if len(vals) > n {
			n = len(vals)
		}
	}
	return n
}

func (c Columns) FirstValue(column string) (any, bool) {
	vals, ok := c[column]
	if !ok || len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

// Concat requires both payloads to expose the same column set; ragged
// concatenation would silently misalign rows downstream.
func (c Columns) Concat(other Payload) (Payload, error) {
	oc, ok := other.(Columns)
	if !ok {
		return nil, fmt.Errorf("cannot concat %T with Columns", other)
	}
	if len(c) != len(oc) {
		return nil, fmt.Errorf("column mismatch: %d vs %d columns", len(c), len(oc))
	}
	merged := make(Columns, len(c))
	for name, vals := range c {
		ovals, ok := oc[name]
		if !ok {
			return nil, fmt.Errorf("column mismatch: %q missing", name)
		}
		col := make([]any, 0, len(vals)+len(ovals))
		col = append(col, vals...)
		col = append(col, ovals...)
		merged[name] = col
	}
	return merged, nil
}
