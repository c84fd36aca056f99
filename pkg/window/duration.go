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

package window

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var durationUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
}

// unit suffixes in matching order, "ms" before "s".
var durationSuffixes = []string{"ms", "s", "m", "h", "d"}

// ParseDuration parses duration strings of the form "<unsigned integer><unit>"
// with unit one of ms, s, m, h, d. Unlike time.ParseDuration it supports days
// and rejects fractional ("1.5s") and compound ("1h30m") forms, which the
// configuration surface does not admit.
func ParseDuration(s string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty duration", ErrInvalidConfig)
	}
	for _, suffix := range durationSuffixes {
		if !strings.HasSuffix(trimmed, suffix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(trimmed, suffix), 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: unsupported duration format %q", ErrInvalidConfig, s)
		}
		unit := durationUnits[suffix]
		if time.Duration(n) > math.MaxInt64/unit {
			return 0, fmt.Errorf("%w: duration %q overflows", ErrInvalidConfig, s)
		}
		return time.Duration(n) * unit, nil
	}
	return 0, fmt.Errorf("%w: unsupported duration format %q", ErrInvalidConfig, s)
}
