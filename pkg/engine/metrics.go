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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// batchesInCount is used to indicate the number of batches consumed
var batchesInCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "windowing_engine",
	Name:      "batches_in_total",
	Help:      "Total number of batches consumed",
})

// windowsEmittedCount is used to indicate the number of windows emitted
var windowsEmittedCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "windowing_engine",
	Name:      "windows_emitted_total",
	Help:      "Total number of windows emitted downstream",
})

// extractionFallbackCount is used to indicate the number of batches whose
// event time could not be extracted and fell back to wall clock
var extractionFallbackCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "windowing_engine",
	Name:      "event_time_fallback_total",
	Help:      "Total number of batches that fell back to wall-clock event time",
})

// windowsForceClosedCount is used to indicate the number of windows closed
// early by the resident-window cap
var windowsForceClosedCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "windowing_engine",
	Name:      "windows_force_closed_total",
	Help:      "Total number of windows force-closed by the resident window cap",
})

// windowMergeErrorCount is used to indicate the number of windows dropped
// because their member payloads could not be concatenated
var windowMergeErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "windowing_engine",
	Name:      "window_merge_error_total",
	Help:      "Total number of windows dropped due to payload merge errors",
})

// residentWindows is used to indicate the number of currently open windows
var residentWindows = promauto.NewGauge(prometheus.GaugeOpts{
	Subsystem: "windowing_engine",
	Name:      "resident_windows",
	Help:      "Number of currently open windows",
})
