/*
Copyright 2022 The Numaproj Authors.

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/edgeflow/pkg/metrics"
)

// partitionsCount is the number of partitions held by a window
var partitionsCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "window",
	Name:      "partitions",
	Help:      "Number of partitions in the window",
}, []string{metrics.LabelWindow})

var insertedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "window",
	Name:      "inserted_total",
	Help:      "Total number of tuples appended to window partitions",
}, []string{metrics.LabelWindow})

// rejectedCount counts the tuples vetoed by the insertion policy
var rejectedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "window",
	Name:      "rejected_total",
	Help:      "Total number of tuples rejected by the insertion policy",
}, []string{metrics.LabelWindow})

var evictedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "window",
	Name:      "evicted_total",
	Help:      "Total number of tuples evicted from window partitions",
}, []string{metrics.LabelWindow})

var processedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "window",
	Name:      "processed_total",
	Help:      "Total number of partition processor invocations",
}, []string{metrics.LabelWindow})

// scheduledEvictErrors counts failed evictions that ran on the scheduler, they have no caller to return to
var scheduledEvictErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "window",
	Name:      "scheduled_evict_error_total",
	Help:      "Total number of scheduled evictions that returned an error",
}, []string{metrics.LabelWindow})
