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

package plumbing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/edgeflow/pkg/metrics"
)

// queueLength is the number of tuples waiting in a stage queue
var queueLength = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "plumbing",
	Name:      "queue_length",
	Help:      "Number of tuples waiting in the stage queue",
}, []string{metrics.LabelRuntime, metrics.LabelStage})

var submittedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "plumbing",
	Name:      "submitted_total",
	Help:      "Total number of tuples accepted by the stage",
}, []string{metrics.LabelRuntime, metrics.LabelStage})

// droppedCount counts the tuples a pressure reliever discarded
var droppedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "plumbing",
	Name:      "dropped_total",
	Help:      "Total number of tuples dropped by the stage",
}, []string{metrics.LabelRuntime, metrics.LabelStage})

// blockTime is how long producers waited for room in a full queue
var blockTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "plumbing",
	Name:      "producer_block_seconds",
	Help:      "Time producers were blocked on a full stage queue",
	Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
}, []string{metrics.LabelRuntime, metrics.LabelStage})

// busyChannels is the number of load balanced channels in use
var busyChannels = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "plumbing",
	Name:      "splitter_busy_channels",
	Help:      "Number of load balanced splitter channels processing a tuple",
}, []string{metrics.LabelRuntime, metrics.LabelStage})
