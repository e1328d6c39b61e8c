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

package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/edgeflow/pkg/metrics"
)

// runningStages is the number of stage goroutines alive in a runtime
var runningStages = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "stream",
	Name:      "running_stages",
	Help:      "Number of stage goroutines running in the runtime",
}, []string{metrics.LabelRuntime})

// stageErrors counts stage goroutines that failed
var stageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "stream",
	Name:      "stage_error_total",
	Help:      "Total number of stage goroutines that returned an error",
}, []string{metrics.LabelRuntime, metrics.LabelStage})
