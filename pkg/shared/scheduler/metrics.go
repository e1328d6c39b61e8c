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

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/edgeflow/pkg/metrics"
)

// pendingTasks is the number of tasks scheduled but not yet started
var pendingTasks = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "scheduler",
	Name:      "pending_tasks",
	Help:      "Number of scheduled tasks waiting for their delay to elapse",
}, []string{metrics.LabelScheduler})

// executedTasks counts the tasks that started running
var executedTasks = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "scheduler",
	Name:      "executed_total",
	Help:      "Total number of scheduled tasks executed",
}, []string{metrics.LabelScheduler})

// cancelledTasks counts the tasks cancelled before they started
var cancelledTasks = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "scheduler",
	Name:      "cancelled_total",
	Help:      "Total number of scheduled tasks cancelled before execution",
}, []string{metrics.LabelScheduler})
