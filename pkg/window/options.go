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
	"go.uber.org/zap"
)

// RemovalPolicy decides, from the number of tuples left in a partition, whether the partition
// is detached from its window. It is evaluated at the end of every insert and after every
// scheduled eviction.
type RemovalPolicy func(size int) bool

// RemoveIfEmpty detaches partitions once they hold no tuples.
var RemoveIfEmpty RemovalPolicy = func(size int) bool { return size == 0 }

type options struct {
	// name labels the window in logs and metrics
	name string
	// log is the window logger
	log *zap.SugaredLogger
	// scheduler runs time based evictions
	scheduler Scheduler
	// vetoReporting makes Insert return false for vetoed tuples
	vetoReporting bool
	// removal detaches partitions from the window, nil keeps them forever
	removal RemovalPolicy
}

func DefaultOptions() *options {
	return &options{
		name: "window",
	}
}

type Option func(*options) error

// WithName sets the window name.
func WithName(name string) Option {
	return func(o *options) error {
		o.name = name
		return nil
	}
}

// WithLogger sets the window logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) error {
		o.log = log
		return nil
	}
}

// WithScheduler registers the scheduler used by time based policies.
func WithScheduler(s Scheduler) Option {
	return func(o *options) error {
		o.scheduler = s
		return nil
	}
}

// WithVetoReporting makes Insert return false when the insertion policy rejects a tuple.
// Without it Insert reports every tuple as accepted.
func WithVetoReporting() Option {
	return func(o *options) error {
		o.vetoReporting = true
		return nil
	}
}

// WithPartitionRemoval sets the policy that detaches partitions from the window.
// By default partitions are never removed.
func WithPartitionRemoval(p RemovalPolicy) Option {
	return func(o *options) error {
		o.removal = p
		return nil
	}
}
