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
	"fmt"
	"runtime"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Defaults are the capacities used by plumbing stages when the caller does not pick one.
type Defaults struct {
	// ParallelChannelBuffer is the queue capacity of each channel of a parallel stage
	ParallelChannelBuffer int
	// ConcurrentBarrierCapacity is the per input queue capacity of the barrier joining concurrent pipelines
	ConcurrentBarrierCapacity int
	// UnorderedWorkers is the number of consumer goroutines of an unordered isolate
	UnorderedWorkers int
}

type options struct {
	id       string
	clock    clock.Clock
	defaults Defaults
}

func DefaultOptions() *options {
	return &options{
		id:    uuid.NewString(),
		clock: clock.New(),
		defaults: Defaults{
			ParallelChannelBuffer:     10,
			ConcurrentBarrierCapacity: 10,
			UnorderedWorkers:          runtime.NumCPU(),
		},
	}
}

type Option func(*options) error

// WithID sets the runtime id.
func WithID(id string) Option {
	return func(o *options) error {
		o.id = id
		return nil
	}
}

// WithClock sets the clock of the runtime scheduler and of time based stages.
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithParallelChannelBuffer sets the queue capacity of each channel of a parallel stage.
func WithParallelChannelBuffer(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("parallel channel buffer must be at least 1, got %d", n)
		}
		o.defaults.ParallelChannelBuffer = n
		return nil
	}
}

// WithConcurrentBarrierCapacity sets the barrier queue capacity of concurrent stages.
func WithConcurrentBarrierCapacity(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("concurrent barrier capacity must be at least 1, got %d", n)
		}
		o.defaults.ConcurrentBarrierCapacity = n
		return nil
	}
}

// WithUnorderedWorkers sets the number of consumer goroutines of unordered isolates.
func WithUnorderedWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("unordered workers must be at least 1, got %d", n)
		}
		o.defaults.UnorderedWorkers = n
		return nil
	}
}
