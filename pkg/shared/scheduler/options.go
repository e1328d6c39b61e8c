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
	"github.com/benbjohnson/clock"
)

type options struct {
	// clock is the time source of every task
	clock clock.Clock
	// name labels the scheduler in logs and metrics
	name string
}

func DefaultOptions() *options {
	return &options{
		clock: clock.New(),
		name:  "default",
	}
}

type Option func(*options) error

// WithClock sets the clock the scheduler measures delays with.
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithName sets the scheduler name.
func WithName(name string) Option {
	return func(o *options) error {
		o.name = name
		return nil
	}
}
