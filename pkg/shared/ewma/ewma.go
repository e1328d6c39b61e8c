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

// Package ewma provides an exponentially weighted moving average.
package ewma

import (
	"fmt"
	"sync"
)

// DefaultSpan is the span used by New when none is given.
const DefaultSpan = 30.0

// EWMA is an exponentially weighted moving average over a span of samples, safe for
// concurrent use. The first sample seeds the average.
type EWMA struct {
	lock  sync.Mutex
	decay float64
	value float64
	count int
}

// New returns an EWMA over span samples, span must be at least 1.
func New(span float64) (*EWMA, error) {
	if span < 1 {
		return nil, fmt.Errorf("ewma span must be at least 1, got %v", span)
	}
	return &EWMA{decay: 2.0 / (span + 1.0)}, nil
}

// Add folds value into the average and returns the new average.
func (e *EWMA) Add(value float64) float64 {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.count == 0 {
		e.value = value
	} else {
		e.value += e.decay * (value - e.value)
	}
	e.count++
	return e.value
}

// Value returns the average, false before the first sample.
func (e *EWMA) Value() (float64, bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.value, e.count > 0
}

// Count returns the number of samples added since the last reset.
func (e *EWMA) Count() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.count
}

func (e *EWMA) Reset() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.value = 0
	e.count = 0
}
