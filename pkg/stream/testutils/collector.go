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

package testutils

import (
	"context"
	"sync"
	"time"
)

// Collector records the tuples reaching a stream sink.
type Collector[T any] struct {
	lock  sync.Mutex
	items []T
}

// Sink appends tuple to the collected items. It is safe for concurrent use.
func (c *Collector[T]) Sink(_ context.Context, tuple T) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.items = append(c.items, tuple)
	return nil
}

// Items returns a copy of the collected tuples in arrival order.
func (c *Collector[T]) Items() []T {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of collected tuples.
func (c *Collector[T]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.items)
}

// WaitFor waits until at least n tuples were collected and reports whether they were.
func (c *Collector[T]) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if c.Len() >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
