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

package queue

import (
	"sync"

	"go.uber.org/atomic"
)

// OverflowQueue is a thread safe bounded FIFO. Appending to a full queue overflows its oldest
// element.
type OverflowQueue[T any] struct {
	lock       sync.RWMutex
	ring       []T
	head       int
	size       int
	overflowed atomic.Uint64
}

// New returns a queue holding at most size elements, size is raised to 1 when smaller.
func New[T any](size int) *OverflowQueue[T] {
	if size < 1 {
		size = 1
	}
	return &OverflowQueue[T]{ring: make([]T, size)}
}

// Append adds value at the tail. When the queue is full the head is returned as evicted.
func (q *OverflowQueue[T]) Append(value T) (evicted T, overflow bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.size == len(q.ring) {
		evicted = q.ring[q.head]
		q.ring[q.head] = value
		q.head = (q.head + 1) % len(q.ring)
		q.overflowed.Inc()
		return evicted, true
	}
	q.ring[(q.head+q.size)%len(q.ring)] = value
	q.size++
	return evicted, false
}

// Items returns a copy of the elements in the queue, oldest first.
func (q *OverflowQueue[T]) Items() []T {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.items()
}

func (q *OverflowQueue[T]) items() []T {
	r := make([]T, q.size)
	for i := range r {
		r[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	return r
}

// ReversedItems returns a copy of the elements in the queue, newest first.
func (q *OverflowQueue[T]) ReversedItems() []T {
	return reverse(q.Items())
}

// Drain empties the queue and returns what it held, oldest first.
func (q *OverflowQueue[T]) Drain() []T {
	q.lock.Lock()
	defer q.lock.Unlock()
	r := q.items()
	var zero T
	for i := range q.ring {
		q.ring[i] = zero
	}
	q.head, q.size = 0, 0
	return r
}

// Length returns the current length of the queue
func (q *OverflowQueue[T]) Length() int {
	q.lock.RLock()
	defer q.lock.RUnlock()
	return q.size
}

// Capacity returns the maximum length of the queue.
func (q *OverflowQueue[T]) Capacity() int {
	return len(q.ring)
}

// Overflowed returns the number of elements dropped because the queue was full.
func (q *OverflowQueue[T]) Overflowed() uint64 {
	return q.overflowed.Load()
}

func reverse[T any](input []T) []T {
	for i, j := 0, len(input)-1; i < j; i, j = i+1, j-1 {
		input[i], input[j] = input[j], input[i]
	}
	return input
}
