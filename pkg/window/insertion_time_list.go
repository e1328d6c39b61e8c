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
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	// ErrUnsupportedOperation is returned for random access mutations of an InsertionTimeList.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrIllegalState is returned by an iterator Remove that is not preceded by Next.
	ErrIllegalState = errors.New("illegal iterator state")
)

// InsertionTimeList is a List that records the time each tuple was appended. Values and
// timestamps are kept in lockstep: tuples can only be added at the end, and removed from
// the front or through an iterator.
type InsertionTimeList[T any] struct {
	clock  clock.Clock
	values []T
	times  []time.Time
}

var _ List[int] = (*InsertionTimeList[int])(nil)

// NewInsertionTimeList returns an empty list stamping insertions with c.
func NewInsertionTimeList[T any](c clock.Clock) *InsertionTimeList[T] {
	if c == nil {
		c = clock.New()
	}
	return &InsertionTimeList[T]{clock: c}
}

// InsertionTimeListSupplier returns a list supplier for windows backed by an InsertionTimeList.
func InsertionTimeListSupplier[T any](c clock.Clock) func() *InsertionTimeList[T] {
	return func() *InsertionTimeList[T] {
		return NewInsertionTimeList[T](c)
	}
}

// Now returns the current time of the list clock.
func (l *InsertionTimeList[T]) Now() time.Time {
	return l.clock.Now()
}

func (l *InsertionTimeList[T]) Len() int {
	return len(l.values)
}

func (l *InsertionTimeList[T]) At(i int) T {
	return l.values[i]
}

// TimeAt returns the insertion time of the tuple at index i.
func (l *InsertionTimeList[T]) TimeAt(i int) time.Time {
	return l.times[i]
}

// Append adds v stamped with the current time.
func (l *InsertionTimeList[T]) Append(v T) {
	l.values = append(l.values, v)
	l.times = append(l.times, l.clock.Now())
}

// Insert adds v at index i. Only i == Len() is supported, any other position
// returns ErrUnsupportedOperation.
func (l *InsertionTimeList[T]) Insert(i int, v T) error {
	if i != len(l.values) {
		return fmt.Errorf("insert at index %d of %d: %w", i, len(l.values), ErrUnsupportedOperation)
	}
	l.Append(v)
	return nil
}

func (l *InsertionTimeList[T]) RemoveFirst() (T, bool) {
	var zero T
	if len(l.values) == 0 {
		return zero, false
	}
	v := l.values[0]
	l.removeAt(0)
	return v, true
}

func (l *InsertionTimeList[T]) Clear() {
	l.values = nil
	l.times = nil
}

func (l *InsertionTimeList[T]) Items() []T {
	out := make([]T, len(l.values))
	copy(out, l.values)
	return out
}

// EvictOlderThan removes the leading tuples inserted at or before cutoff and returns how many
// were removed.
func (l *InsertionTimeList[T]) EvictOlderThan(cutoff time.Time) int {
	n := 0
	for n < len(l.times) && !l.times[n].After(cutoff) {
		n++
	}
	if n == 0 {
		return 0
	}
	var zero T
	for i := 0; i < n; i++ {
		l.values[i] = zero
	}
	l.values = l.values[n:]
	l.times = l.times[n:]
	return n
}

// NextEvictDelay returns how long until the oldest tuple is older than period, never negative.
// An empty list returns period.
func (l *InsertionTimeList[T]) NextEvictDelay(period time.Duration) time.Duration {
	if len(l.times) == 0 {
		return period
	}
	d := l.times[0].Add(period).Sub(l.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Iterator returns an iterator positioned before the first tuple.
func (l *InsertionTimeList[T]) Iterator() *TimedIterator[T] {
	return &TimedIterator[T]{list: l, next: 0, current: -1}
}

func (l *InsertionTimeList[T]) removeAt(i int) {
	var zero T
	copy(l.values[i:], l.values[i+1:])
	l.values[len(l.values)-1] = zero
	l.values = l.values[:len(l.values)-1]
	copy(l.times[i:], l.times[i+1:])
	l.times = l.times[:len(l.times)-1]
}

// TimedIterator walks an InsertionTimeList, oldest first.
type TimedIterator[T any] struct {
	list    *InsertionTimeList[T]
	next    int
	current int
}

// Next advances to the next tuple and reports whether there is one.
func (it *TimedIterator[T]) Next() bool {
	if it.next >= len(it.list.values) {
		it.current = -1
		return false
	}
	it.current = it.next
	it.next++
	return true
}

// Value returns the current tuple.
func (it *TimedIterator[T]) Value() T {
	return it.list.values[it.current]
}

// Time returns the insertion time of the current tuple.
func (it *TimedIterator[T]) Time() time.Time {
	return it.list.times[it.current]
}

// Remove deletes the current tuple together with its timestamp.
func (it *TimedIterator[T]) Remove() error {
	if it.current < 0 {
		return ErrIllegalState
	}
	it.list.removeAt(it.current)
	it.next = it.current
	it.current = -1
	return nil
}
