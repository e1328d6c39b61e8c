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

// List is the backing storage of a partition. Implementations are not required to be safe for
// concurrent use, the partition lock guards them.
type List[T any] interface {
	// Len returns the number of tuples.
	Len() int
	// At returns the tuple at index i.
	At(i int) T
	// Append adds a tuple to the end.
	Append(v T)
	// RemoveFirst removes and returns the oldest tuple.
	RemoveFirst() (T, bool)
	// Clear removes all tuples.
	Clear()
	// Items returns a copy of the tuples, oldest first.
	Items() []T
}

// SliceList is a List backed by a slice.
type SliceList[T any] struct {
	items []T
}

var _ List[int] = (*SliceList[int])(nil)

// NewSliceList returns an empty SliceList.
func NewSliceList[T any]() *SliceList[T] {
	return &SliceList[T]{}
}

func (s *SliceList[T]) Len() int {
	return len(s.items)
}

func (s *SliceList[T]) At(i int) T {
	return s.items[i]
}

func (s *SliceList[T]) Append(v T) {
	s.items = append(s.items, v)
}

func (s *SliceList[T]) RemoveFirst() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	v := s.items[0]
	s.items[0] = zero
	s.items = s.items[1:]
	return v, true
}

func (s *SliceList[T]) Clear() {
	s.items = nil
}

func (s *SliceList[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}
