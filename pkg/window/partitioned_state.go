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
	"sync"
)

// PartitionedState keeps one state value per key, created on first access.
type PartitionedState[K comparable, S any] struct {
	lock   sync.Mutex
	init   func(K) S
	states map[K]S
}

// NewPartitionedState returns a PartitionedState creating missing states with init.
func NewPartitionedState[K comparable, S any](init func(K) S) *PartitionedState[K, S] {
	return &PartitionedState[K, S]{
		init:   init,
		states: make(map[K]S),
	}
}

// Get returns the state of key, creating it if needed.
func (ps *PartitionedState[K, S]) Get(key K) S {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	s, ok := ps.states[key]
	if !ok {
		s = ps.init(key)
		ps.states[key] = s
	}
	return s
}

// Set replaces the state of key and returns the previous one.
func (ps *PartitionedState[K, S]) Set(key K, state S) (S, bool) {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	prev, ok := ps.states[key]
	ps.states[key] = state
	return prev, ok
}

// Remove deletes the state of key and returns it.
func (ps *PartitionedState[K, S]) Remove(key K) (S, bool) {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	s, ok := ps.states[key]
	delete(ps.states, key)
	return s, ok
}

// Len returns the number of keys with a state.
func (ps *PartitionedState[K, S]) Len() int {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	return len(ps.states)
}
