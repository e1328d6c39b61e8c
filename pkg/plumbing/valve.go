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

package plumbing

import (
	"go.uber.org/atomic"
)

// Valve is a predicate that passes every tuple while open and none while closed.
// It is used with stream.Filter and can be toggled from any goroutine.
type Valve[T any] struct {
	open atomic.Bool
}

// NewValve returns a valve in the given state.
func NewValve[T any](open bool) *Valve[T] {
	v := &Valve[T]{}
	v.open.Store(open)
	return v
}

// SetOpen opens or closes the valve.
func (v *Valve[T]) SetOpen(open bool) {
	v.open.Store(open)
}

// IsOpen reports whether the valve is open.
func (v *Valve[T]) IsOpen() bool {
	return v.open.Load()
}

// Test reports whether tuple passes the valve.
func (v *Valve[T]) Test(T) bool {
	return v.open.Load()
}

func (v *Valve[T]) String() string {
	if v.IsOpen() {
		return "open"
	}
	return "closed"
}
