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
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/numaproj/edgeflow/pkg/shuffle"
	"github.com/numaproj/edgeflow/pkg/stream"
)

// LoadBalancedSplitter assigns each tuple to a channel that is not processing another tuple.
// Assign blocks while every channel is busy; ChannelDone frees a channel.
type LoadBalancedSplitter[T any] struct {
	sem     *semaphore.Weighted
	lock    sync.Mutex
	busy    []bool
	numBusy int
	runtime string
	name    string
}

// NewLoadBalancedSplitter returns a splitter over numChannels channels.
func NewLoadBalancedSplitter[T any](numChannels int) (*LoadBalancedSplitter[T], error) {
	if numChannels < 1 {
		return nil, invalidArgument("number of channels must be at least 1, got %d", numChannels)
	}
	return &LoadBalancedSplitter[T]{
		sem:  semaphore.NewWeighted(int64(numChannels)),
		busy: make([]bool, numChannels),
		name: "load-balanced-splitter",
	}, nil
}

// Assign waits for a free channel, marks it busy and returns it.
func (s *LoadBalancedSplitter[T]) Assign(ctx context.Context, _ T) (int, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return -1, fmt.Errorf("%s: waiting for a free channel: %w", s.name, err)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	for ch, busy := range s.busy {
		if !busy {
			s.busy[ch] = true
			s.numBusy++
			busyChannels.WithLabelValues(s.runtime, s.name).Set(float64(s.numBusy))
			return ch, nil
		}
	}
	return -1, fmt.Errorf("%s: %w", s.name, ErrNoFreeChannel)
}

// ChannelDone frees ch. Freeing a channel that is not busy is a caller error.
func (s *LoadBalancedSplitter[T]) ChannelDone(ch int) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ch < 0 || ch >= len(s.busy) || !s.busy[ch] {
		return fmt.Errorf("%s: channel %d: %w", s.name, ch, ErrChannelNotBusy)
	}
	s.busy[ch] = false
	s.numBusy--
	busyChannels.WithLabelValues(s.runtime, s.name).Set(float64(s.numBusy))
	s.sem.Release(1)
	return nil
}

// BusyChannels returns the number of channels in use.
func (s *LoadBalancedSplitter[T]) BusyChannels() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.numBusy
}

// RoundRobinSplitter returns a splitter cycling through width channels.
func RoundRobinSplitter[T any](width int) (stream.Splitter[T], error) {
	if width < 1 {
		return nil, invalidArgument("width must be at least 1, got %d", width)
	}
	var cnt atomic.Uint64
	return func(context.Context, T) (int, error) {
		return int((cnt.Inc() - 1) % uint64(width)), nil
	}, nil
}

// KeyHashSplitter returns a splitter sending every tuple of a key to the same one of width
// channels.
func KeyHashSplitter[T any, K comparable](width int, keyFn func(T) K) (stream.Splitter[T], error) {
	if keyFn == nil {
		return nil, invalidArgument("key hash splitter needs a key function")
	}
	sh, err := shuffle.NewShuffle(width)
	if err != nil {
		return nil, invalidArgument("%v", err)
	}
	return func(_ context.Context, tuple T) (int, error) {
		return shuffle.ChannelOf(sh, keyFn(tuple)), nil
	}, nil
}
