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
	"time"

	"github.com/benbjohnson/clock"

	"github.com/numaproj/edgeflow/pkg/stream"
)

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BlockingDelay holds every tuple for d before forwarding it, blocking the producer.
func BlockingDelay[T any](s *stream.Stream[T], d time.Duration) *stream.Stream[T] {
	clk := s.Runtime().Clock()
	return stream.Map(s, func(ctx context.Context, tuple T) (T, error) {
		if err := sleep(ctx, clk, d); err != nil {
			return tuple, fmt.Errorf("blocking delay: %w", err)
		}
		return tuple, nil
	})
}

// BlockingThrottle forwards at most one tuple every d, blocking the producer until the next
// tuple is due.
func BlockingThrottle[T any](s *stream.Stream[T], d time.Duration) *stream.Stream[T] {
	clk := s.Runtime().Clock()
	var lock sync.Mutex
	var next time.Time
	return stream.Map(s, func(ctx context.Context, tuple T) (T, error) {
		lock.Lock()
		defer lock.Unlock()
		now := clk.Now()
		if !next.IsZero() && now.Before(next) {
			if err := sleep(ctx, clk, next.Sub(now)); err != nil {
				return tuple, fmt.Errorf("blocking throttle: %w", err)
			}
			now = clk.Now()
		}
		next = now.Add(d)
		return tuple, nil
	})
}

// BlockingOneShotDelay holds the first tuple for d, later tuples pass without delay.
func BlockingOneShotDelay[T any](s *stream.Stream[T], d time.Duration) *stream.Stream[T] {
	clk := s.Runtime().Clock()
	var lock sync.Mutex
	delayed := false
	return stream.Map(s, func(ctx context.Context, tuple T) (T, error) {
		lock.Lock()
		defer lock.Unlock()
		if delayed {
			return tuple, nil
		}
		if err := sleep(ctx, clk, d); err != nil {
			return tuple, fmt.Errorf("blocking one shot delay: %w", err)
		}
		delayed = true
		return tuple, nil
	})
}
