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

// Package reduce binds windows to streams. Aggregate inserts every tuple of a stream into a
// window and emits what the window's partition processor aggregates; Last, LastTime, Batch and
// BatchTime build the common window shapes around it.
package reduce

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/numaproj/edgeflow/pkg/stream"
	"github.com/numaproj/edgeflow/pkg/window"
)

// Aggregator reduces the tuples of a partition to one value. Returning false emits nothing.
type Aggregator[T any, K comparable, U any] func(tuples []T, key K) (U, bool, error)

// Aggregate connects w to s. Every tuple of s is inserted into w, and every time w processes
// a partition the aggregate of its contents is submitted to the returned stream. Calls to agg
// are serialized. The runtime scheduler is registered on w unless it already has one, and w is
// closed when the runtime shuts down.
func Aggregate[T any, K comparable, L window.List[T], U any](s *stream.Stream[T], w *window.Window[T, K, L], agg Aggregator[T, K, U]) (*stream.Stream[U], error) {
	if w == nil {
		return nil, errors.New("aggregate needs a window")
	}
	if agg == nil {
		return nil, errors.New("aggregate needs an aggregator")
	}
	rt := s.Runtime()
	name := rt.StageName("aggregate")
	out := stream.New[U](rt, name)

	var lock sync.Mutex
	w.RegisterPartitionProcessor(func(tuples []T, key K) error {
		lock.Lock()
		value, ok, err := agg(tuples, key)
		lock.Unlock()
		if err != nil {
			aggregateErrors.WithLabelValues(rt.ID(), name).Inc()
			return fmt.Errorf("%s: aggregating key %v: %w", name, key, err)
		}
		if !ok {
			return nil
		}
		aggregatesCount.WithLabelValues(rt.ID(), name).Inc()
		return out.Submit(rt.Context(), value)
	})
	if w.Scheduler() == nil {
		w.RegisterScheduler(rt.Scheduler())
	}
	rt.OnShutdown(w.Close)

	s.Connect(func(_ context.Context, tuple T) error {
		_, err := w.Insert(tuple)
		return err
	})
	return out, nil
}

func windowOptions(rt *stream.Runtime, kind string, opts []Option) ([]window.Option, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	base := []window.Option{
		window.WithName(rt.StageName(kind)),
		window.WithLogger(rt.Logger()),
		window.WithScheduler(rt.Scheduler()),
	}
	return append(base, o.windowOpts...), nil
}

// Last aggregates the last count tuples of each key every time a tuple arrives.
func Last[T any, K comparable, U any](s *stream.Stream[T], count int, keyFn func(T) K, agg Aggregator[T, K, U], opts ...Option) (*stream.Stream[U], error) {
	wOpts, err := windowOptions(s.Runtime(), "last", opts)
	if err != nil {
		return nil, err
	}
	w, err := window.LastNProcessOnInsert(count, keyFn, wOpts...)
	if err != nil {
		return nil, err
	}
	return Aggregate(s, w, agg)
}

// LastTime aggregates the tuples of each key that arrived within the last d, every time a
// tuple arrives and every time tuples age out.
func LastTime[T any, K comparable, U any](s *stream.Stream[T], d time.Duration, keyFn func(T) K, agg Aggregator[T, K, U], opts ...Option) (*stream.Stream[U], error) {
	rt := s.Runtime()
	wOpts, err := windowOptions(rt, "last-time", opts)
	if err != nil {
		return nil, err
	}
	w, err := window.LastTimeProcessOnInsert(d, keyFn, rt.Scheduler().Clock(), wOpts...)
	if err != nil {
		return nil, err
	}
	return Aggregate(s, w, agg)
}

// Batch aggregates each key's tuples in batches of count.
func Batch[T any, K comparable, U any](s *stream.Stream[T], count int, keyFn func(T) K, agg Aggregator[T, K, U], opts ...Option) (*stream.Stream[U], error) {
	wOpts, err := windowOptions(s.Runtime(), "batch", opts)
	if err != nil {
		return nil, err
	}
	w, err := window.LastNBatch(count, keyFn, wOpts...)
	if err != nil {
		return nil, err
	}
	return Aggregate(s, w, agg)
}

// BatchTime aggregates each key's tuples every d, starting with the first tuple of the key.
// Periods without tuples call agg with an empty batch.
func BatchTime[T any, K comparable, U any](s *stream.Stream[T], d time.Duration, keyFn func(T) K, agg Aggregator[T, K, U], opts ...Option) (*stream.Stream[U], error) {
	wOpts, err := windowOptions(s.Runtime(), "batch-time", opts)
	if err != nil {
		return nil, err
	}
	w, err := window.TimeBatch(d, keyFn, wOpts...)
	if err != nil {
		return nil, err
	}
	return Aggregate(s, w, agg)
}
