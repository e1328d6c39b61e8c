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
	"time"

	"github.com/numaproj/edgeflow/pkg/stream"
)

// queue is the bounded FIFO between the producers of a stage and its consumer goroutines.
type queue[T any] struct {
	rt   *stream.Runtime
	name string
	ch   chan T
}

func newQueue[T any](rt *stream.Runtime, name string, capacity int) *queue[T] {
	return &queue[T]{rt: rt, name: name, ch: make(chan T, capacity)}
}

// put blocks while the queue is full.
func (q *queue[T]) put(ctx context.Context, tuple T) error {
	select {
	case q.ch <- tuple:
	default:
		start := time.Now()
		select {
		case q.ch <- tuple:
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", q.name, ctx.Err())
		case <-q.rt.Done():
			return fmt.Errorf("%s: %w", q.name, q.rt.Context().Err())
		}
		blockTime.WithLabelValues(q.rt.ID(), q.name).Observe(time.Since(start).Seconds())
	}
	submittedCount.WithLabelValues(q.rt.ID(), q.name).Inc()
	queueLength.WithLabelValues(q.rt.ID(), q.name).Set(float64(len(q.ch)))
	return nil
}

func (q *queue[T]) take(ctx context.Context) (T, error) {
	select {
	case t := <-q.ch:
		queueLength.WithLabelValues(q.rt.ID(), q.name).Set(float64(len(q.ch)))
		return t, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// forward starts workers goroutines moving tuples from q to out.
func (q *queue[T]) forward(workers int, out *stream.Stream[T]) error {
	for i := 0; i < workers; i++ {
		err := q.rt.Go(fmt.Sprintf("%s.%d", q.name, i), func(ctx context.Context) error {
			for {
				t, err := q.take(ctx)
				if err != nil {
					return err
				}
				if err := out.Submit(ctx, t); err != nil {
					return err
				}
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Isolate decouples the producers of s from its consumers with a bounded FIFO queue drained
// by one goroutine. Producers block once capacity tuples are waiting. Order is preserved.
func Isolate[T any](s *stream.Stream[T], capacity int) (*stream.Stream[T], error) {
	return isolate(s, capacity, 1, "isolate")
}

// IsolateUnordered is like Isolate but drains the queue with the runtime's pool of unordered
// workers, so tuples may be delivered out of order.
func IsolateUnordered[T any](s *stream.Stream[T], capacity int) (*stream.Stream[T], error) {
	return isolate(s, capacity, s.Runtime().Defaults().UnorderedWorkers, "isolate-unordered")
}

func isolate[T any](s *stream.Stream[T], capacity, workers int, kind string) (*stream.Stream[T], error) {
	if capacity < 1 {
		return nil, invalidArgument("queue capacity must be at least 1, got %d", capacity)
	}
	rt := s.Runtime()
	name := rt.StageName(kind)
	q := newQueue[T](rt, name, capacity)
	out := stream.New[T](rt, name)
	if err := q.forward(workers, out); err != nil {
		return nil, err
	}
	s.Connect(q.put)
	return out, nil
}
