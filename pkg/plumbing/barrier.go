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

	"golang.org/x/sync/semaphore"

	"github.com/numaproj/edgeflow/pkg/stream"
)

// Barrier joins streams into a stream of index aligned lists: the i-th element of every list
// comes from streams[i]. A list is emitted once every input has a tuple waiting. Each input
// has its own queue of queueCapacity tuples; a full queue blocks only that input.
func Barrier[T any](streams []*stream.Stream[T], queueCapacity int) (*stream.Stream[[]T], error) {
	if len(streams) == 0 {
		return nil, invalidArgument("barrier needs at least one stream")
	}
	if queueCapacity < 1 {
		return nil, invalidArgument("barrier queue capacity must be at least 1, got %d", queueCapacity)
	}
	rt := streams[0].Runtime()
	for _, s := range streams[1:] {
		if s.Runtime() != rt {
			return nil, invalidArgument("stream %s belongs to another runtime", s.Name())
		}
	}
	name := rt.StageName("barrier")
	queues := make([]*queue[T], len(streams))
	for i := range streams {
		queues[i] = newQueue[T](rt, fmt.Sprintf("%s.%d", name, i), queueCapacity)
	}
	out := stream.New[[]T](rt, name)
	err := rt.Go(name, func(ctx context.Context) error {
		for {
			list := make([]T, len(queues))
			for i, q := range queues {
				t, err := q.take(ctx)
				if err != nil {
					return err
				}
				list[i] = t
			}
			if err := out.Submit(ctx, list); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return nil, err
	}
	for i, s := range streams {
		s.Connect(queues[i].put)
	}
	return out, nil
}

// BarrierOf is Barrier with a queue capacity of 1.
func BarrierOf[T any](streams ...*stream.Stream[T]) (*stream.Stream[[]T], error) {
	return Barrier(streams, 1)
}

// Gate forwards each tuple once a permit of sem is acquired. Permits are released by the
// owner of sem, typically once the tuple was fully processed downstream.
func Gate[T any](s *stream.Stream[T], sem *semaphore.Weighted) (*stream.Stream[T], error) {
	if sem == nil {
		return nil, invalidArgument("gate needs a semaphore")
	}
	rt := s.Runtime()
	out := stream.New[T](rt, rt.StageName("gate"))
	s.Connect(func(ctx context.Context, tuple T) error {
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("%s: %w", out.Name(), err)
		}
		return out.Submit(ctx, tuple)
	})
	return out, nil
}
