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
	"sync"

	"github.com/numaproj/edgeflow/pkg/stream"
	"github.com/numaproj/edgeflow/pkg/window"
)

// reliever keeps up to count tuples per key and hands them downstream from one goroutine,
// taking keys in turn. Partitions with tuples to deliver wait in ready, at most once each.
type reliever[T any, K comparable] struct {
	lock    sync.Mutex
	ready   []*window.Partition[T, K, *window.SliceList[T]]
	pending map[*window.Partition[T, K, *window.SliceList[T]]]bool
	notify  chan struct{}
}

// PressureReliever isolates s from its consumers without ever blocking the producers. Each key
// buffers up to count tuples; when a key is full its oldest tuple is dropped. Keys never evict
// each other's tuples, and tuples of a key are delivered in order without duplicates.
func PressureReliever[T any, K comparable](s *stream.Stream[T], keyFn func(T) K, count int) (*stream.Stream[T], error) {
	if count < 1 {
		return nil, invalidArgument("pressure reliever count must be at least 1, got %d", count)
	}
	if keyFn == nil {
		return nil, invalidArgument("pressure reliever needs a key function")
	}
	rt := s.Runtime()
	name := rt.StageName("pressure-reliever")
	r := &reliever[T, K]{
		pending: make(map[*window.Partition[T, K, *window.SliceList[T]]]bool),
		notify:  make(chan struct{}, 1),
	}
	w, err := window.New[T, K, *window.SliceList[T]](
		window.AlwaysInsert[T, K, *window.SliceList[T]](),
		window.CountContentsPolicy[T, K, *window.SliceList[T]](count),
		func(p *window.Partition[T, K, *window.SliceList[T]]) error {
			if _, ok := p.Contents().RemoveFirst(); ok {
				droppedCount.WithLabelValues(rt.ID(), name).Inc()
			}
			return nil
		},
		func(p *window.Partition[T, K, *window.SliceList[T]], _ T) error {
			r.submitLater(p)
			return nil
		},
		keyFn,
		window.NewSliceList[T],
		window.WithName(name),
		window.WithLogger(rt.Logger()),
	)
	if err != nil {
		return nil, err
	}
	out := stream.New[T](rt, name)
	if err := rt.Go(name, func(ctx context.Context) error {
		return r.deliver(ctx, out)
	}); err != nil {
		return nil, err
	}
	s.Connect(func(_ context.Context, tuple T) error {
		if _, err := w.Insert(tuple); err != nil {
			return err
		}
		submittedCount.WithLabelValues(rt.ID(), name).Inc()
		return nil
	})
	return out, nil
}

// submitLater queues p for delivery unless it is already queued. The caller holds p's lock.
func (r *reliever[T, K]) submitLater(p *window.Partition[T, K, *window.SliceList[T]]) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.pending[p] {
		return
	}
	r.pending[p] = true
	r.ready = append(r.ready, p)
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *reliever[T, K]) next() *window.Partition[T, K, *window.SliceList[T]] {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.ready) == 0 {
		return nil
	}
	p := r.ready[0]
	r.ready[0] = nil
	r.ready = r.ready[1:]
	return p
}

func (r *reliever[T, K]) deliver(ctx context.Context, out *stream.Stream[T]) error {
	for {
		p := r.next()
		if p == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.notify:
				continue
			}
		}
		p.Lock()
		tuple, ok := p.Contents().RemoveFirst()
		p.Unlock()
		if ok {
			if err := out.Submit(ctx, tuple); err != nil {
				return err
			}
		}
		p.Lock()
		r.lock.Lock()
		if p.Contents().Len() > 0 {
			r.ready = append(r.ready, p)
		} else {
			delete(r.pending, p)
		}
		r.lock.Unlock()
		p.Unlock()
	}
}
