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

package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SinkFunc consumes tuples of a stream.
type SinkFunc[T any] func(ctx context.Context, tuple T) error

// Splitter returns the channel of a tuple. A negative channel discards the tuple.
type Splitter[T any] func(ctx context.Context, tuple T) (int, error)

// Stream is a handle on a flow of tuples. Submit hands a tuple synchronously to every
// connected sink; sinks may be called concurrently when several producers submit.
type Stream[T any] struct {
	rt    *Runtime
	name  string
	lock  sync.RWMutex
	sinks []SinkFunc[T]
}

// New returns a stream without producer, tuples enter it through Submit.
func New[T any](rt *Runtime, name string) *Stream[T] {
	return &Stream[T]{rt: rt, name: name}
}

// Name returns the stream name.
func (s *Stream[T]) Name() string {
	return s.name
}

// Runtime returns the runtime of the stream.
func (s *Stream[T]) Runtime() *Runtime {
	return s.rt
}

// Connect adds a sink.
func (s *Stream[T]) Connect(sink SinkFunc[T]) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Submit delivers tuple to the sinks in the order they were connected and stops at the
// first error.
func (s *Stream[T]) Submit(ctx context.Context, tuple T) error {
	s.lock.RLock()
	sinks := s.sinks
	s.lock.RUnlock()
	for _, sink := range sinks {
		if err := sink(ctx, tuple); err != nil {
			return err
		}
	}
	return nil
}

// derive returns a stream of the same runtime named after its kind.
func derive[T, R any](s *Stream[T], kind string) *Stream[R] {
	return New[R](s.rt, s.rt.StageName(kind))
}

// Map transforms every tuple.
func Map[T, R any](s *Stream[T], fn func(ctx context.Context, tuple T) (R, error)) *Stream[R] {
	out := derive[T, R](s, "map")
	s.Connect(func(ctx context.Context, tuple T) error {
		r, err := fn(ctx, tuple)
		if err != nil {
			return err
		}
		return out.Submit(ctx, r)
	})
	return out
}

// Filter forwards the tuples accepted by pred.
func Filter[T any](s *Stream[T], pred func(tuple T) bool) *Stream[T] {
	out := derive[T, T](s, "filter")
	s.Connect(func(ctx context.Context, tuple T) error {
		if !pred(tuple) {
			return nil
		}
		return out.Submit(ctx, tuple)
	})
	return out
}

// Peek calls fn on every tuple before forwarding it.
func Peek[T any](s *Stream[T], fn func(ctx context.Context, tuple T) error) *Stream[T] {
	out := derive[T, T](s, "peek")
	s.Connect(func(ctx context.Context, tuple T) error {
		if err := fn(ctx, tuple); err != nil {
			return err
		}
		return out.Submit(ctx, tuple)
	})
	return out
}

// Sink terminates the stream with fn.
func Sink[T any](s *Stream[T], fn SinkFunc[T]) {
	s.Connect(fn)
}

// Split routes every tuple to one of width streams. A negative channel discards the tuple,
// any other channel is taken modulo width.
func Split[T any](s *Stream[T], width int, splitter Splitter[T]) ([]*Stream[T], error) {
	if width < 1 {
		return nil, fmt.Errorf("split width must be at least 1, got %d", width)
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	name := s.rt.StageName("split")
	outs := make([]*Stream[T], width)
	for i := range outs {
		outs[i] = New[T](s.rt, fmt.Sprintf("%s.%d", name, i))
	}
	s.Connect(func(ctx context.Context, tuple T) error {
		ch, err := splitter(ctx, tuple)
		if err != nil {
			return err
		}
		if ch < 0 {
			return nil
		}
		return outs[ch%width].Submit(ctx, tuple)
	})
	return outs, nil
}

// Union merges streams of the same runtime into one.
func Union[T any](streams ...*Stream[T]) (*Stream[T], error) {
	if len(streams) == 0 {
		return nil, errors.New("union needs at least one stream")
	}
	rt := streams[0].rt
	for _, s := range streams[1:] {
		if s.rt != rt {
			return nil, fmt.Errorf("stream %s belongs to another runtime", s.name)
		}
	}
	if len(streams) == 1 {
		return streams[0], nil
	}
	out := New[T](rt, rt.StageName("union"))
	for _, s := range streams {
		s.Connect(out.Submit)
	}
	return out, nil
}

// Poll returns a stream fed with the result of fn every period, until the runtime stops.
// Errors returned by fn fail the runtime.
func Poll[T any](rt *Runtime, period time.Duration, fn func(ctx context.Context) (T, error)) (*Stream[T], error) {
	if period <= 0 {
		return nil, fmt.Errorf("poll period must be positive, got %v", period)
	}
	out := New[T](rt, rt.StageName("poll"))
	err := rt.Go(out.name, func(ctx context.Context) error {
		ticker := rt.Clock().Ticker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				v, err := fn(ctx)
				if err != nil {
					return err
				}
				if err := out.Submit(ctx, v); err != nil {
					return err
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
