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

	"github.com/numaproj/edgeflow/pkg/stream"
)

// Pipeline builds the processing of one channel. channel is the index of the channel the
// pipeline serves.
type Pipeline[T, R any] func(s *stream.Stream[T], channel int) (*stream.Stream[R], error)

// Parallel splits s into width channels with splitter, runs a copy of pipeline on each
// isolated channel, and isolates the union of their outputs. Order is kept within a channel
// only.
//
//	                                   |-> isolate -> pipeline-ch0 -> |
//	s -> split(width, splitter) ->     |-> isolate -> pipeline-ch1 -> |-> union -> isolate(width)
//	                                   |-> isolate -> pipeline-ch2 -> |
func Parallel[T, R any](s *stream.Stream[T], width int, splitter stream.Splitter[T], pipeline Pipeline[T, R]) (*stream.Stream[R], error) {
	if width < 1 {
		return nil, invalidArgument("width must be at least 1, got %d", width)
	}
	if splitter == nil || pipeline == nil {
		return nil, invalidArgument("parallel needs a splitter and a pipeline")
	}
	channels, err := stream.Split(s, width, splitter)
	if err != nil {
		return nil, err
	}
	return parallelChannels(channels, s.Runtime().Defaults().ParallelChannelBuffer, pipeline, nil)
}

// ParallelMap runs mapper on width channels. It is Parallel with a pipeline mapping each
// tuple once.
func ParallelMap[T, R any](s *stream.Stream[T], width int, splitter stream.Splitter[T], mapper func(ctx context.Context, tuple T, channel int) (R, error)) (*stream.Stream[R], error) {
	if mapper == nil {
		return nil, invalidArgument("parallel map needs a mapper")
	}
	return Parallel(s, width, splitter, func(ch *stream.Stream[T], channel int) (*stream.Stream[R], error) {
		return stream.Map(ch, func(ctx context.Context, tuple T) (R, error) {
			return mapper(ctx, tuple, channel)
		}), nil
	})
}

// ParallelBalanced is Parallel with each tuple sent to an idle channel. A channel is idle again
// once its pipeline emitted a tuple, so pipeline must emit exactly one tuple per input or its
// channel is never reused.
//
//	                                   |-> isolate(1) -> pipeline-ch0 -> peek(done) -> |
//	s -> split(width, balanced) ->     |-> isolate(1) -> pipeline-ch1 -> peek(done) -> |-> union -> isolate(width)
//	                                   |-> isolate(1) -> pipeline-ch2 -> peek(done) -> |
func ParallelBalanced[T, R any](s *stream.Stream[T], width int, pipeline Pipeline[T, R]) (*stream.Stream[R], error) {
	if pipeline == nil {
		return nil, invalidArgument("parallel balanced needs a pipeline")
	}
	splitter, err := NewLoadBalancedSplitter[T](width)
	if err != nil {
		return nil, err
	}
	rt := s.Runtime()
	splitter.runtime = rt.ID()
	splitter.name = rt.StageName("load-balanced-splitter")
	channels, err := stream.Split(s, width, splitter.Assign)
	if err != nil {
		return nil, err
	}
	return parallelChannels(channels, 1, pipeline, splitter.ChannelDone)
}

func parallelChannels[T, R any](channels []*stream.Stream[T], buffer int, pipeline Pipeline[T, R], done func(ch int) error) (*stream.Stream[R], error) {
	results := make([]*stream.Stream[R], len(channels))
	for ch, c := range channels {
		isolated, err := Isolate(c, buffer)
		if err != nil {
			return nil, err
		}
		r, err := pipeline(isolated, ch)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, invalidArgument("pipeline of channel %d returned no stream", ch)
		}
		if done != nil {
			channel := ch
			r = stream.Peek(r, func(context.Context, R) error {
				return done(channel)
			})
		}
		results[ch] = r
	}
	union, err := stream.Union(results...)
	if err != nil {
		return nil, err
	}
	return Isolate(union, len(channels))
}

// Concurrent runs every pipeline on every tuple of s and combines their results, in pipeline
// order, into one tuple. Each pipeline sees s through a single slot queue and must emit exactly
// one tuple per input.
//
//	     |-> isolate(1) -> pipeline0 -> |
//	s -> |-> isolate(1) -> pipeline1 -> |-> barrier -> combiner
//	     |-> isolate(1) -> pipeline2 -> |
func Concurrent[T, U, R any](s *stream.Stream[T], pipelines []Pipeline[T, U], combiner func(ctx context.Context, results []U) (R, error)) (*stream.Stream[R], error) {
	if len(pipelines) == 0 {
		return nil, invalidArgument("concurrent needs at least one pipeline")
	}
	if combiner == nil {
		return nil, invalidArgument("concurrent needs a combiner")
	}
	results := make([]*stream.Stream[U], len(pipelines))
	for i, pipeline := range pipelines {
		if pipeline == nil {
			return nil, invalidArgument("pipeline %d is nil", i)
		}
		fanout, err := Isolate(s, 1)
		if err != nil {
			return nil, err
		}
		r, err := pipeline(fanout, i)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, invalidArgument("pipeline %d returned no stream", i)
		}
		results[i] = r
	}
	joined, err := Barrier(results, s.Runtime().Defaults().ConcurrentBarrierCapacity)
	if err != nil {
		return nil, err
	}
	return stream.Map(joined, combiner), nil
}

// ConcurrentMap runs every mapper on every tuple of s and combines their results.
func ConcurrentMap[T, U, R any](s *stream.Stream[T], mappers []func(ctx context.Context, tuple T) (U, error), combiner func(ctx context.Context, results []U) (R, error)) (*stream.Stream[R], error) {
	pipelines := make([]Pipeline[T, U], len(mappers))
	for i, mapper := range mappers {
		if mapper == nil {
			return nil, invalidArgument("mapper %d is nil", i)
		}
		mapper := mapper
		pipelines[i] = func(s *stream.Stream[T], _ int) (*stream.Stream[U], error) {
			return stream.Map(s, mapper), nil
		}
	}
	return Concurrent(s, pipelines, combiner)
}
