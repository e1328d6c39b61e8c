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
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
	"golang.org/x/sync/semaphore"

	"github.com/numaproj/edgeflow/pkg/stream"
	"github.com/numaproj/edgeflow/pkg/stream/testutils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRuntime(t *testing.T, opts ...stream.Option) *stream.Runtime {
	t.Helper()
	rt, err := stream.NewRuntime(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown() })
	return rt
}

func sorted(items []int) []int {
	out := append([]int{}, items...)
	sort.Ints(out)
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestIsolate_BackpressureAndOrder(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	iso, err := Isolate(src, 2)
	require.NoError(t, err)

	release := make(chan struct{})
	c := &testutils.Collector[int]{}
	iso.Connect(func(ctx context.Context, v int) error {
		<-release
		return c.Sink(ctx, v)
	})

	var returned atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			assert.NoError(t, src.Submit(context.Background(), i))
			returned.Inc()
		}
	}()

	// one tuple held by the consumer, two queued, the fourth submit blocks
	assert.Eventually(t, func() bool { return returned.Load() == 3 }, 5*time.Second, time.Millisecond)
	assert.Never(t, func() bool { return returned.Load() > 3 }, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	<-done
	require.True(t, c.WaitFor(10, 5*time.Second))
	assert.Equal(t, seq(10), c.Items())
}

func TestIsolate_ProducerCancellation(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	iso, err := Isolate(src, 1)
	require.NoError(t, err)
	block := make(chan struct{})
	defer close(block)
	iso.Connect(func(ctx context.Context, _ int) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Submit(ctx, 1))
	errCh := make(chan error, 1)
	go func() {
		for i := 2; ; i++ {
			if err := src.Submit(ctx, i); err != nil {
				errCh <- err
				return
			}
		}
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked producer was not released by cancellation")
	}
}

func TestIsolate_RuntimeShutdownReleasesProducer(t *testing.T) {
	rt, err := stream.NewRuntime(context.Background())
	require.NoError(t, err)
	src := stream.New[int](rt, "source")
	iso, err := Isolate(src, 1)
	require.NoError(t, err)
	iso.Connect(func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})
	errCh := make(chan error, 1)
	go func() {
		for i := 0; ; i++ {
			if err := src.Submit(context.Background(), i); err != nil {
				errCh <- err
				return
			}
		}
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, rt.Shutdown())
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked producer was not released by shutdown")
	}
}

func TestIsolate_InvalidCapacity(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	_, err := Isolate(src, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = IsolateUnordered(src, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIsolateUnordered(t *testing.T) {
	rt := newRuntime(t, stream.WithUnorderedWorkers(4))
	src := stream.New[int](rt, "source")
	iso, err := IsolateUnordered(src, 5)
	require.NoError(t, err)
	c := &testutils.Collector[int]{}
	stream.Sink(iso, c.Sink)
	for i := 0; i < 100; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	require.True(t, c.WaitFor(100, 5*time.Second))
	assert.Equal(t, seq(100), sorted(c.Items()))
}

func TestBarrier_Alignment(t *testing.T) {
	rt := newRuntime(t)
	a := stream.New[string](rt, "a")
	b := stream.New[string](rt, "b")
	joined, err := Barrier([]*stream.Stream[string]{a, b}, 1)
	require.NoError(t, err)
	c := &testutils.Collector[[]string]{}
	stream.Sink(joined, c.Sink)

	var wg sync.WaitGroup
	feed := func(s *stream.Stream[string], prefix string, pause time.Duration) {
		defer wg.Done()
		for i := 1; i <= 3; i++ {
			time.Sleep(pause)
			assert.NoError(t, s.Submit(context.Background(), fmt.Sprintf("%s%d", prefix, i)))
		}
	}
	wg.Add(2)
	go feed(a, "a", 0)
	go feed(b, "b", 5*time.Millisecond)
	wg.Wait()

	require.True(t, c.WaitFor(3, 5*time.Second))
	assert.Equal(t, [][]string{{"a1", "b1"}, {"a2", "b2"}, {"a3", "b3"}}, c.Items())
}

func TestBarrier_InvalidArguments(t *testing.T) {
	rt := newRuntime(t)
	other := newRuntime(t)
	_, err := Barrier[int](nil, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Barrier([]*stream.Stream[int]{stream.New[int](rt, "a")}, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = BarrierOf(stream.New[int](rt, "a"), stream.New[int](other, "b"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGate(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	sem := semaphore.NewWeighted(2)
	gated, err := Gate(src, sem)
	require.NoError(t, err)
	c := &testutils.Collector[int]{}
	stream.Sink(gated, c.Sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			assert.NoError(t, src.Submit(context.Background(), i))
		}
	}()
	require.True(t, c.WaitFor(2, 5*time.Second))
	assert.Never(t, func() bool { return c.Len() > 2 }, 50*time.Millisecond, 5*time.Millisecond)
	sem.Release(1)
	<-done
	assert.Equal(t, []int{0, 1, 2}, c.Items())

	_, err = Gate[int](src, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGate_Cancellation(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	sem := semaphore.NewWeighted(1)
	require.True(t, sem.TryAcquire(1))
	_, err := Gate(src, sem)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, src.Submit(ctx, 1), context.DeadlineExceeded)
}

func TestLoadBalancedSplitter(t *testing.T) {
	s, err := NewLoadBalancedSplitter[string](3)
	require.NoError(t, err)
	ctx := context.Background()
	for want := 0; want < 3; want++ {
		ch, err := s.Assign(ctx, "t")
		require.NoError(t, err)
		assert.Equal(t, want, ch)
	}
	assert.Equal(t, 3, s.BusyChannels())

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Assign(tctx, "t")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, s.ChannelDone(1))
	ch, err := s.Assign(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 1, ch)

	require.NoError(t, s.ChannelDone(2))
	assert.ErrorIs(t, s.ChannelDone(2), ErrChannelNotBusy)
	assert.ErrorIs(t, s.ChannelDone(7), ErrChannelNotBusy)
	assert.ErrorIs(t, s.ChannelDone(-1), ErrChannelNotBusy)
	assert.Equal(t, 2, s.BusyChannels())

	_, err = NewLoadBalancedSplitter[string](0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLoadBalancedSplitter_Exclusivity(t *testing.T) {
	const n = 4
	s, err := NewLoadBalancedSplitter[int](n)
	require.NoError(t, err)
	var lock sync.Mutex
	inUse := make(map[int]bool)
	var violations atomic.Int32

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				ch, err := s.Assign(context.Background(), i)
				if !assert.NoError(t, err) {
					return
				}
				lock.Lock()
				if inUse[ch] || s.BusyChannels() > n {
					violations.Inc()
				}
				inUse[ch] = true
				lock.Unlock()

				lock.Lock()
				delete(inUse, ch)
				lock.Unlock()
				assert.NoError(t, s.ChannelDone(ch))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), violations.Load())
	assert.Equal(t, 0, s.BusyChannels())
}

func TestRoundRobinSplitter(t *testing.T) {
	split, err := RoundRobinSplitter[string](3)
	require.NoError(t, err)
	var got []int
	for i := 0; i < 7; i++ {
		ch, err := split(context.Background(), "x")
		require.NoError(t, err)
		got = append(got, ch)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0}, got)

	_, err = RoundRobinSplitter[string](0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestKeyHashSplitter(t *testing.T) {
	split, err := KeyHashSplitter(4, func(s string) string { return s[:1] })
	require.NoError(t, err)
	a1, _ := split(context.Background(), "a-1")
	a2, _ := split(context.Background(), "a-2")
	assert.Equal(t, a1, a2)
	assert.GreaterOrEqual(t, a1, 0)
	assert.Less(t, a1, 4)

	_, err = KeyHashSplitter(0, func(s string) string { return s })
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParallelMap(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	split, err := RoundRobinSplitter[int](3)
	require.NoError(t, err)
	out, err := ParallelMap(src, 3, split, func(_ context.Context, v int, ch int) ([2]int, error) {
		return [2]int{v, ch}, nil
	})
	require.NoError(t, err)
	c := &testutils.Collector[[2]int]{}
	stream.Sink(out, c.Sink)

	for i := 0; i < 30; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	require.True(t, c.WaitFor(30, 5*time.Second))
	var values []int
	for _, r := range c.Items() {
		assert.Equal(t, r[0]%3, r[1], "tuple %d ran on the wrong channel", r[0])
		values = append(values, r[0])
	}
	assert.Equal(t, seq(30), sorted(values))
}

func TestParallel_KeyedChannelsKeepOrder(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	split, err := KeyHashSplitter(4, func(v int) int { return v % 5 })
	require.NoError(t, err)
	out, err := Parallel(src, 4, split, func(s *stream.Stream[int], _ int) (*stream.Stream[int], error) {
		return BlockingDelay(s, time.Microsecond), nil
	})
	require.NoError(t, err)
	c := &testutils.Collector[int]{}
	stream.Sink(out, c.Sink)
	for i := 0; i < 50; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	require.True(t, c.WaitFor(50, 5*time.Second))
	last := make(map[int]int)
	for _, v := range c.Items() {
		if prev, ok := last[v%5]; ok {
			assert.Less(t, prev, v, "tuples of a key must stay in order")
		}
		last[v%5] = v
	}
}

func TestParallel_InvalidArguments(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	split, _ := RoundRobinSplitter[int](2)
	identity := func(s *stream.Stream[int], _ int) (*stream.Stream[int], error) { return s, nil }
	_, err := Parallel(src, 0, split, identity)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Parallel[int, int](src, 2, nil, identity)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Parallel(src, 2, split, func(*stream.Stream[int], int) (*stream.Stream[int], error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ParallelBalanced(src, 0, identity)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestParallelBalanced(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	var running, maxRunning atomic.Int32
	out, err := ParallelBalanced(src, 3, func(s *stream.Stream[int], _ int) (*stream.Stream[int], error) {
		return stream.Map(s, func(_ context.Context, v int) (int, error) {
			n := running.Inc()
			for {
				m := maxRunning.Load()
				if n <= m || maxRunning.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Dec()
			return v * 10, nil
		}), nil
	})
	require.NoError(t, err)
	c := &testutils.Collector[int]{}
	stream.Sink(out, c.Sink)
	for i := 0; i < 30; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	require.True(t, c.WaitFor(30, 5*time.Second))
	var want []int
	for i := 0; i < 30; i++ {
		want = append(want, i*10)
	}
	assert.Equal(t, want, sorted(c.Items()))
	assert.LessOrEqual(t, maxRunning.Load(), int32(3))
}

func TestParallelBalanced_PipelineEmittingTwiceFails(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	_, err := ParallelBalanced(src, 2, func(s *stream.Stream[int], ch int) (*stream.Stream[int], error) {
		out := stream.New[int](rt, fmt.Sprintf("dup-%d", ch))
		s.Connect(func(ctx context.Context, v int) error {
			if err := out.Submit(ctx, v); err != nil {
				return err
			}
			return out.Submit(ctx, v)
		})
		return out, nil
	})
	require.NoError(t, err)
	require.NoError(t, src.Submit(context.Background(), 1))

	errCh := make(chan error, 1)
	go func() { errCh <- rt.Wait() }()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrChannelNotBusy)
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not fail")
	}
}

func TestConcurrentMap(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	out, err := ConcurrentMap(src,
		[]func(context.Context, int) (int, error){
			func(_ context.Context, v int) (int, error) { return v + 1, nil },
			func(_ context.Context, v int) (int, error) {
				time.Sleep(time.Millisecond)
				return v * 2, nil
			},
			func(_ context.Context, v int) (int, error) { return v * v, nil },
		},
		func(_ context.Context, results []int) ([]int, error) {
			return results, nil
		})
	require.NoError(t, err)
	c := &testutils.Collector[[]int]{}
	stream.Sink(out, c.Sink)
	for i := 1; i <= 5; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	require.True(t, c.WaitFor(5, 5*time.Second))
	assert.Equal(t, [][]int{{2, 2, 1}, {3, 4, 4}, {4, 6, 9}, {5, 8, 16}, {6, 10, 25}}, c.Items())
}

func TestConcurrent_InvalidArguments(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	combine := func(_ context.Context, r []int) (int, error) { return len(r), nil }
	_, err := Concurrent[int, int, int](src, nil, combine)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = Concurrent[int, int, int](src, []Pipeline[int, int]{nil}, combine)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ConcurrentMap[int, int, int](src, []func(context.Context, int) (int, error){nil}, combine)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPressureReliever(t *testing.T) {
	rt := newRuntime(t, stream.WithID("pressure-reliever-test"))
	src := stream.New[int](rt, "source")
	relieved, err := PressureReliever(src, func(v int) int { return v / 100 }, 3)
	require.NoError(t, err)

	release := make(chan struct{})
	c := &testutils.Collector[int]{}
	relieved.Connect(func(ctx context.Context, v int) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		return c.Sink(ctx, v)
	})

	// producers never block, even while the consumer is stuck
	for i := 0; i < 10; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	require.NoError(t, src.Submit(context.Background(), 100))
	require.NoError(t, src.Submit(context.Background(), 101))
	close(release)

	require.Eventually(t, func() bool {
		items := c.Items()
		seen9, seen101 := false, false
		for _, v := range items {
			seen9 = seen9 || v == 9
			seen101 = seen101 || v == 101
		}
		return seen9 && seen101
	}, 5*time.Second, time.Millisecond)

	byKey := make(map[int][]int)
	for _, v := range c.Items() {
		byKey[v/100] = append(byKey[v/100], v)
	}
	assert.Equal(t, []int{100, 101}, byKey[1], "a backlogged key must not drop another key's tuples")
	keyZero := byKey[0]
	assert.GreaterOrEqual(t, len(keyZero), 3)
	assert.LessOrEqual(t, len(keyZero), 4)
	for i := 1; i < len(keyZero); i++ {
		assert.Less(t, keyZero[i-1], keyZero[i], "no duplicates or reordering within a key")
	}
	assert.Equal(t, []int{7, 8, 9}, keyZero[len(keyZero)-3:])
	assert.GreaterOrEqual(t, testutil.ToFloat64(droppedCount.WithLabelValues("pressure-reliever-test", relieved.Name())), float64(6))
}

func TestPressureReliever_InvalidArguments(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	_, err := PressureReliever(src, func(v int) int { return v }, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = PressureReliever[int, int](src, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestValve(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	valve := NewValve[int](true)
	c := &testutils.Collector[int]{}
	stream.Sink(stream.Filter(src, valve.Test), c.Sink)

	require.NoError(t, src.Submit(context.Background(), 1))
	valve.SetOpen(false)
	assert.False(t, valve.IsOpen())
	assert.Equal(t, "closed", valve.String())
	require.NoError(t, src.Submit(context.Background(), 2))
	valve.SetOpen(true)
	assert.Equal(t, "open", valve.String())
	require.NoError(t, src.Submit(context.Background(), 3))
	assert.Equal(t, []int{1, 3}, c.Items())
}

func TestBlockingDelay(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	c := &testutils.Collector[int]{}
	stream.Sink(BlockingDelay(src, 20*time.Millisecond), c.Sink)
	start := time.Now()
	require.NoError(t, src.Submit(context.Background(), 1))
	require.NoError(t, src.Submit(context.Background(), 2))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []int{1, 2}, c.Items())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := stream.New[int](rt, "slow")
	BlockingDelay(slow, time.Hour)
	assert.ErrorIs(t, slow.Submit(ctx, 1), context.Canceled)
}

func TestBlockingThrottle(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	c := &testutils.Collector[int]{}
	stream.Sink(BlockingThrottle(src, 20*time.Millisecond), c.Sink)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []int{0, 1, 2}, c.Items())
}

func TestBlockingOneShotDelay(t *testing.T) {
	rt := newRuntime(t)
	src := stream.New[int](rt, "source")
	c := &testutils.Collector[int]{}
	stream.Sink(BlockingOneShotDelay(src, 30*time.Millisecond), c.Sink)
	start := time.Now()
	require.NoError(t, src.Submit(context.Background(), 1))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	start = time.Now()
	for i := 2; i <= 5; i++ {
		require.NoError(t, src.Submit(context.Background(), i))
	}
	assert.Less(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, c.Items())
}

func TestErrorsWrapSentinels(t *testing.T) {
	err := invalidArgument("width %d", 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, "invalid argument: width 0", err.Error())
}
