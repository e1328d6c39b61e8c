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

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/numaproj/edgeflow/pkg/shared/logging"
	"github.com/numaproj/edgeflow/pkg/shared/scheduler"
)

// ErrRuntimeClosed is returned when a stage is started on a runtime that was shut down.
var ErrRuntimeClosed = errors.New("runtime is closed")

// Runtime owns the goroutines of a stream graph. The first stage that returns an error
// cancels the runtime context, which stops every other stage.
type Runtime struct {
	id        string
	clock     clock.Clock
	defaults  Defaults
	cancel    context.CancelFunc
	group     *errgroup.Group
	ctx       context.Context
	scheduler *scheduler.Scheduler
	log       *zap.SugaredLogger
	stages    atomic.Int64

	failLock sync.Mutex
	failure  error

	lock    sync.Mutex
	closed  bool
	closers []func() error
}

// NewRuntime returns a Runtime whose stages stop when ctx is done.
func NewRuntime(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	log := logging.FromContext(ctx).With("runtime", o.id)
	ctx = logging.WithLogger(ctx, log)
	sched, err := scheduler.New(ctx, scheduler.WithClock(o.clock), scheduler.WithName(o.id))
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(cctx)
	return &Runtime{
		id:        o.id,
		clock:     o.clock,
		defaults:  o.defaults,
		cancel:    cancel,
		group:     group,
		ctx:       gctx,
		scheduler: sched,
		log:       log,
	}, nil
}

// Go runs fn on a new goroutine of the runtime. fn must return once ctx is done. Errors
// returned after the runtime was cancelled are ignored when they are context errors.
func (rt *Runtime) Go(name string, fn func(ctx context.Context) error) error {
	rt.lock.Lock()
	defer rt.lock.Unlock()
	if rt.closed {
		return ErrRuntimeClosed
	}
	runningStages.WithLabelValues(rt.id).Inc()
	rt.group.Go(func() error {
		defer runningStages.WithLabelValues(rt.id).Dec()
		err := fn(rt.ctx)
		if err == nil {
			return nil
		}
		if rt.ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return nil
		}
		err = fmt.Errorf("stage %s: %w", name, err)
		stageErrors.WithLabelValues(rt.id, name).Inc()
		rt.fail(name, err)
		return err
	})
	return nil
}

// OnShutdown registers fn to run when the runtime shuts down, after every stage returned.
func (rt *Runtime) OnShutdown(fn func() error) {
	rt.lock.Lock()
	defer rt.lock.Unlock()
	rt.closers = append(rt.closers, fn)
}

// Shutdown cancels the runtime, waits for every stage, stops the scheduler and runs the
// shutdown hooks. It returns the first stage failure combined with the hook errors.
func (rt *Runtime) Shutdown() error {
	rt.lock.Lock()
	if rt.closed {
		rt.lock.Unlock()
		return rt.Err()
	}
	rt.closed = true
	closers := rt.closers
	rt.lock.Unlock()

	rt.cancel()
	err := rt.group.Wait()
	rt.scheduler.Stop()
	for _, c := range closers {
		err = multierr.Append(err, c())
	}
	rt.log.Info("Runtime shutdown")
	return err
}

// Wait blocks until the runtime is cancelled, either by a failing stage or by the parent
// context, and returns the first failure.
func (rt *Runtime) Wait() error {
	<-rt.ctx.Done()
	return rt.Err()
}

func (rt *Runtime) fail(stage string, err error) {
	rt.failLock.Lock()
	defer rt.failLock.Unlock()
	if rt.failure != nil {
		return
	}
	rt.failure = err
	rt.log.Errorw("Stage failed, stopping the runtime", zap.String("stage", stage), zap.Error(err))
}

// Err returns the first stage failure, nil if none.
func (rt *Runtime) Err() error {
	rt.failLock.Lock()
	defer rt.failLock.Unlock()
	return rt.failure
}

// Context returns the runtime context.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Done is closed when the runtime is cancelled.
func (rt *Runtime) Done() <-chan struct{} {
	return rt.ctx.Done()
}

// ID returns the runtime id.
func (rt *Runtime) ID() string {
	return rt.id
}

// Clock returns the runtime clock.
func (rt *Runtime) Clock() clock.Clock {
	return rt.clock
}

// Scheduler returns the runtime scheduler.
func (rt *Runtime) Scheduler() *scheduler.Scheduler {
	return rt.scheduler
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *zap.SugaredLogger {
	return rt.log
}

// Defaults returns the default stage capacities.
func (rt *Runtime) Defaults() Defaults {
	return rt.defaults
}

// StageName returns a name unique within the runtime for a stage of the given kind.
func (rt *Runtime) StageName(kind string) string {
	return fmt.Sprintf("%s-%d", kind, rt.stages.Inc())
}
