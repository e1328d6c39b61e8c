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

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/numaproj/edgeflow/pkg/shared/logging"
)

// Handle is a cancellable reference to a scheduled task.
type Handle interface {
	// Cancel prevents the task from running. It returns false if the task already started
	// or was cancelled before.
	Cancel() bool
}

type task struct {
	fn    func()
	timer *clock.Timer
}

// Scheduler runs tasks after a delay. It is safe for concurrent use.
type Scheduler struct {
	sync.Mutex
	name    string
	clock   clock.Clock
	tasks   map[uint64]*task
	nextID  uint64
	stopped bool
	log     *zap.SugaredLogger
}

// New returns a Scheduler.
func New(ctx context.Context, opts ...Option) (*Scheduler, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return &Scheduler{
		name:  o.name,
		clock: o.clock,
		tasks: make(map[uint64]*task),
		log:   logging.FromContext(ctx).With("scheduler", o.name),
	}, nil
}

// Schedule runs fn once delay has elapsed. A negative delay is treated as zero.
// Scheduling on a stopped scheduler returns a handle that never runs.
func (s *Scheduler) Schedule(fn func(), delay time.Duration) Handle {
	if delay < 0 {
		delay = 0
	}
	s.Lock()
	defer s.Unlock()
	if s.stopped {
		s.log.Debugw("Scheduler is stopped, dropping task", zap.Duration("delay", delay))
		return stoppedHandle{}
	}
	s.nextID++
	id := s.nextID
	t := &task{fn: fn}
	s.tasks[id] = t
	// the timer callback always runs on its own goroutine, so it cannot re-enter this lock
	t.timer = s.clock.AfterFunc(delay, func() { s.run(id) })
	pendingTasks.WithLabelValues(s.name).Set(float64(len(s.tasks)))
	return &taskHandle{scheduler: s, id: id}
}

// ScheduleWithFixedDelay runs fn after initialDelay, then again delay after each run completes,
// until the returned handle is cancelled or the scheduler is stopped.
func (s *Scheduler) ScheduleWithFixedDelay(fn func(), initialDelay, delay time.Duration) Handle {
	return s.schedulePeriodic(fn, initialDelay, func(time.Time) (time.Duration, bool) {
		return delay, true
	})
}

// ScheduleCron runs fn at every activation of a standard cron spec (including descriptors
// such as "@every 1m"), evaluated against the scheduler clock.
func (s *Scheduler) ScheduleCron(spec string, fn func()) (Handle, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cron spec %q: %w", spec, err)
	}
	next := func(now time.Time) (time.Duration, bool) {
		at := sched.Next(now)
		if at.IsZero() {
			return 0, false
		}
		return at.Sub(now), true
	}
	first, ok := next(s.clock.Now())
	if !ok {
		return nil, fmt.Errorf("cron spec %q never activates", spec)
	}
	return s.schedulePeriodic(fn, first, next), nil
}

func (s *Scheduler) schedulePeriodic(fn func(), first time.Duration, next func(now time.Time) (time.Duration, bool)) Handle {
	h := &periodicHandle{}
	var tick func()
	tick = func() {
		fn()
		h.Lock()
		defer h.Unlock()
		if h.cancelled {
			return
		}
		d, ok := next(s.clock.Now())
		if !ok {
			h.current = nil
			return
		}
		h.current = s.Schedule(tick, d)
	}
	h.Lock()
	h.current = s.Schedule(tick, first)
	h.Unlock()
	return h
}

func (s *Scheduler) run(id uint64) {
	s.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
		pendingTasks.WithLabelValues(s.name).Set(float64(len(s.tasks)))
	}
	s.Unlock()
	if !ok {
		return
	}
	executedTasks.WithLabelValues(s.name).Inc()
	t.fn()
}

func (s *Scheduler) cancel(id uint64) bool {
	s.Lock()
	defer s.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	delete(s.tasks, id)
	t.timer.Stop()
	cancelledTasks.WithLabelValues(s.name).Inc()
	pendingTasks.WithLabelValues(s.name).Set(float64(len(s.tasks)))
	return true
}

// Pending returns the number of tasks waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.Lock()
	defer s.Unlock()
	return len(s.tasks)
}

// Clock returns the clock delays are measured with.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// Stop cancels every pending task. Tasks scheduled afterwards never run.
// Tasks that already started are not interrupted.
func (s *Scheduler) Stop() {
	s.Lock()
	defer s.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for id, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, id)
		cancelledTasks.WithLabelValues(s.name).Inc()
	}
	pendingTasks.WithLabelValues(s.name).Set(0)
	s.log.Info("Scheduler stopped")
}

type taskHandle struct {
	scheduler *Scheduler
	id        uint64
}

func (h *taskHandle) Cancel() bool {
	return h.scheduler.cancel(h.id)
}

type periodicHandle struct {
	sync.Mutex
	current   Handle
	cancelled bool
}

func (h *periodicHandle) Cancel() bool {
	h.Lock()
	defer h.Unlock()
	if h.cancelled {
		return false
	}
	h.cancelled = true
	if h.current != nil {
		h.current.Cancel()
	}
	return true
}

type stoppedHandle struct{}

func (stoppedHandle) Cancel() bool { return false }
