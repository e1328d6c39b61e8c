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

package window

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/numaproj/edgeflow/pkg/shared/logging"
	"github.com/numaproj/edgeflow/pkg/shared/scheduler"
)

var (
	// ErrNoScheduler is returned when a policy schedules an eviction on a window without a scheduler.
	ErrNoScheduler = errors.New("window has no scheduler")

	errPartitionRemoved = errors.New("partition removed")
)

// InsertionPolicy decides whether a tuple is added to a partition.
type InsertionPolicy[T any, K comparable, L List[T]] func(p *Partition[T, K, L], tuple T) bool

// ContentsPolicy runs before a tuple is appended to a partition.
type ContentsPolicy[T any, K comparable, L List[T]] func(p *Partition[T, K, L], tuple T) error

// TriggerPolicy runs after a tuple is appended to a partition.
type TriggerPolicy[T any, K comparable, L List[T]] func(p *Partition[T, K, L], tuple T) error

// EvictDeterminer removes tuples from a partition.
type EvictDeterminer[T any, K comparable, L List[T]] func(p *Partition[T, K, L]) error

// Processor receives a copy of the partition contents and its key.
type Processor[T any, K comparable] func(tuples []T, key K) error

// Scheduler runs time based evictions. *scheduler.Scheduler satisfies it.
type Scheduler interface {
	Schedule(fn func(), delay time.Duration) scheduler.Handle
	Clock() clock.Clock
}

var _ Scheduler = (*scheduler.Scheduler)(nil)

// Window is a set of partitions, one per key, sharing the same policies.
type Window[T any, K comparable, L List[T]] struct {
	name            string
	insertion       InsertionPolicy[T, K, L]
	contents        ContentsPolicy[T, K, L]
	evictDeterminer EvictDeterminer[T, K, L]
	trigger         TriggerPolicy[T, K, L]
	keyFn           func(T) K
	listSupplier    func() L
	vetoReporting   bool
	removal         RemovalPolicy
	log             *zap.SugaredLogger

	// lock guards partitions, it is only held to look up, create or remove a partition
	lock       sync.Mutex
	partitions map[K]*Partition[T, K, L]

	// registered guards processor and scheduler
	registered sync.RWMutex
	processor  Processor[T, K]
	scheduler  Scheduler

	// handlesLock guards the evictions scheduled by this window
	handlesLock sync.Mutex
	handles     map[uint64]scheduler.Handle
	nextHandle  uint64
	closed      bool
}

// New returns a Window built from the six policy values.
func New[T any, K comparable, L List[T]](
	insertion InsertionPolicy[T, K, L],
	contents ContentsPolicy[T, K, L],
	evict EvictDeterminer[T, K, L],
	trigger TriggerPolicy[T, K, L],
	keyFn func(T) K,
	listSupplier func() L,
	opts ...Option,
) (*Window[T, K, L], error) {
	switch {
	case insertion == nil:
		return nil, fmt.Errorf("insertion policy is required")
	case contents == nil:
		return nil, fmt.Errorf("contents policy is required")
	case evict == nil:
		return nil, fmt.Errorf("evict determiner is required")
	case trigger == nil:
		return nil, fmt.Errorf("trigger policy is required")
	case keyFn == nil:
		return nil, fmt.Errorf("key function is required")
	case listSupplier == nil:
		return nil, fmt.Errorf("list supplier is required")
	}
	o := DefaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.log == nil {
		o.log = logging.NewLogger()
	}
	return &Window[T, K, L]{
		name:            o.name,
		insertion:       insertion,
		contents:        contents,
		evictDeterminer: evict,
		trigger:         trigger,
		keyFn:           keyFn,
		listSupplier:    listSupplier,
		vetoReporting:   o.vetoReporting,
		removal:         o.removal,
		log:             o.log.With("window", o.name),
		partitions:      make(map[K]*Partition[T, K, L]),
		scheduler:       o.scheduler,
		handles:         make(map[uint64]scheduler.Handle),
	}, nil
}

// Insert adds a tuple to the partition of its key. It returns false only when the insertion
// policy vetoed the tuple and the window reports vetoes, or when the contents policy failed
// before the append. Errors from policies and the processor are returned unchanged; mutations
// applied before the error are kept.
func (w *Window[T, K, L]) Insert(tuple T) (bool, error) {
	key := w.keyFn(tuple)
	for {
		p := w.getOrCreate(key)
		ok, err := p.insert(tuple)
		if errors.Is(err, errPartitionRemoved) {
			// the partition was detached after the lookup, use the new one
			continue
		}
		return ok, err
	}
}

func (w *Window[T, K, L]) getOrCreate(key K) *Partition[T, K, L] {
	w.lock.Lock()
	defer w.lock.Unlock()
	if p, ok := w.partitions[key]; ok {
		return p
	}
	p := &Partition[T, K, L]{
		window:   w,
		key:      key,
		contents: w.listSupplier(),
	}
	w.partitions[key] = p
	partitionsCount.WithLabelValues(w.name).Set(float64(len(w.partitions)))
	return p
}

// removePartition detaches p if it is still the partition of its key. The caller holds p's lock.
func (w *Window[T, K, L]) removePartition(p *Partition[T, K, L]) {
	w.lock.Lock()
	defer w.lock.Unlock()
	if cur, ok := w.partitions[p.key]; ok && cur == p {
		delete(w.partitions, p.key)
		partitionsCount.WithLabelValues(w.name).Set(float64(len(w.partitions)))
	}
	p.removed.Store(true)
}

// RegisterPartitionProcessor sets the function Process hands partition contents to.
func (w *Window[T, K, L]) RegisterPartitionProcessor(fn Processor[T, K]) {
	w.registered.Lock()
	defer w.registered.Unlock()
	w.processor = fn
}

// PartitionProcessor returns the registered processor, nil if none.
func (w *Window[T, K, L]) PartitionProcessor() Processor[T, K] {
	w.registered.RLock()
	defer w.registered.RUnlock()
	return w.processor
}

// RegisterScheduler sets the scheduler used by time based policies.
func (w *Window[T, K, L]) RegisterScheduler(s Scheduler) {
	w.registered.Lock()
	defer w.registered.Unlock()
	w.scheduler = s
}

// Scheduler returns the registered scheduler, nil if none.
func (w *Window[T, K, L]) Scheduler() Scheduler {
	w.registered.RLock()
	defer w.registered.RUnlock()
	return w.scheduler
}

// KeyFn returns the key function.
func (w *Window[T, K, L]) KeyFn() func(T) K {
	return w.keyFn
}

// Name returns the window name.
func (w *Window[T, K, L]) Name() string {
	return w.name
}

// Partitions returns a snapshot of the key to partition map.
func (w *Window[T, K, L]) Partitions() map[K]*Partition[T, K, L] {
	w.lock.Lock()
	defer w.lock.Unlock()
	out := make(map[K]*Partition[T, K, L], len(w.partitions))
	for k, p := range w.partitions {
		out[k] = p
	}
	return out
}

// Partition returns the partition of key.
func (w *Window[T, K, L]) Partition(key K) (*Partition[T, K, L], bool) {
	w.lock.Lock()
	defer w.lock.Unlock()
	p, ok := w.partitions[key]
	return p, ok
}

// schedule runs fn after delay and tracks the handle until fn starts or the window is closed.
func (w *Window[T, K, L]) schedule(fn func(), delay time.Duration) error {
	s := w.Scheduler()
	if s == nil {
		return ErrNoScheduler
	}
	w.handlesLock.Lock()
	if w.closed {
		w.handlesLock.Unlock()
		w.log.Debugw("Window is closed, not scheduling eviction", zap.Duration("delay", delay))
		return nil
	}
	w.nextHandle++
	id := w.nextHandle
	w.handles[id] = nil
	w.handlesLock.Unlock()

	h := s.Schedule(func() {
		w.handlesLock.Lock()
		_, live := w.handles[id]
		delete(w.handles, id)
		w.handlesLock.Unlock()
		if live {
			fn()
		}
	}, delay)

	w.handlesLock.Lock()
	if _, ok := w.handles[id]; ok {
		w.handles[id] = h
	}
	w.handlesLock.Unlock()
	return nil
}

// PendingEvictions returns the number of scheduled evictions that have not started.
func (w *Window[T, K, L]) PendingEvictions() int {
	w.handlesLock.Lock()
	defer w.handlesLock.Unlock()
	return len(w.handles)
}

// Close cancels every pending eviction scheduled by the window. Evictions requested after
// Close are dropped. Inserts are still accepted.
func (w *Window[T, K, L]) Close() error {
	w.handlesLock.Lock()
	defer w.handlesLock.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	cancelled := 0
	for id, h := range w.handles {
		if h != nil && h.Cancel() {
			cancelled++
		}
		delete(w.handles, id)
	}
	w.log.Infow("Window closed", zap.Int("cancelledEvictions", cancelled))
	return nil
}
