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
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Partition holds the tuples of one key. Insert locks it; Process, Evict, Contents and
// ScheduleEvict expect the caller (a policy, or a processor holding the lock) to hold it.
type Partition[T any, K comparable, L List[T]] struct {
	sync.Mutex
	window   *Window[T, K, L]
	key      K
	contents L
	// removed is set once the partition is detached from its window
	removed atomic.Bool
}

// Key returns the partition key.
func (p *Partition[T, K, L]) Key() K {
	return p.key
}

// Window returns the window the partition belongs to.
func (p *Partition[T, K, L]) Window() *Window[T, K, L] {
	return p.window
}

// Contents returns the backing list. It is only stable while the partition lock is held.
func (p *Partition[T, K, L]) Contents() L {
	return p.contents
}

// Removed reports whether the partition was detached from its window.
func (p *Partition[T, K, L]) Removed() bool {
	return p.removed.Load()
}

func (p *Partition[T, K, L]) insert(tuple T) (bool, error) {
	p.Lock()
	defer p.Unlock()
	if p.removed.Load() {
		return false, errPartitionRemoved
	}
	w := p.window
	defer w.maybeRemove(p)

	if !w.insertion(p, tuple) {
		rejectedCount.WithLabelValues(w.name).Inc()
		return !w.vetoReporting, nil
	}
	if err := w.contents(p, tuple); err != nil {
		return false, err
	}
	p.contents.Append(tuple)
	insertedCount.WithLabelValues(w.name).Inc()
	if err := w.trigger(p, tuple); err != nil {
		return true, err
	}
	return true, nil
}

// Process hands a copy of the contents to the window's partition processor.
// It is a no-op when no processor is registered.
func (p *Partition[T, K, L]) Process() error {
	fn := p.window.PartitionProcessor()
	if fn == nil {
		return nil
	}
	processedCount.WithLabelValues(p.window.name).Inc()
	return fn(p.contents.Items(), p.key)
}

// Evict runs the window's evict determiner. It is a no-op once the partition was removed,
// which stops rescheduling policies.
func (p *Partition[T, K, L]) Evict() error {
	if p.removed.Load() {
		return nil
	}
	before := p.contents.Len()
	err := p.window.evictDeterminer(p)
	if n := before - p.contents.Len(); n > 0 {
		evictedCount.WithLabelValues(p.window.name).Add(float64(n))
	}
	return err
}

// ScheduleEvict runs Evict under the partition lock once delay has elapsed.
func (p *Partition[T, K, L]) ScheduleEvict(delay time.Duration) error {
	w := p.window
	return w.schedule(func() {
		p.Lock()
		defer p.Unlock()
		if err := p.Evict(); err != nil {
			scheduledEvictErrors.WithLabelValues(w.name).Inc()
			w.log.Errorw("Scheduled eviction failed", zap.Any("key", p.key), zap.Error(err))
		}
		w.maybeRemove(p)
	}, delay)
}

// maybeRemove applies the removal policy. The caller holds p's lock.
func (w *Window[T, K, L]) maybeRemove(p *Partition[T, K, L]) {
	if w.removal == nil || p.removed.Load() {
		return
	}
	if w.removal(p.contents.Len()) {
		w.removePartition(p)
	}
}
