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

	"go.uber.org/multierr"
)

// AlwaysInsert accepts every tuple.
func AlwaysInsert[T any, K comparable, L List[T]]() InsertionPolicy[T, K, L] {
	return func(*Partition[T, K, L], T) bool {
		return true
	}
}

// DoNothing is a contents or trigger policy without effect.
func DoNothing[T any, K comparable, L List[T]](*Partition[T, K, L], T) error {
	return nil
}

// CountContentsPolicy evicts before the append once the partition holds n tuples.
func CountContentsPolicy[T any, K comparable, L List[T]](n int) ContentsPolicy[T, K, L] {
	return func(p *Partition[T, K, L], _ T) error {
		if p.contents.Len() >= n {
			return p.Evict()
		}
		return nil
	}
}

// EvictOldest removes the oldest tuple.
func EvictOldest[T any, K comparable, L List[T]]() EvictDeterminer[T, K, L] {
	return func(p *Partition[T, K, L]) error {
		p.contents.RemoveFirst()
		return nil
	}
}

// EvictAll removes every tuple.
func EvictAll[T any, K comparable, L List[T]]() EvictDeterminer[T, K, L] {
	return func(p *Partition[T, K, L]) error {
		p.contents.Clear()
		return nil
	}
}

// ProcessOnInsert processes the partition after every append.
func ProcessOnInsert[T any, K comparable, L List[T]]() TriggerPolicy[T, K, L] {
	return func(p *Partition[T, K, L], _ T) error {
		return p.Process()
	}
}

// ProcessWhenFullAndEvict processes then evicts the partition once it holds n tuples.
func ProcessWhenFullAndEvict[T any, K comparable, L List[T]](n int) TriggerPolicy[T, K, L] {
	return func(p *Partition[T, K, L], _ T) error {
		if p.contents.Len() < n {
			return nil
		}
		if err := p.Process(); err != nil {
			return err
		}
		return p.Evict()
	}
}

// ScheduleEvictIfEmpty schedules an eviction d from now when a tuple arrives on an empty partition.
func ScheduleEvictIfEmpty[T any, K comparable, L List[T]](d time.Duration) ContentsPolicy[T, K, L] {
	return func(p *Partition[T, K, L], _ T) error {
		if p.contents.Len() == 0 {
			return p.ScheduleEvict(d)
		}
		return nil
	}
}

// ScheduleEvictOnFirstInsert schedules an eviction d after the first tuple of each partition.
// Later tuples, even on an emptied partition, schedule nothing.
func ScheduleEvictOnFirstInsert[T any, K comparable, L List[T]](d time.Duration) ContentsPolicy[T, K, L] {
	var seen sync.Map
	return func(p *Partition[T, K, L], _ T) error {
		if _, loaded := seen.LoadOrStore(p, struct{}{}); loaded {
			return nil
		}
		// a new partition may replace a removed one
		seen.Range(func(k, _ any) bool {
			if k.(*Partition[T, K, L]).Removed() {
				seen.Delete(k)
			}
			return true
		})
		return p.ScheduleEvict(d)
	}
}

// EvictOlderWithProcess evicts the tuples inserted more than d ago, processes the partition,
// and reschedules itself for when the oldest remaining tuple ages out.
func EvictOlderWithProcess[T any, K comparable](d time.Duration) EvictDeterminer[T, K, *InsertionTimeList[T]] {
	return func(p *Partition[T, K, *InsertionTimeList[T]]) error {
		tuples := p.contents
		tuples.EvictOlderThan(tuples.Now().Add(-d))
		err := p.Process()
		if tuples.Len() > 0 {
			err = multierr.Append(err, p.ScheduleEvict(tuples.NextEvictDelay(d)))
		}
		return err
	}
}

// EvictAllAndScheduleEvictWithProcess processes the partition, clears it and schedules the
// next eviction d from now, whatever the contents.
func EvictAllAndScheduleEvictWithProcess[T any, K comparable, L List[T]](d time.Duration) EvictDeterminer[T, K, L] {
	return func(p *Partition[T, K, L]) error {
		err := p.Process()
		p.contents.Clear()
		return multierr.Append(err, p.ScheduleEvict(d))
	}
}
