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
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// LastNProcessOnInsert returns a sliding window over the last count tuples of each key,
// processed on every insert.
func LastNProcessOnInsert[T any, K comparable](count int, keyFn func(T) K, opts ...Option) (*Window[T, K, *SliceList[T]], error) {
	if count < 1 {
		return nil, fmt.Errorf("window count must be at least 1, got %d", count)
	}
	return New[T, K, *SliceList[T]](
		AlwaysInsert[T, K, *SliceList[T]](),
		CountContentsPolicy[T, K, *SliceList[T]](count),
		EvictOldest[T, K, *SliceList[T]](),
		ProcessOnInsert[T, K, *SliceList[T]](),
		keyFn,
		NewSliceList[T],
		opts...,
	)
}

// LastNBatch returns a tumbling window that processes then clears each key's partition
// every count tuples.
func LastNBatch[T any, K comparable](count int, keyFn func(T) K, opts ...Option) (*Window[T, K, *SliceList[T]], error) {
	if count < 1 {
		return nil, fmt.Errorf("window count must be at least 1, got %d", count)
	}
	return New[T, K, *SliceList[T]](
		AlwaysInsert[T, K, *SliceList[T]](),
		DoNothing[T, K, *SliceList[T]],
		EvictAll[T, K, *SliceList[T]](),
		ProcessWhenFullAndEvict[T, K, *SliceList[T]](count),
		keyFn,
		NewSliceList[T],
		opts...,
	)
}

// LastTimeProcessOnInsert returns a sliding window over the tuples of the last d, processed on
// every insert and whenever tuples age out. The clock must be the clock of the scheduler
// registered on the window.
func LastTimeProcessOnInsert[T any, K comparable](d time.Duration, keyFn func(T) K, clk clock.Clock, opts ...Option) (*Window[T, K, *InsertionTimeList[T]], error) {
	if d <= 0 {
		return nil, fmt.Errorf("window duration must be positive, got %v", d)
	}
	return New[T, K, *InsertionTimeList[T]](
		AlwaysInsert[T, K, *InsertionTimeList[T]](),
		ScheduleEvictIfEmpty[T, K, *InsertionTimeList[T]](d),
		EvictOlderWithProcess[T, K](d),
		ProcessOnInsert[T, K, *InsertionTimeList[T]](),
		keyFn,
		InsertionTimeListSupplier[T](clk),
		opts...,
	)
}

// TimeBatch returns a tumbling window that processes then clears each key's partition every d,
// starting with the first tuple of the key.
func TimeBatch[T any, K comparable](d time.Duration, keyFn func(T) K, opts ...Option) (*Window[T, K, *SliceList[T]], error) {
	if d <= 0 {
		return nil, fmt.Errorf("window duration must be positive, got %v", d)
	}
	return New[T, K, *SliceList[T]](
		AlwaysInsert[T, K, *SliceList[T]](),
		ScheduleEvictOnFirstInsert[T, K, *SliceList[T]](d),
		EvictAllAndScheduleEvictWithProcess[T, K, *SliceList[T]](d),
		DoNothing[T, K, *SliceList[T]],
		keyFn,
		NewSliceList[T],
		opts...,
	)
}
