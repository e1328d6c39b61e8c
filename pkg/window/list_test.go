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
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceList(t *testing.T) {
	l := NewSliceList[int]()
	_, ok := l.RemoveFirst()
	assert.False(t, ok)
	for i := 0; i < 3; i++ {
		l.Append(i)
	}
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 1, l.At(1))

	items := l.Items()
	items[0] = 100
	assert.Equal(t, 0, l.At(0), "Items must return a copy")

	v, ok := l.RemoveFirst()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, []int{1, 2}, l.Items())

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Items())
}

func TestInsertionTimeList_EvictOlderThan(t *testing.T) {
	mock := clock.NewMock()
	l := NewInsertionTimeList[string](mock)
	start := mock.Now()
	for _, v := range []string{"a", "b", "c", "d"} {
		l.Append(v)
		mock.Add(time.Second)
	}

	tests := []struct {
		name    string
		cutoff  time.Time
		evicted int
		left    []string
	}{
		{"before first", start.Add(-time.Millisecond), 0, []string{"a", "b", "c", "d"}},
		{"equal to first", start, 1, []string{"b", "c", "d"}},
		{"between", start.Add(1500 * time.Millisecond), 1, []string{"c", "d"}},
		{"after last", start.Add(time.Hour), 2, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.evicted, l.EvictOlderThan(tt.cutoff))
			assert.Equal(t, tt.left, l.Items())
		})
	}
}

func TestInsertionTimeList_KeepsTimestampsInLockstep(t *testing.T) {
	mock := clock.NewMock()
	l := NewInsertionTimeList[int](mock)
	start := mock.Now()
	for i := 0; i < 5; i++ {
		l.Append(i)
		mock.Add(time.Second)
	}
	l.EvictOlderThan(start.Add(time.Second))
	require.Equal(t, 3, l.Len())
	for i := 0; i < l.Len(); i++ {
		assert.Equal(t, i+2, l.At(i))
		assert.Equal(t, start.Add(time.Duration(i+2)*time.Second), l.TimeAt(i))
	}

	v, ok := l.RemoveFirst()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, start.Add(3*time.Second), l.TimeAt(0))
}

func TestInsertionTimeList_NextEvictDelay(t *testing.T) {
	mock := clock.NewMock()
	l := NewInsertionTimeList[int](mock)
	assert.Equal(t, time.Second, l.NextEvictDelay(time.Second))

	l.Append(1)
	mock.Add(300 * time.Millisecond)
	l.Append(2)
	assert.Equal(t, 700*time.Millisecond, l.NextEvictDelay(time.Second))

	mock.Add(2 * time.Second)
	assert.Equal(t, time.Duration(0), l.NextEvictDelay(time.Second))
}

func TestInsertionTimeList_Insert(t *testing.T) {
	l := NewInsertionTimeList[int](clock.NewMock())
	assert.NoError(t, l.Insert(0, 1))
	assert.NoError(t, l.Insert(1, 2))
	err := l.Insert(0, 3)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.ErrorIs(t, l.Insert(5, 3), ErrUnsupportedOperation)
	assert.Equal(t, []int{1, 2}, l.Items())
}

func TestInsertionTimeList_Iterator(t *testing.T) {
	mock := clock.NewMock()
	l := NewInsertionTimeList[int](mock)
	start := mock.Now()
	for i := 0; i < 6; i++ {
		l.Append(i)
		mock.Add(time.Second)
	}

	it := l.Iterator()
	assert.ErrorIs(t, it.Remove(), ErrIllegalState)
	for it.Next() {
		if it.Value()%2 == 0 {
			assert.NoError(t, it.Remove())
			assert.ErrorIs(t, it.Remove(), ErrIllegalState)
		}
	}
	assert.Equal(t, []int{1, 3, 5}, l.Items())

	var times []time.Time
	it = l.Iterator()
	for it.Next() {
		times = append(times, it.Time())
	}
	assert.Equal(t, []time.Time{start.Add(time.Second), start.Add(3 * time.Second), start.Add(5 * time.Second)}, times)

	l.Clear()
	assert.False(t, l.Iterator().Next())
}
