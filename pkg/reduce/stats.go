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

package reduce

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// Result is a numeric aggregate of a partition.
type Result[K comparable] struct {
	Key   K       `json:"key"`
	Value float64 `json:"value"`
	// Count is the number of tuples the value was computed from.
	Count int `json:"count"`
}

// Statistic returns an Aggregator applying fn to the values of a partition. Empty partitions
// emit nothing.
func Statistic[T any, K comparable](value func(T) float64, fn func(stats.Float64Data) (float64, error)) Aggregator[T, K, Result[K]] {
	return func(tuples []T, key K) (Result[K], bool, error) {
		if len(tuples) == 0 {
			return Result[K]{}, false, nil
		}
		data := make(stats.Float64Data, len(tuples))
		for i, t := range tuples {
			data[i] = value(t)
		}
		v, err := fn(data)
		if err != nil {
			return Result[K]{}, false, err
		}
		return Result[K]{Key: key, Value: v, Count: len(tuples)}, true, nil
	}
}

func Mean[T any, K comparable](value func(T) float64) Aggregator[T, K, Result[K]] {
	return Statistic[T, K](value, stats.Mean)
}

func Sum[T any, K comparable](value func(T) float64) Aggregator[T, K, Result[K]] {
	return Statistic[T, K](value, stats.Sum)
}

func Min[T any, K comparable](value func(T) float64) Aggregator[T, K, Result[K]] {
	return Statistic[T, K](value, stats.Min)
}

func Max[T any, K comparable](value func(T) float64) Aggregator[T, K, Result[K]] {
	return Statistic[T, K](value, stats.Max)
}

// StdDev is the population standard deviation.
func StdDev[T any, K comparable](value func(T) float64) Aggregator[T, K, Result[K]] {
	return Statistic[T, K](value, stats.StandardDeviation)
}

// Percentile returns the p-th percentile, 0 < p <= 100.
func Percentile[T any, K comparable](p float64, value func(T) float64) (Aggregator[T, K, Result[K]], error) {
	if p <= 0 || p > 100 {
		return nil, fmt.Errorf("percentile must be in (0, 100], got %v", p)
	}
	return Statistic[T, K](value, func(data stats.Float64Data) (float64, error) {
		return stats.Percentile(data, p)
	}), nil
}
