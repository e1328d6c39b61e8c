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

package shuffle

import (
	"fmt"

	"github.com/spaolacci/murmur3"
)

// Shuffle assigns keys to one of a fixed number of channels
type Shuffle struct {
	channels uint64
}

// NewShuffle returns a shuffle over the given number of channels.
func NewShuffle(channels int) (*Shuffle, error) {
	if channels < 1 {
		return nil, fmt.Errorf("shuffle needs at least 1 channel, got %d", channels)
	}
	return &Shuffle{channels: uint64(channels)}, nil
}

// Channels returns the number of channels.
func (s *Shuffle) Channels() int {
	return int(s.channels)
}

// Channel returns the channel of key. The same key always maps to the same channel.
func (s *Shuffle) Channel(key string) int {
	// hash of the key modulo the channel count decides the channel
	return int(generateHash(key) % s.channels)
}

// ChannelOf returns the channel of any comparable key, formatted with fmt when it is not a string.
func ChannelOf[K comparable](s *Shuffle, key K) int {
	switch k := any(key).(type) {
	case string:
		return s.Channel(k)
	default:
		return s.Channel(fmt.Sprint(k))
	}
}

// ShuffleTuples groups tuples by the channel of their key.
func ShuffleTuples[T any, K comparable](s *Shuffle, tuples []T, keyFn func(T) K) map[int][]T {
	out := make(map[int][]T)
	for _, t := range tuples {
		ch := ChannelOf(s, keyFn(t))
		out[ch] = append(out[ch], t)
	}
	return out
}

func generateHash(key string) uint64 {
	return murmur3.Sum64([]byte(key))
}
