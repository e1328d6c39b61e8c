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

// Package window implements partitioned windows over a stream of tuples.
//
// A Window is defined entirely by six pluggable values: an insertion policy, a contents policy,
// an evict determiner, a trigger policy, a key function and a list supplier. Each tuple is routed
// to the Partition of its key, and all work on a partition (insert, evict, process) is serialized
// by the partition's own lock. The key map lock is only held to look up or create partitions,
// so different keys never contend with each other.
//
// Insertion into a partition runs, under its lock:
//
//  1. the insertion policy, which may veto the tuple;
//  2. the contents policy, which makes room before the append (it may call Evict);
//  3. the append to the partition contents;
//  4. the trigger policy, which typically calls Process.
//
// Policies are called with the partition lock held and must use Process, Evict, Contents and
// ScheduleEvict on the partition they are handed. Time based policies schedule evictions
// through the Scheduler registered on the window; Close cancels every eviction the window
// scheduled.
package window
