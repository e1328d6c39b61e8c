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

// Package stream provides the push based stream handles and the Runtime that owns the
// goroutines, scheduler and logger of a graph of stages.
//
// A Stream delivers each submitted tuple synchronously to its sinks. Stages that decouple a
// producer from its consumers (isolation queues, splitters, barriers) live in the plumbing
// package and run their consumer goroutines on the Runtime, so that the first failing stage
// cancels the whole graph and Shutdown waits for every goroutine.
package stream
