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

// Package plumbing provides the stages that make a stream graph safe under concurrent,
// asynchronous delivery: isolation queues, pressure relief, channel splitting, barriers,
// gates and valves, and the parallel and concurrent pipeline builders composed from them.
//
// Every blocking point (queue put, semaphore acquire, barrier take, delay) returns when the
// caller context or the runtime is done, with an error wrapping the cause. Backpressure is
// blocking, never an error.
package plumbing
