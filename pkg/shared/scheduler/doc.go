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

// Package scheduler provides the delayed task service used by time based window policies.
//
// Every task runs on its own goroutine once its delay elapses. Tasks are tracked until they
// start so they can be cancelled individually through their Handle, or all at once with Stop.
// Time comes from a clock.Clock, which lets tests drive the scheduler with clock.NewMock().
package scheduler
