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
	"github.com/numaproj/edgeflow/pkg/window"
)

// options for the reduce stages.
type options struct {
	// windowOpts are applied to the windows the stage helpers build.
	windowOpts []window.Option
}

type Option func(*options) error

func DefaultOptions() *options {
	return &options{}
}

// WithWindowOptions sets different window options
func WithWindowOptions(opts ...window.Option) Option {
	return func(o *options) error {
		o.windowOpts = append(o.windowOpts, opts...)
		return nil
	}
}
