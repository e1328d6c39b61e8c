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

package plumbing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned by stage constructors for an invalid configuration.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrChannelNotBusy is returned when a channel that is not in use is released.
	ErrChannelNotBusy = errors.New("channel is not busy")
	// ErrNoFreeChannel is returned when a permit was granted but every channel is busy.
	ErrNoFreeChannel = errors.New("no free channel")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
