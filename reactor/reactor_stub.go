//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub reactor for platforms this engine does not support an event loop
// on.

package reactor

import "errors"

// NewReactor returns an error; no reactor is implemented for this
// platform.
func NewReactor() (EventReactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}
