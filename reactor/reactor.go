// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface driving the ConnectionFSM: one
// goroutine calls Poll in a loop, and every fd it reports ready invokes the
// FDCallback registered for it.

package reactor

import "errors"

// ErrUnknownFD is returned by the Windows reactor's Modify for an fd that
// was never successfully Registered. Unregister never returns it, and the
// epoll reactor's Modify reports the kernel's error instead.
var ErrUnknownFD = errors.New("reactor: unknown file descriptor")

// FDEventType is a bitmask of the conditions Poll reports for a file
// descriptor.
type FDEventType uint8

const (
	EventRead FDEventType = 1 << iota
	EventWrite
	EventError
)

// FDCallback is invoked by Poll for every ready file descriptor, with the
// set of conditions that fired. Implementations must not block; the
// reactor calls back synchronously from within Poll.
type FDCallback func(fd uintptr, events FDEventType)

// EventReactor multiplexes readiness notifications for a set of
// non-blocking file descriptors, one accepted connection's socket per fd.
type EventReactor interface {
	// Register begins watching fd for events, invoking cb whenever any of
	// them fire.
	Register(fd uintptr, events FDEventType, cb FDCallback) error
	// Modify changes the event mask a previously registered fd is watched
	// for, without replacing its callback. Connections use this to drop
	// EventWrite once their output buffer drains, and re-arm it when a
	// Send call finds the fast path blocked.
	Modify(fd uintptr, events FDEventType) error
	// Unregister stops watching fd. Safe to call on an fd that was never
	// registered.
	Unregister(fd uintptr) error
	// Poll blocks up to timeoutMs (or indefinitely, if negative) and
	// dispatches callbacks for every fd that became ready.
	Poll(timeoutMs int) error
	// Close releases the reactor's underlying OS handle.
	Close() error
}
