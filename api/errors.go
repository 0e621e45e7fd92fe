// Package api
// Author: momentics <momentics@gmail.com>
//
// Sentinel errors shared across the protocol, reactor, and server packages.

package api

import "errors"

var (
	// ErrConnectionClosed is returned by Connection operations attempted
	// after the connection has shut down.
	ErrConnectionClosed = errors.New("seaengine: connection closed")
	// ErrBufferCapExceeded is the unrecoverable condition (§7, error kind
	// 10) triggered when the output buffer would grow past its cap.
	ErrBufferCapExceeded = errors.New("seaengine: output buffer cap exceeded")
	// ErrHeadersTooLarge corresponds to error kind 4 (§7): the header
	// region grew past 64 KiB without a terminating CRLFCRLF.
	ErrHeadersTooLarge = errors.New("seaengine: request headers too large")
	// ErrWrongThread is raised by Server.CheckThread when a collaborator
	// calls into the engine from any goroutine other than the one running
	// its owning event loop.
	ErrWrongThread = errors.New("seaengine: called from outside the owning event-loop thread")
	// ErrNotSupported marks platform or protocol paths this build does not
	// implement (e.g. a write-interest subscription for a connection the
	// Unix reactor listener cannot track).
	ErrNotSupported = errors.New("seaengine: not supported on this platform")
)
