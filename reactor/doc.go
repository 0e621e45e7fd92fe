// Package reactor
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event-reactor abstraction and its epoll (Linux) and
// best-effort IOCP (Windows) implementations, grounded on the teacher's
// reactor package. The teacher carried two incompatible reactor shapes
// side by side — a Register/Wait/Close interface returning opaque Events
// (reactor.go/reactor_linux.go/reactor_windows.go) and a separate
// Register/Unregister/Poll callback interface whose FDEventType/FDCallback
// types were never actually declared (epoll_reactor.go/iocp_reactor.go).
// This package keeps the callback shape — it is the one the ConnectionFSM
// actually needs, since a single Poll call must fan out to every ready
// connection's own read/write handlers without the caller re-deriving
// which fd fired — and completes it with real type declarations. See
// DESIGN.md "reactor" entry.
package reactor
