// Package api defines the collaborator contracts the protocol engine is
// driven by and dispatches into: the HTTP/WebSocket data model, the
// server-side registries (page handlers, WebSocket handlers, embedded
// assets), and the small set of cross-cutting interfaces (logger, buffer
// pool) shared between the protocol, reactor, pool, and server packages.
//
// Nothing in this package performs I/O; it exists to keep the protocol
// package free of a dependency on its own host.
package api
