// Author: momentics <momentics@gmail.com>
//
// Collaborator interfaces the ConnectionFSM dispatches into. None of these
// are implemented by the protocol package itself — the server package
// supplies concrete implementations, keeping routing, MIME tables,
// embedded-asset bundling, and statistics reporting external per the
// engine's scope (SPEC_FULL.md §1).

package api

// Server is the per-listener collaborator the ConnectionFSM calls back
// into for routing, cross-origin policy, and event-loop write-interest
// bookkeeping. A single Server is shared by every Connection it accepted.
type Server interface {
	// StaticPath returns the filesystem root static file requests resolve
	// against. Never empty for a running server.
	StaticPath() string

	// IsCrossOriginAllowed reports whether uri may receive a
	// Sec-WebSocket-Origin response during a Hixie handshake regardless of
	// the request's Origin header.
	IsCrossOriginAllowed(uri string) bool

	// WebSocketHandler looks up the registered handler for uri, or nil if
	// none is bound to that path.
	WebSocketHandler(uri string) WebSocketHandler

	// Handle dispatches req to the registered page-handler chain. The
	// outcome is either a concrete *Response to serialise, or Unhandled()
	// or nil, which fall through to static serving for a non-WebSocket
	// verb and continue the upgrade for a WebSocket verb. A non-nil error
	// is surfaced to the caller as a 500.
	Handle(req *Request) (*Response, error)

	// EmbeddedContent looks up bundled static content for path, returning
	// ok=false if nothing is embedded there.
	EmbeddedContent(path string) (data []byte, ok bool)

	// StatsDocument renders the server's live-statistics document, served
	// at the reserved /_livestats.js path.
	StatsDocument() string

	// DebugDocument renders the server's debug-probe snapshot as JSON,
	// served at the reserved /_debug.json path.
	DebugDocument() string

	// SubscribeToWriteEvents / UnsubscribeFromWriteEvents register or
	// deregister c for writability notifications on the owning event
	// loop; Remove tears down all bookkeeping for c once it finalises.
	SubscribeToWriteEvents(c Connection) error
	UnsubscribeFromWriteEvents(c Connection) error
	Remove(c Connection)

	// CheckThread asserts the caller is running on the event-loop thread
	// that owns this Server's connections; it panics otherwise. Every
	// externally callable Connection method calls this first.
	CheckThread()

	// Logger returns the shared logger new connections should prefix with
	// their own peer-address tag.
	Logger() Logger
}

// Connection is the subset of the ConnectionFSM's surface visible to
// collaborators: enough to send WebSocket frames, inspect headers, and
// manage the connection's lifetime, without exposing FSM internals.
type Connection interface {
	// Send transmits a WebSocket text message.
	Send(text string)
	// SendBinary transmits a WebSocket binary message.
	SendBinary(data []byte)
	// Close initiates a user-requested shutdown of the connection.
	Close()
	// CloseWhenEmpty defers Close until the output buffer has drained.
	CloseWhenEmpty()
	// Credentials returns the opaque credentials attached to the
	// connection's current (or most recent) request.
	Credentials() Credentials
	// Header and HasHeader read the current request's headers.
	Header(name string) string
	HasHeader(name string) bool
}

// WebSocketHandler is the collaborator bound to a Connection once a
// WebSocket upgrade completes.
type WebSocketHandler interface {
	// OnConnect is called exactly once, immediately after the upgrade
	// handshake response has been buffered.
	OnConnect(c Connection)
	// OnData delivers a decoded text message.
	OnData(c Connection, text string)
	// OnBinaryData delivers a decoded binary message.
	OnBinaryData(c Connection, data []byte)
	// OnDisconnect is called exactly once, when the connection finalises,
	// regardless of which side or reason triggered the close. It is not
	// called if OnConnect was never called.
	OnDisconnect(c Connection)
}

// Logger is the minimal structured-diagnostics sink the engine logs
// through. See SPEC_FULL.md §10.1 for why this is the one ambient concern
// built directly on the standard library rather than a third-party
// logging package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	// WithPrefix returns a Logger that prepends prefix to every message,
	// mirroring the teacher's PrefixWrapper decorator.
	WithPrefix(prefix string) Logger
}
