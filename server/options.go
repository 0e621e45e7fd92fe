package server

import "github.com/lattice-systems/seaengine/api"

// Option customizes a Server at construction time, mirroring the
// teacher's ServerOption functional-option idiom (server/options.go).
type Option func(*Server)

// WithListenAddr overrides the TCP bind address.
func WithListenAddr(addr string) Option {
	return func(s *Server) { s.cfg.ListenAddr = addr }
}

// WithCrossOriginAllowed marks uris as exempt from the Hixie cross-origin
// Sec-WebSocket-Origin echo policy (SPEC_FULL.md §4.2).
func WithCrossOriginAllowed(uris ...string) Option {
	return func(s *Server) { s.cfg.CrossOriginAllowed = append(s.cfg.CrossOriginAllowed, uris...) }
}

// WithPageHandler registers fn to handle requestURI, taking precedence
// over static file serving (api.Unhandled() falls through).
func WithPageHandler(requestURI string, fn PageHandlerFunc) Option {
	return func(s *Server) { s.mux.handlePage(requestURI, fn) }
}

// WithWebSocketHandler binds handler to every WebSocket upgrade whose
// request URI is requestURI.
func WithWebSocketHandler(requestURI string, handler api.WebSocketHandler) Option {
	return func(s *Server) { s.mux.handleWebSocket(requestURI, handler) }
}

// WithEmbeddedAsset registers data to be served verbatim for path,
// ahead of static file and error-document lookups (e.g. "/_error.html",
// "/favicon.ico").
func WithEmbeddedAsset(path string, data []byte) Option {
	return func(s *Server) { s.mux.embed(path, data) }
}
