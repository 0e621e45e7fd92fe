package server

import (
	"fmt"
	"sync"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/control"
)

// PageHandlerFunc is a registered page handler: the three-way dispatch
// outcome a ConnectionFSM consults via api.Server.Handle (SPEC_FULL.md
// §4.5). Return api.Unhandled() to fall through to static file serving.
type PageHandlerFunc func(req *api.Request) (*api.Response, error)

// mux is the routing table backing api.Server's Handle/WebSocketHandler/
// EmbeddedContent/StatsDocument methods, grounded on the teacher's
// HandlerChain/Middleware shape (server/run.go) narrowed to a plain path
// registry — this engine dispatches by exact request URI, not by a
// middleware pipeline.
type mux struct {
	mu        sync.RWMutex
	pages     map[string]PageHandlerFunc
	sockets   map[string]api.WebSocketHandler
	assets    map[string][]byte
}

func newMux() *mux {
	return &mux{
		pages:   make(map[string]PageHandlerFunc),
		sockets: make(map[string]api.WebSocketHandler),
		assets:  make(map[string][]byte),
	}
}

func (m *mux) handlePage(requestURI string, fn PageHandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[requestURI] = fn
}

func (m *mux) handleWebSocket(requestURI string, handler api.WebSocketHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sockets[requestURI] = handler
}

func (m *mux) embed(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[path] = data
}

// handle looks up and calls the page handler registered for req's URI. A
// URI with no registered handler returns (nil, nil). The connection treats
// nil and api.Unhandled() alike: dispatch() falls through to static
// serving for both, and a WebSocket-verb Request continues the upgrade for
// both.
func (m *mux) handle(req *api.Request) (*api.Response, error) {
	m.mu.RLock()
	fn, ok := m.pages[req.RequestURI]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return fn(req)
}

func (m *mux) webSocketHandler(requestURI string) api.WebSocketHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sockets[requestURI]
}

func (m *mux) embeddedContent(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.assets[path]
	return data, ok
}

// statsDocument renders the live JavaScript document served at
// /_livestats.js, grounded on original_source's /livestats.js handler:
// a small JS snippet assigning the current counters to a global object,
// intended to be polled by a dashboard page via periodic re-fetch.
func statsDocument(pool api.BufferPoolStats, metrics control.Snapshot) string {
	return fmt.Sprintf(
		"var seaengineStats = {\n"+
			"  activeConnections: %d,\n"+
			"  totalConnections: %d,\n"+
			"  bytesReceived: %d,\n"+
			"  bytesSent: %d,\n"+
			"  hixieUpgrades: %d,\n"+
			"  hybiUpgrades: %d,\n"+
			"  closedByServer: %d,\n"+
			"  closedByPeer: %d,\n"+
			"  buffersAllocated: %d,\n"+
			"  buffersReused: %d,\n"+
			"  buffersInUse: %d\n"+
			"};\n",
		metrics.ActiveConnections, metrics.TotalConnections,
		metrics.BytesReceived, metrics.BytesSent,
		metrics.HixieUpgrades, metrics.HybiUpgrades,
		metrics.ClosedByServer, metrics.ClosedByPeer,
		pool.Allocated, pool.Reused, pool.InUse,
	)
}
