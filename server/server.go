package server

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/control"
	"github.com/lattice-systems/seaengine/pool"
	"github.com/lattice-systems/seaengine/protocol"
)

// Server is the api.Server implementation: the routing table, runtime
// settings, metrics, and the connection registry a running accept/poll
// loop drives. Grounded on the teacher's server.Server facade
// (server/types.go, server/server.go) stripped of the NUMA/executor/
// affinity machinery this engine's domain has no use for.
type Server struct {
	cfg     *Config
	mux     *mux
	configs *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	logger  api.Logger
	bufPool api.BufferPool

	// loopMu guards the single-threaded-dispatch invariant: every call
	// that must run on the owning event-loop thread is made while loopMu
	// is held by the loop driver. CheckThread verifies this by probing
	// TryLock rather than by tracking a goroutine identity, since Go
	// provides no supported way to do the latter.
	loopMu sync.Mutex

	connMu sync.Mutex
	conns  map[api.Connection]struct{}

	shutdownCh chan struct{}
	doneCh     chan struct{}
	addrCh     chan struct{}

	listener platformListener
}

// platformListener is the accept-loop collaborator; its concrete type is
// chosen per build tag (raw epoll-driven on Unix, a portable net.Listener
// fallback elsewhere — see listener_unix.go / listener_fallback.go).
type platformListener interface {
	run(s *Server)
	shutdown() error
	addr() string
}

// New constructs a Server from cfg (or DefaultConfig("./public") if nil) plus any
// Options, wiring a fresh ConfigStore, MetricsRegistry, stdlib-backed
// Logger, and pool.BufferPool the way NewServer wires its teacher
// equivalents' control/pool/adapters collaborators.
func New(cfg *Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = DefaultConfig("./public")
	}
	s := &Server{
		cfg:        cfg,
		mux:        newMux(),
		configs:    control.NewConfigStore(cfg.settings()),
		metrics:    control.NewMetricsRegistry(),
		debug:      control.NewDebugProbes(),
		logger:     control.NewLogger(),
		bufPool:    pool.NewBufferPool(),
		conns:      make(map[api.Connection]struct{}),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		addrCh:     make(chan struct{}),
	}
	control.RegisterPlatformProbes(s.debug)
	s.debug.RegisterProbe("connections.active", func() any {
		s.connMu.Lock()
		defer s.connMu.Unlock()
		return len(s.conns)
	})
	s.debug.RegisterProbe("metrics", func() any { return s.metrics.GetSnapshot() })
	s.debug.RegisterProbe("pool", func() any { return s.bufPool.Stats() })
	for _, o := range opts {
		o(s)
	}
	s.configs.SetSettings(s.cfg.settings())
	return s
}

// Run binds the listener and blocks, driving the accept/poll loop until
// Shutdown is called or an unrecoverable listener error occurs.
func (s *Server) Run() error {
	lst, err := newPlatformListener(s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen %q: %w", s.cfg.ListenAddr, err)
	}
	s.listener = lst
	close(s.addrCh)
	s.logger.Info("listening on %s", lst.addr())
	defer close(s.doneCh)
	lst.run(s)
	return nil
}

// ListenAddr returns the address the listener actually bound to (useful
// when Config.ListenAddr ends in ":0"), or "" if Run has not finished
// binding the listener yet.
func (s *Server) ListenAddr() string {
	select {
	case <-s.addrCh:
		return s.listener.addr()
	default:
		return ""
	}
}

// Shutdown signals the accept/poll loop to stop and closes the listener.
// It does not wait for in-flight connections to drain; callers that need
// that should watch Done().
func (s *Server) Shutdown() error {
	select {
	case <-s.shutdownCh:
	default:
		close(s.shutdownCh)
	}
	if s.listener != nil {
		return s.listener.shutdown()
	}
	return nil
}

// Done returns a channel closed once Run has returned.
func (s *Server) Done() <-chan struct{} { return s.doneCh }

func (s *Server) stopping() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

func (s *Server) trackConnection(c api.Connection) {
	s.connMu.Lock()
	s.conns[c] = struct{}{}
	s.connMu.Unlock()
}

// --- api.Server -----------------------------------------------------

func (s *Server) StaticPath() string { return s.configs.Snapshot().StaticPath }

func (s *Server) IsCrossOriginAllowed(uri string) bool { return s.configs.IsCrossOriginAllowed(uri) }

func (s *Server) WebSocketHandler(uri string) api.WebSocketHandler { return s.mux.webSocketHandler(uri) }

func (s *Server) Handle(req *api.Request) (*api.Response, error) { return s.mux.handle(req) }

func (s *Server) EmbeddedContent(path string) ([]byte, bool) { return s.mux.embeddedContent(path) }

func (s *Server) StatsDocument() string {
	return statsDocument(s.bufPool.Stats(), s.metrics.GetSnapshot())
}

// DebugDocument renders every registered debug probe's current value as a
// JSON object, served at /_debug.json.
func (s *Server) DebugDocument() string {
	data, err := json.Marshal(s.debug.DumpState())
	if err != nil {
		s.logger.Error("marshal debug document: %v", err)
		return "{}"
	}
	return string(data)
}

// SubscribeToWriteEvents / UnsubscribeFromWriteEvents are implemented per
// platform (epoll Modify on Unix; a no-op on the blocking-socket
// fallback, where every Write already runs to completion or error
// synchronously) — see listener_unix.go / listener_fallback.go.

func (s *Server) Remove(c api.Connection) {
	s.connMu.Lock()
	delete(s.conns, c)
	s.connMu.Unlock()
}

// CheckThread panics if called while the loop driver does not currently
// hold loopMu, i.e. from outside a dispatch the loop itself initiated.
func (s *Server) CheckThread() {
	if s.loopMu.TryLock() {
		s.loopMu.Unlock()
		panic(api.ErrWrongThread)
	}
}

func (s *Server) Logger() api.Logger { return s.logger }

// newConnection builds a protocol.Connection wired to this Server's
// collaborators for a freshly accepted socket.
func (s *Server) newConnection(sock protocol.Socket, peer net.Addr) *protocol.Connection {
	return protocol.NewConnection(s, sock, peer, s.bufPool, s.configs.Snapshot(), s.metrics, s.logger)
}
