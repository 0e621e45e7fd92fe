//go:build !unix

package server

import (
	"net"

	"github.com/lattice-systems/seaengine/api"
)

// fallbackListener is the portable accept path for platforms without a
// raw non-blocking socket implementation (Windows, or any unrecognised
// target): a stdlib net.Listener plus one driver goroutine per accepted
// connection, each feeding the same ConnectionFSM the Unix reactor path
// uses. See armedSocket's doc comment for how a blocking net.Conn is
// coerced into the FSM's read-until-would-block contract, and DESIGN.md
// "server" entry (listener_fallback.go) for why this trades the single-thread
// dispatch guarantee for portability rather than hand-rolling IOCP.
type fallbackListener struct {
	ln net.Listener
}

func newPlatformListener(addr string) (platformListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &fallbackListener{ln: ln}, nil
}

func (l *fallbackListener) run(s *Server) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if s.stopping() {
				return
			}
			s.logger.Warn("accept error: %v", err)
			continue
		}
		go l.serve(s, conn)
	}
}

func (l *fallbackListener) serve(s *Server, conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetLinger(s.cfg.LingerSeconds)
	}
	sock := newArmedSocket(conn)
	c := s.newConnection(sock, conn.RemoteAddr())
	s.trackConnection(c)

	for !c.Finalized() && !s.stopping() {
		sock.arm()
		s.loopMu.Lock()
		c.OnReadable()
		s.loopMu.Unlock()
	}
}

func (l *fallbackListener) shutdown() error {
	return l.ln.Close()
}

func (l *fallbackListener) addr() string { return l.ln.Addr().String() }

// SubscribeToWriteEvents is a no-op here: armedSocket.Write always runs
// to completion or a terminal error on the blocking net.Conn, so there is
// never a pending write to be notified about.
func (s *Server) SubscribeToWriteEvents(c api.Connection) error { return nil }

// UnsubscribeFromWriteEvents mirrors SubscribeToWriteEvents.
func (s *Server) UnsubscribeFromWriteEvents(c api.Connection) error { return nil }
