//go:build !unix

package server

import (
	"net"

	"github.com/lattice-systems/seaengine/protocol"
)

// armedSocket adapts a blocking net.Conn to protocol.Socket's
// read-until-would-block contract. The ConnectionFSM's OnReadable loops
// calling Read until it sees ErrWouldBlock or a short read; a genuinely
// non-blocking socket reports ErrWouldBlock once the kernel receive
// buffer drains. armedSocket approximates that for a blocking net.Conn:
// each drive cycle must arm() the socket once, permitting exactly one
// real, blocking Read — every further Read call within that cycle
// synthesises ErrWouldBlock immediately rather than blocking the whole
// event goroutine on a socket that has no more buffered data right now.
type armedSocket struct {
	conn   net.Conn
	ready  bool
}

func newArmedSocket(conn net.Conn) *armedSocket {
	return &armedSocket{conn: conn}
}

func (a *armedSocket) arm() { a.ready = true }

func (a *armedSocket) Fd() uintptr { return 0 }

func (a *armedSocket) Read(p []byte) (int, error) {
	if !a.ready {
		return 0, protocol.ErrWouldBlock
	}
	a.ready = false
	return a.conn.Read(p)
}

func (a *armedSocket) Write(p []byte) (int, error) {
	return a.conn.Write(p)
}

func (a *armedSocket) SetLinger(seconds int) error {
	if tcp, ok := a.conn.(*net.TCPConn); ok {
		return tcp.SetLinger(seconds)
	}
	return nil
}

func (a *armedSocket) Shutdown() error {
	if tcp, ok := a.conn.(*net.TCPConn); ok {
		return tcp.CloseWrite()
	}
	return a.conn.Close()
}

func (a *armedSocket) Close() error { return a.conn.Close() }
