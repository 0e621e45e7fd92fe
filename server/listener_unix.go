//go:build unix

package server

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/protocol"
	"github.com/lattice-systems/seaengine/reactor"
)

// unixListener drives the spec-faithful path: a raw non-blocking listening
// socket and a single epoll-backed reactor.EventReactor multiplexing the
// listening fd and every accepted connection's fd on one goroutine,
// grounded on original_source's single-threaded select/epoll event loop
// and on reactor/epoll_linux.go.
type unixListener struct {
	fd       int
	rct      reactor.EventReactor
	boundTo  string
}

func newPlatformListener(addr string) (platformListener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	var sa unix.SockaddrInet4
	sa.Port = tcpAddr.Port
	if ip4 := tcpAddr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}
	rct, err := reactor.NewReactor()
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("reactor: %w", err)
	}
	boundSa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("getsockname: %w", err)
	}
	return &unixListener{fd: fd, rct: rct, boundTo: sockaddrToTCPAddr(boundSa).String()}, nil
}

func (l *unixListener) addr() string { return l.boundTo }

func (l *unixListener) run(s *Server) {
	l.rct.Register(uintptr(l.fd), reactor.EventRead, func(uintptr, reactor.FDEventType) {
		l.acceptAll(s)
	})

	pollMs := int(s.cfg.PollTimeout / time.Millisecond)
	if pollMs <= 0 {
		pollMs = 250
	}
	for !s.stopping() {
		s.loopMu.Lock()
		err := l.rct.Poll(pollMs)
		s.loopMu.Unlock()
		if err != nil {
			s.logger.Error("reactor poll error: %v", err)
			return
		}
	}
}

func (l *unixListener) acceptAll(s *Server) {
	for {
		connFd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			s.logger.Warn("accept error: %v", err)
			return
		}
		sock := protocol.NewSocket(connFd)
		_ = sock.SetLinger(s.cfg.LingerSeconds)
		peer := sockaddrToTCPAddr(sa)

		conn := s.newConnection(sock, peer)
		s.trackConnection(conn)

		connFdCopy := connFd
		l.rct.Register(uintptr(connFdCopy), reactor.EventRead, func(_ uintptr, ev reactor.FDEventType) {
			if ev&reactor.EventWrite != 0 {
				conn.OnWritable()
			}
			if ev&reactor.EventRead != 0 || ev&reactor.EventError != 0 {
				conn.OnReadable()
			}
		})
	}
}

func (l *unixListener) shutdown() error {
	l.rct.Close()
	return unix.Close(l.fd)
}

func sockaddrToTCPAddr(sa unix.Sockaddr) net.Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return &net.TCPAddr{IP: ip, Port: v.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return &net.TCPAddr{IP: ip, Port: v.Port}
	default:
		return &net.TCPAddr{}
	}
}

// SubscribeToWriteEvents registers the connection's fd for write-interest
// notifications once its output buffer has something pending.
func (s *Server) SubscribeToWriteEvents(c api.Connection) error {
	ul, ok := s.listener.(*unixListener)
	if !ok {
		return api.ErrNotSupported
	}
	fc, ok := c.(fdConnection)
	if !ok {
		return api.ErrNotSupported
	}
	return ul.rct.Modify(fc.Fd(), reactor.EventRead|reactor.EventWrite)
}

// UnsubscribeFromWriteEvents drops write-interest once the output buffer
// has drained.
func (s *Server) UnsubscribeFromWriteEvents(c api.Connection) error {
	ul, ok := s.listener.(*unixListener)
	if !ok {
		return api.ErrNotSupported
	}
	fc, ok := c.(fdConnection)
	if !ok {
		return api.ErrNotSupported
	}
	return ul.rct.Modify(fc.Fd(), reactor.EventRead)
}

// fdConnection is satisfied by *protocol.Connection via its Fd method
// (which forwards to its socket), kept as a narrow interface here so this file does
// not need to import protocol.Connection's full surface.
type fdConnection interface {
	Fd() uintptr
}
