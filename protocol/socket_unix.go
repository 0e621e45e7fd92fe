//go:build unix

// File: protocol/socket_unix.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking stream-socket wrapper over a raw fd, grounded on the
// teacher's internal/transport/transport_linux.go EAGAIN/EWOULDBLOCK
// handling, using golang.org/x/sys/unix throughout as the teacher does.

package protocol

import (
	"io"

	"golang.org/x/sys/unix"
)

type unixSocket struct {
	fd int
}

// NewSocket wraps an already non-blocking, already-accepted fd.
func NewSocket(fd int) Socket {
	return &unixSocket{fd: fd}
}

func (s *unixSocket) Fd() uintptr { return uintptr(s.fd) }

func (s *unixSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *unixSocket) Write(p []byte) (int, error) {
	// MSG_NOSIGNAL suppresses SIGPIPE on a peer that has gone away,
	// mirroring the original's safeSend.
	n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_NOSIGNAL)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (s *unixSocket) SetLinger(seconds int) error {
	return unix.SetsockoptLinger(s.fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{
		Onoff:  1,
		Linger: int32(seconds),
	})
}

func (s *unixSocket) Shutdown() error {
	return unix.Shutdown(s.fd, unix.SHUT_RDWR)
}

func (s *unixSocket) Close() error {
	return unix.Close(s.fd)
}

// SetNonblocking marks fd non-blocking; called once on accept.
func SetNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}
