//go:build windows

// File: protocol/socket_windows.go
// Author: momentics <momentics@gmail.com>
//
// Best-effort non-blocking socket wrapper for Windows, using
// golang.org/x/sys/windows the way the teacher's reactor_windows.go does.

package protocol

import (
	"io"

	"golang.org/x/sys/windows"
)

type windowsSocket struct {
	handle windows.Handle
}

// NewSocket wraps an already non-blocking, already-accepted socket handle.
func NewSocket(fd int) Socket {
	return &windowsSocket{handle: windows.Handle(fd)}
}

func (s *windowsSocket) Fd() uintptr { return uintptr(s.handle) }

func (s *windowsSocket) Read(p []byte) (int, error) {
	n, err := windows.Read(s.handle, p)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (s *windowsSocket) Write(p []byte) (int, error) {
	n, err := windows.Write(s.handle, p)
	if err != nil {
		if err == windows.WSAEWOULDBLOCK {
			return 0, ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func (s *windowsSocket) SetLinger(seconds int) error {
	return windows.SetsockoptLinger(s.handle, windows.SOL_SOCKET, windows.SO_LINGER, &windows.Linger{
		OnOff:   1,
		Linger:  uint16(seconds),
	})
}

func (s *windowsSocket) Shutdown() error {
	return windows.Shutdown(s.handle, windows.SHUT_RDWR)
}

func (s *windowsSocket) Close() error {
	return windows.CloseHandle(s.handle)
}

// SetNonblocking marks fd non-blocking; called once on accept.
func SetNonblocking(fd int) error {
	return windows.SetNonblock(windows.Handle(fd), true)
}
