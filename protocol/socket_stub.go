//go:build !unix && !windows

// File: protocol/socket_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub socket for platforms this engine does not support.

package protocol

import "errors"

var errPlatformNotSupported = errors.New("protocol: sockets are not supported on this platform")

type stubSocket struct{}

// NewSocket returns a stub whose every operation fails with
// errPlatformNotSupported.
func NewSocket(fd int) Socket { return &stubSocket{} }

func (s *stubSocket) Fd() uintptr                 { return 0 }
func (s *stubSocket) Read(p []byte) (int, error)  { return 0, errPlatformNotSupported }
func (s *stubSocket) Write(p []byte) (int, error) { return 0, errPlatformNotSupported }
func (s *stubSocket) SetLinger(seconds int) error { return errPlatformNotSupported }
func (s *stubSocket) Shutdown() error             { return errPlatformNotSupported }
func (s *stubSocket) Close() error                { return errPlatformNotSupported }

// SetNonblocking always fails on unsupported platforms.
func SetNonblocking(fd int) error { return errPlatformNotSupported }
