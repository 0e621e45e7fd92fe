//go:build windows
// +build windows

// File: reactor/reactor_windows.go
// Author: momentics <momentics@gmail.com>
//
// Best-effort Windows reactor over IOCP, grounded on the teacher's
// iocp_reactor.go completion-key-to-callback map, adapted to the same
// Register/Modify/Unregister/Poll/Close contract as the Linux
// implementation. IOCP has no native "modify interest set" primitive the
// way epoll does, so Modify only updates the locally tracked mask; Poll
// invokes the callback for every completion it dequeues and passes it that
// mask (limited to EventRead|EventWrite).

package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

type iocpEntry struct {
	fd     uintptr
	events FDEventType
	cb     FDCallback
}

type iocpReactor struct {
	port       windows.Handle
	mu         sync.Mutex
	byKey      map[uint32]*iocpEntry
	keyByFD    map[uintptr]uint32
	keyCounter uint32
}

// NewReactor constructs the Windows IOCP-backed EventReactor.
func NewReactor() (EventReactor, error) {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("reactor: CreateIoCompletionPort: %w", err)
	}
	return &iocpReactor{
		port:    port,
		byKey:   make(map[uint32]*iocpEntry),
		keyByFD: make(map[uintptr]uint32),
	}, nil
}

func (r *iocpReactor) Register(fd uintptr, events FDEventType, cb FDCallback) error {
	key := atomic.AddUint32(&r.keyCounter, 1)
	h := windows.Handle(fd)
	if _, err := windows.CreateIoCompletionPort(h, r.port, uintptr(key), 0); err != nil {
		return fmt.Errorf("reactor: associate: %w", err)
	}
	r.mu.Lock()
	r.byKey[key] = &iocpEntry{fd: fd, events: events, cb: cb}
	r.keyByFD[fd] = key
	r.mu.Unlock()
	return nil
}

func (r *iocpReactor) Modify(fd uintptr, events FDEventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.keyByFD[fd]
	if !ok {
		return ErrUnknownFD
	}
	r.byKey[key].events = events
	return nil
}

func (r *iocpReactor) Unregister(fd uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.keyByFD[fd]; ok {
		delete(r.byKey, key)
		delete(r.keyByFD, fd)
	}
	return nil
}

func (r *iocpReactor) Poll(timeoutMs int) error {
	timeout := uint32(windows.INFINITE)
	if timeoutMs >= 0 {
		timeout = uint32(timeoutMs)
	}

	var bytes uint32
	var key uintptr
	var overlapped *windows.Overlapped
	err := windows.GetQueuedCompletionStatus(r.port, &bytes, &key, &overlapped, timeout)
	if err != nil {
		if err == windows.WAIT_TIMEOUT {
			return nil
		}
		return fmt.Errorf("reactor: GetQueuedCompletionStatus: %w", err)
	}

	r.mu.Lock()
	entry := r.byKey[uint32(key)]
	r.mu.Unlock()
	if entry == nil {
		return nil
	}
	entry.cb(entry.fd, entry.events&(EventRead|EventWrite))
	return nil
}

func (r *iocpReactor) Close() error {
	return windows.CloseHandle(r.port)
}
