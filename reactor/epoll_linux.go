//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) reactor, grounded on the teacher's epoll_reactor.go
// callback-dispatch loop, rebuilt on golang.org/x/sys/unix (as the
// teacher's own reactor_linux.go does) instead of the deprecated
// package-level syscall epoll wrappers.

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

type epollReactor struct {
	epfd      int
	mu        sync.Mutex
	callbacks map[uintptr]FDCallback
}

// NewReactor constructs the Linux epoll-backed EventReactor.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &epollReactor{
		epfd:      epfd,
		callbacks: make(map[uintptr]FDCallback),
	}, nil
}

func toEpollMask(events FDEventType) uint32 {
	var mask uint32
	if events&EventRead != 0 {
		mask |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

func (r *epollReactor) Register(fd uintptr, events FDEventType, cb FDCallback) error {
	ev := unix.EpollEvent{Events: toEpollMask(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl add: %w", err)
	}
	r.mu.Lock()
	r.callbacks[fd] = cb
	r.mu.Unlock()
	return nil
}

func (r *epollReactor) Modify(fd uintptr, events FDEventType) error {
	ev := unix.EpollEvent{Events: toEpollMask(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, int(fd), &ev); err != nil {
		return fmt.Errorf("reactor: epoll_ctl mod: %w", err)
	}
	return nil
}

func (r *epollReactor) Unregister(fd uintptr) error {
	// EPOLL_CTL_DEL ignores the event argument but some kernels still
	// require a non-nil pointer pre-2.6.9; pass an empty event for safety.
	_ = unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), &unix.EpollEvent{})
	r.mu.Lock()
	delete(r.callbacks, fd)
	r.mu.Unlock()
	return nil
}

func (r *epollReactor) Poll(timeoutMs int) error {
	const maxEvents = 256
	var raw [maxEvents]unix.EpollEvent

	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return fmt.Errorf("reactor: epoll_wait: %w", err)
	}

	for i := 0; i < n; i++ {
		fd := uintptr(raw[i].Fd)
		r.mu.Lock()
		cb := r.callbacks[fd]
		r.mu.Unlock()
		if cb == nil {
			continue
		}

		var events FDEventType
		if raw[i].Events&unix.EPOLLIN != 0 {
			events |= EventRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			events |= EventWrite
		}
		if raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			events |= EventError
		}
		cb(fd, events)
	}
	return nil
}

func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
