// File: protocol/writebuffer.go
// Author: momentics <momentics@gmail.com>
//
// Non-blocking send path, grounded on original_source's write/flush/
// safeSend (fast-path direct send, bounded pending buffer, writability
// subscription). The pending side is a FIFO of already-serialised byte
// chunks — unlike the input side, which needs contiguous access for
// substring scans (SPEC_FULL.md §9), the output side only ever needs to
// drain chunks in order, which is exactly github.com/eapache/queue's
// ring-buffer Queue.

package protocol

import (
	"github.com/eapache/queue"

	"github.com/lattice-systems/seaengine/api"
)

// DefaultMaxOutputBufferBytes is the fallback cap used when a WriteBuffer
// is constructed without an explicit maxBufBytes (e.g. in tests), matching
// the default control.Settings.MaxOutputBufBytes value.
const DefaultMaxOutputBufferBytes = 16 * 1024 * 1024

// WriteBuffer implements the non-blocking write path for one Connection's
// socket.
type WriteBuffer struct {
	sock Socket

	pending      *queue.Queue
	pendingBytes int64
	maxBufBytes  int64

	closed       bool
	closeOnEmpty bool
	hadSendError bool

	registeredForWrite bool
	subscribe           func() error
	unsubscribe         func() error

	logger api.Logger
}

// NewWriteBuffer constructs a WriteBuffer over sock. maxBufBytes is the cap
// control.Settings.MaxOutputBufBytes places on the pending output buffer
// before the connection is forced closed (SPEC_FULL.md §3); a value <= 0
// falls back to DefaultMaxOutputBufferBytes. subscribe/unsubscribe are
// called when the pending buffer transitions from empty to non-empty and
// back, so the owning Connection can (un)register for writability with the
// event loop via the Server collaborator.
func NewWriteBuffer(sock Socket, logger api.Logger, maxBufBytes int64, subscribe, unsubscribe func() error) *WriteBuffer {
	if maxBufBytes <= 0 {
		maxBufBytes = DefaultMaxOutputBufferBytes
	}
	return &WriteBuffer{
		sock:        sock,
		pending:     queue.New(),
		maxBufBytes: maxBufBytes,
		subscribe:   subscribe,
		unsubscribe: unsubscribe,
		logger:      logger,
	}
}

// Write appends p to the pending output, attempting a direct send first
// when flush is requested and nothing is already queued (the fast path).
// It returns false if the connection must be closed as a result (buffer
// cap exceeded or a non-EAGAIN socket error).
func (w *WriteBuffer) Write(p []byte, flush bool) bool {
	if w.closed || w.closeOnEmpty {
		return false
	}
	if len(p) == 0 {
		if flush {
			return w.Flush()
		}
		return true
	}

	if flush && w.pending.Length() == 0 {
		n, err := w.sock.Write(p)
		if err != nil && err != ErrWouldBlock {
			w.onSendError(err)
			return false
		}
		if n == len(p) {
			return true
		}
		p = p[n:]
	}

	if w.pendingBytes+int64(len(p)) > w.maxBufBytes {
		w.logger.Warn("output buffer cap exceeded, closing")
		w.closeNow()
		return false
	}

	w.pending.Add(append([]byte(nil), p...))
	w.pendingBytes += int64(len(p))
	w.maybeSubscribe()

	if flush {
		return w.Flush()
	}
	return true
}

// Flush drains as much of the pending buffer as the socket currently
// accepts in a single pass over the queue.
func (w *WriteBuffer) Flush() bool {
	if w.closed {
		return false
	}
	for w.pending.Length() > 0 {
		chunk := w.pending.Peek().([]byte)
		n, err := w.sock.Write(chunk)
		if err != nil {
			if err == ErrWouldBlock {
				break
			}
			w.onSendError(err)
			return false
		}
		if n == len(chunk) {
			w.pending.Remove()
			w.pendingBytes -= int64(len(chunk))
			continue
		}
		// Partial write: replace the head chunk with its unsent tail.
		w.pending.Remove()
		remainder := chunk[n:]
		w.pendingBytes -= int64(n)
		w.pending.Add(remainder)
		break
	}

	if w.pending.Length() == 0 {
		w.maybeUnsubscribe()
		if w.closeOnEmpty {
			w.closeNow()
			return false
		}
	} else {
		w.maybeSubscribe()
	}
	return true
}

// CloseWhenEmpty defers closeNow until the pending buffer drains.
func (w *WriteBuffer) CloseWhenEmpty() {
	if w.pending.Length() == 0 {
		w.closeNow()
		return
	}
	w.closeOnEmpty = true
}

// Closed reports whether the underlying socket has been shut down.
func (w *WriteBuffer) Closed() bool { return w.closed }

func (w *WriteBuffer) onSendError(err error) {
	w.hadSendError = true
	w.logger.Warn("socket send error: %v", err)
	w.closeNow()
}

func (w *WriteBuffer) closeNow() {
	if w.closed {
		return
	}
	w.closed = true
	w.maybeUnsubscribe()
	_ = w.sock.Shutdown()
}

func (w *WriteBuffer) maybeSubscribe() {
	if w.registeredForWrite || w.subscribe == nil {
		return
	}
	if err := w.subscribe(); err == nil {
		w.registeredForWrite = true
	}
}

func (w *WriteBuffer) maybeUnsubscribe() {
	if !w.registeredForWrite || w.unsubscribe == nil {
		return
	}
	if err := w.unsubscribe(); err == nil {
		w.registeredForWrite = false
	}
}
