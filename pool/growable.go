// Author: momentics <momentics@gmail.com>
//
// Contiguous growable buffer with a consumed-prefix offset and lazy
// compaction, grounded on the teacher's base_bufferpool.go allocate/reuse
// shape (pool/base_bufferpool.go) but holding a single contiguous []byte
// per buffer instead of NUMA-indexed arenas — see DESIGN.md.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/lattice-systems/seaengine/api"
)

// compactThreshold is the consumed-byte count at which Bytes() always
// compacts; below it, Bytes() compacts only once the consumed prefix is at
// least half the buffer, mirroring the source's own erase-on-demand
// behaviour rather than a fixed-size ring.
const compactThreshold = 4096

type growableBuffer struct {
	buf      []byte
	consumed int
	owner    *bufferPool
}

func (g *growableBuffer) compactIfWarranted() {
	if g.consumed == 0 {
		return
	}
	remaining := len(g.buf) - g.consumed
	if g.consumed < compactThreshold && g.consumed*2 < len(g.buf) {
		return
	}
	copy(g.buf[:remaining], g.buf[g.consumed:])
	g.buf = g.buf[:remaining]
	g.consumed = 0
}

func (g *growableBuffer) Bytes() []byte {
	g.compactIfWarranted()
	return g.buf[g.consumed:]
}

func (g *growableBuffer) Len() int {
	return len(g.buf) - g.consumed
}

func (g *growableBuffer) Append(p []byte) {
	g.buf = append(g.buf, p...)
}

func (g *growableBuffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n > g.Len() {
		n = g.Len()
	}
	g.consumed += n
}

func (g *growableBuffer) Reset() {
	g.buf = g.buf[:0]
	g.consumed = 0
	g.owner.release(g)
}

// bufferPool is a freelist-backed api.BufferPool. The mutex guards the
// freelist in Get and release; the counters are updated atomically, so
// Stats() can be queried from a diagnostics goroutine without the lock.
type bufferPool struct {
	mu        sync.Mutex
	freelist  []*growableBuffer
	allocated int64
	reused    int64
	inUse     int64
}

// NewBufferPool constructs an api.BufferPool of growable buffers.
func NewBufferPool() api.BufferPool {
	return &bufferPool{}
}

func (p *bufferPool) Get(minCapacity int) api.GrowableBuffer {
	p.mu.Lock()
	var g *growableBuffer
	if n := len(p.freelist); n > 0 {
		g = p.freelist[n-1]
		p.freelist = p.freelist[:n-1]
		atomic.AddInt64(&p.reused, 1)
	}
	p.mu.Unlock()

	if g == nil {
		cap := minCapacity
		if cap < 4096 {
			cap = 4096
		}
		g = &growableBuffer{buf: make([]byte, 0, cap), owner: p}
		atomic.AddInt64(&p.allocated, 1)
	} else if cap(g.buf) < minCapacity {
		g.buf = make([]byte, 0, minCapacity)
	}
	atomic.AddInt64(&p.inUse, 1)
	return g
}

func (p *bufferPool) release(g *growableBuffer) {
	atomic.AddInt64(&p.inUse, -1)
	p.mu.Lock()
	p.freelist = append(p.freelist, g)
	p.mu.Unlock()
}

func (p *bufferPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		Allocated: atomic.LoadInt64(&p.allocated),
		Reused:    atomic.LoadInt64(&p.reused),
		InUse:     atomic.LoadInt64(&p.inUse),
	}
}
