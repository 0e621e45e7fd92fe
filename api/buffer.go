// Package api
// Author: momentics <momentics@gmail.com>
//
// Pooled growable-buffer contracts backing a Connection's input and output
// byte buffers. SPEC_FULL.md §9 requires a contiguous growable buffer with
// a consumed-prefix offset and periodic compaction rather than a linked
// buffer of chunks, since the parsers need contiguous access for substring
// scans (CRLFCRLF, the Hixie 0xFF terminator, ...).

package api

// GrowableBuffer is a contiguous, append-on-write byte buffer that tracks
// how much of its prefix has already been consumed by a parser, so the
// parser can advance past a decoded message without copying the
// not-yet-parsed tail until a compaction is actually warranted.
type GrowableBuffer interface {
	// Bytes returns the unconsumed region: the bytes appended but not yet
	// marked Consumed. Valid only until the next Append or Consume call.
	Bytes() []byte
	// Len returns len(Bytes()).
	Len() int
	// Append copies p onto the end of the buffer, growing the backing
	// array with Go's append if needed.
	Append(p []byte)
	// Consume advances the consumed-prefix offset by n bytes, which must
	// not exceed Len(). Compaction (physically dropping the consumed
	// prefix) happens lazily, on the pool's own schedule.
	Consume(n int)
	// Reset drops all buffered bytes and returns the backing array to the
	// pool, leaving the buffer ready for reuse.
	Reset()
}

// BufferPool vends and reclaims GrowableBuffers and their backing arrays.
type BufferPool interface {
	// Get returns a new, empty GrowableBuffer with at least minCapacity
	// bytes of backing storage pre-allocated.
	Get(minCapacity int) GrowableBuffer
	// Stats reports pool-wide accounting, exposed by the control package's
	// metrics registry.
	Stats() BufferPoolStats
}

// BufferPoolStats aggregates allocation/reuse accounting for observability.
type BufferPoolStats struct {
	Allocated int64 // total backing arrays allocated since startup
	Reused    int64 // total Get calls satisfied from a freelist entry
	InUse     int64 // buffers currently checked out
}
