// Author: momentics <momentics@gmail.com>
//
// Package pool provides the contiguous growable-buffer pool backing a
// Connection's input/output byte buffers (api.BufferPool / api.GrowableBuffer),
// grounded on the teacher's NUMA-aware buffer pool (pool/base_bufferpool.go)
// with the NUMA/DPDK-specific machinery trimmed — this engine is strictly
// single-threaded per event loop (SPEC_FULL.md §5) and has no use for
// per-node allocation. See DESIGN.md "pool" entry.
package pool
