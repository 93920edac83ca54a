// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alignedbuf allocates byte buffers whose starting address is
// aligned to a page boundary. Direct I/O and the engine's edge-decode
// rule (decoding starts at offset%edgeUnit within a page-aligned task
// range) both require a scratch buffer backed by page-aligned memory;
// the standard library has no aligned-allocation primitive, so this
// package over-allocates and slices to the next boundary, the same
// technique the pdf codebase's sized byte-pool buckets used for
// general-purpose reuse (pool_sized.go), applied here to one fixed size
// class instead of eight.
package alignedbuf

// Alloc returns a byte slice of length size whose address is aligned to
// pageSize. Both size and pageSize must be positive; size should already
// be a multiple of pageSize for direct-I/O callers, but Alloc does not
// enforce that.
func Alloc(size, pageSize int) []byte {
	buf := make([]byte, size+pageSize)
	addr := uintptrOf(buf)
	offset := 0
	if rem := addr % uintptr(pageSize); rem != 0 {
		offset = int(uintptr(pageSize) - rem)
	}
	return buf[offset : offset+size : offset+size]
}

// Arena is a fixed-size pool of page-aligned buffers, one per worker
// slot. Unlike a sync.Pool, an Arena's buffers are allocated once and
// handed out by worker index rather than reclaimed by the GC — mirroring
// the reference engine's constructor-time buffer_pool, which allocates
// parallelism page-aligned IOSIZE buffers once and reuses them for every
// pass.
type Arena struct {
	buffers [][]byte
}

// NewArena allocates n buffers of bufSize bytes, each aligned to
// pageSize.
func NewArena(n, bufSize, pageSize int) *Arena {
	a := &Arena{
		buffers: make([][]byte, n),
	}
	for i := range a.buffers {
		a.buffers[i] = Alloc(bufSize, pageSize)
	}
	return a
}

// Len returns the number of buffer slots in the arena.
func (a *Arena) Len() int { return len(a.buffers) }

// Buffer returns the worker-owned buffer at slot i. Callers are expected
// to partition work so that distinct worker goroutines use distinct
// slots; Buffer itself does no locking on the returned slice, matching
// the reference engine's thread-local buffer_pool[thread_id] access.
func (a *Arena) Buffer(i int) []byte {
	return a.buffers[i]
}

// uintptrOf extracts the starting address of buf's backing array without
// keeping buf itself pinned any longer than the caller already does.
func uintptrOf(buf []byte) uintptr {
	return uintptrFromSlice(buf)
}
