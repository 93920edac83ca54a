// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gridstream/gridstream/internal/alignedbuf"
	"github.com/gridstream/gridstream/internal/directio"
	"github.com/gridstream/gridstream/internal/gridio"
	"github.com/gridstream/gridstream/internal/workerpool"
)

const (
	defaultMemoryBytes = 1 << 30 // 1 GiB
	defaultIOSize      = 1 << 20 // 1 MiB; New rounds it up to a multiple of the graph's page size
)

// Engine streams a single on-disk graph directory. An Engine is bound to
// that directory for its lifetime; construct a new one to operate on a
// different graph. The zero value is not usable; see New.
type Engine struct {
	dir  string
	meta *metadata

	partitions int
	vertices   VertexId
	edges      EdgeId
	edgeType   EdgeType
	pageSize   int64

	memoryBytes     int64
	vertexDataBytes int64
	partitionBatch  int

	parallelism int
	ioSize      int64
	logger      *log.Logger

	pool  *workerpool.Pool
	arena *alignedbuf.Arena

	mu     sync.Mutex
	row    *gridio.Mapping
	column *gridio.Mapping

	lifetimeBytesRead atomic.Uint64

	statsMu   sync.Mutex
	lastStats Stats
}

// Option configures an Engine at construction time.
type Option func(*engineOptions)

type engineOptions struct {
	memoryBytes int64
	parallelism int
	ioSize      int64
	logger      *log.Logger
}

// WithMemoryBytes sets the initial memory budget hint. Equivalent to
// calling SetMemoryBytes immediately after New.
func WithMemoryBytes(n int64) Option {
	return func(o *engineOptions) { o.memoryBytes = n }
}

// WithParallelism overrides the worker count; the default is
// runtime.GOMAXPROCS(0).
func WithParallelism(n int) Option {
	return func(o *engineOptions) { o.parallelism = n }
}

// WithIOSize overrides the I/O task chunk size; it is rounded up to a
// multiple of the graph's page size at construction. The default is 1
// MiB.
func WithIOSize(n int64) Option {
	return func(o *engineOptions) { o.ioSize = n }
}

// WithLogger attaches a logger. Engine logs metadata-load summaries,
// shard-skip counts, and I/O-mode selection when one is configured. A
// nil logger (the default) means silent operation.
func WithLogger(l *log.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// New opens the graph directory at path, reading its metadata eagerly.
// The row and column streams are not memory-mapped until the first
// StreamEdges call that needs them. ctx is consulted only at setup; it
// is not threaded into the hot loop of a running pass.
func New(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o := engineOptions{
		memoryBytes: defaultMemoryBytes,
		ioSize:      defaultIOSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.parallelism <= 0 {
		o.parallelism = runtime.GOMAXPROCS(0)
	}

	m, err := loadMetadata(path)
	if err != nil {
		return nil, err
	}

	pageSize := pageSizeFor(m.edgeType)
	ioSize := roundUpToMultiple(o.ioSize, pageSize)

	// A chunk's physical read is the logical [pos, pos+ioSize) range
	// widened by page-floor/page-ceil alignment (see planChunks): when
	// pos isn't already page-aligned, the floor pulls readOffset back by
	// up to pageSize-1 bytes and the ceil rounds the result up to the
	// next page, so a full chunk's readLength can reach ioSize+pageSize.
	// Scratch buffers must hold that worst case or runEdgeWorker's
	// length clamp silently truncates the copy and drops edges.
	scratchSize := ioSize + pageSize

	e := &Engine{
		dir:             path,
		meta:            m,
		partitions:      m.partitions,
		vertices:        m.vertices,
		edges:           m.edges,
		edgeType:        m.edgeType,
		pageSize:        pageSize,
		memoryBytes:     o.memoryBytes,
		partitionBatch:  m.partitions,
		parallelism:     o.parallelism,
		ioSize:          ioSize,
		logger:          o.logger,
		pool:            workerpool.New(o.parallelism),
		arena:           alignedbuf.NewArena(o.parallelism, int(scratchSize), int(pageSize)),
	}

	if e.logger != nil {
		e.logger.Printf("gridstream: loaded %s: %s, %d vertices, %d edges, %d partitions",
			path, m.edgeType, m.vertices, m.edges, m.partitions)
	}
	return e, nil
}

func roundUpToMultiple(n, multiple int64) int64 {
	if n <= 0 {
		return multiple
	}
	if rem := n % multiple; rem != 0 {
		n += multiple - rem
	}
	return n
}

// SetMemoryBytes sets the memory budget hint used by the shard-skip
// planner and the batch planner. Not safe to call concurrently with a
// running StreamVertices/StreamEdges pass.
func (e *Engine) SetMemoryBytes(n int64) {
	e.memoryBytes = n
}

// SetVertexDataBytes declares the size in bytes of the per-vertex state
// the caller's process closure touches, used to decide whether
// StreamVertices enters batched mode. Not safe to call concurrently with
// a running pass.
func (e *Engine) SetVertexDataBytes(n int64) {
	e.vertexDataBytes = n
}

// AllocBitmap allocates a Bitmap sized to the graph's vertex count.
func (e *Engine) AllocBitmap() *Bitmap {
	return NewBitmap(e.vertices)
}

// Vertices returns the graph's vertex count.
func (e *Engine) Vertices() VertexId { return e.vertices }

// Edges returns the graph's edge count.
func (e *Engine) Edges() EdgeId { return e.edges }

// Partitions returns the grid's partition count P.
func (e *Engine) Partitions() int { return e.partitions }

func (e *Engine) rowPath() string    { return filepath.Join(e.dir, "row") }
func (e *Engine) columnPath() string { return filepath.Join(e.dir, "column") }

// mapStream lazily opens and memory-maps the row or column stream,
// caching the result for the engine's lifetime. direct records whether
// the caller's shard-skip planning decided active_bytes exceeds the
// memory budget; when true, mapStream first probes direct-I/O
// capability for diagnostics before mapping (mmap itself always goes
// through the platform's standard open path — see DESIGN.md).
func (e *Engine) mapStream(path string, direct bool, cached **gridio.Mapping) (*gridio.Mapping, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if *cached != nil {
		return *cached, direct && directio.Supported(), nil
	}

	ioDirect := false
	if direct {
		f, ok, err := directio.Open(path)
		if err == nil {
			f.Close()
			ioDirect = ok
		}
	}

	m, err := gridio.Open(path)
	if err != nil {
		return nil, false, wrapPathError("mmap stream", path, KindIOMapFailed, err)
	}
	if want := e.meta.totalBytes(); int64(m.Len()) < want {
		got := int64(m.Len())
		m.Close()
		return nil, false, wrapOffsetError("mmap stream", path, got, KindIOReadFailed,
			fmt.Errorf("stream file is %d bytes, want at least %d", got, want))
	}
	*cached = m
	if e.logger != nil {
		e.logger.Printf("gridstream: mapped %s (%d bytes), direct I/O = %v", path, m.Len(), ioDirect)
	}
	return m, ioDirect, nil
}

func (e *Engine) rowStream(direct bool) (*gridio.Mapping, bool, error) {
	return e.mapStream(e.rowPath(), direct, &e.row)
}

func (e *Engine) columnStream(direct bool) (*gridio.Mapping, bool, error) {
	return e.mapStream(e.columnPath(), direct, &e.column)
}

// Close releases the engine's memory mappings, file handles, and worker
// pool. Close does not remove or modify the graph directory.
func (e *Engine) Close() error {
	e.pool.Close()

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.row != nil {
		if err := e.row.Close(); err != nil {
			errs = append(errs, err)
		}
		e.row = nil
	}
	if e.column != nil {
		if err := e.column.Close(); err != nil {
			errs = append(errs, err)
		}
		e.column = nil
	}
	return errors.Join(errs...)
}
