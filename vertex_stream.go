// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import (
	"context"

	"github.com/gridstream/gridstream/internal/foldacc"
)

// VertexStreamOption configures a StreamVertices call.
type VertexStreamOption func(*vertexStreamConfig)

type vertexStreamConfig struct {
	bitmap *Bitmap
	pre    func(begin, end VertexId)
	post   func(begin, end VertexId)
}

// WithVertexBitmap restricts the scan to vertices whose bit is set. The
// zero value (no option) scans all vertices.
func WithVertexBitmap(b *Bitmap) VertexStreamOption {
	return func(c *vertexStreamConfig) { c.bitmap = b }
}

// WithVertexWindowHooks registers pre/post callbacks invoked around each
// partition window in batched mode, giving the caller a chance to page
// per-vertex state in and out. They are never called outside batched
// mode. Either may be nil.
func WithVertexWindowHooks(pre, post func(begin, end VertexId)) VertexStreamOption {
	return func(c *vertexStreamConfig) {
		c.pre = pre
		c.post = post
	}
}

// StreamVertices performs a parallel fold of process over selected
// vertices, starting from zero. Go does not support generic methods, so
// this is a free function taking the Engine as its first argument.
//
// Batched mode is entered iff no bitmap is supplied and the engine's
// declared vertex-data size exceeds 80% of its memory budget (see
// SetVertexDataBytes and Hint); in that mode the partition axis is
// walked in windows of Engine's current batch size, with pre/post hooks
// called around each window.
func StreamVertices[T Number](ctx context.Context, e *Engine, zero T, process func(VertexId) T, opts ...VertexStreamOption) (T, error) {
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var cfg vertexStreamConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	result := zero
	batched := cfg.bitmap == nil && e.vertexDataBytes > 0 &&
		float64(e.vertexDataBytes) > hintThreshold*float64(e.memoryBytes)

	if !batched {
		scanPartitions(e, 0, e.partitions, cfg.bitmap, process, &result)
		return result, nil
	}

	batch := e.partitionBatchSize()
	for start := 0; start < e.partitions; start += batch {
		end := start + batch
		if end > e.partitions {
			end = e.partitions
		}
		beginV, _ := e.PartitionRange(start)
		_, endV := e.PartitionRange(end - 1)

		if cfg.pre != nil {
			cfg.pre(beginV, endV)
		}
		scanPartitions(e, start, end, nil, process, &result)
		if cfg.post != nil {
			cfg.post(beginV, endV)
		}
	}
	return result, nil
}

// scanPartitions runs process over every vertex in partitions
// [pStart, pEnd) of e, optionally filtered by bitmap, folding the result
// into *result with a lock-free atomic add.
func scanPartitions[T Number](e *Engine, pStart, pEnd int, bitmap *Bitmap, process func(VertexId) T, result *T) {
	n := pEnd - pStart
	e.pool.ParallelForAtomic(n, func(idx int) {
		p := pStart + idx
		begin, end := e.PartitionRange(p)

		var local T
		if bitmap == nil {
			for v := begin; v < end; v++ {
				local += process(v)
			}
		} else {
			forEachSetBit(bitmap, begin, end, func(v VertexId) bool {
				local += process(v)
				return true
			})
		}
		foldacc.AddInto(result, local)
	})
}
