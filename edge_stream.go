// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gridstream/gridstream/internal/foldacc"
	"github.com/gridstream/gridstream/internal/gridio"
	"github.com/gridstream/gridstream/internal/taskqueue"
)

// UpdateMode selects which materialization of the graph StreamEdges
// reads.
type UpdateMode int

const (
	// ModeSource reads the row stream: for each active source
	// partition, in ascending target-partition order, all edges are
	// delivered in a single unwindowed phase.
	ModeSource UpdateMode = 0
	// ModeTarget reads the column stream, windowing over source
	// partitions in batches of the engine's current batch size. This is
	// the default mode for working sets too large to hold a full
	// per-vertex state vector in memory.
	ModeTarget UpdateMode = 1
)

// EdgeStreamOption configures a StreamEdges call.
type EdgeStreamOption func(*edgeStreamConfig)

type edgeStreamConfig struct {
	bitmap  *Bitmap
	preSrc  func(begin, end VertexId)
	postSrc func(begin, end VertexId)
}

// WithEdgeBitmap restricts delivered edges to those whose source vertex
// is set in b. The zero value (no option) delivers every edge.
func WithEdgeBitmap(b *Bitmap) EdgeStreamOption {
	return func(c *edgeStreamConfig) { c.bitmap = b }
}

// WithEdgeSourceWindowHooks registers pre/post callbacks invoked around
// each source-partition window in ModeTarget. They are never called in
// ModeSource, which has no windowing. Either may be nil.
func WithEdgeSourceWindowHooks(pre, post func(begin, end VertexId)) EdgeStreamOption {
	return func(c *edgeStreamConfig) {
		c.preSrc = pre
		c.postSrc = post
	}
}

// ioTask is the unit of work pushed through the engine's taskqueue.Queue
// for an edge-streaming pass.
type ioTask struct {
	mapping      *gridio.Mapping
	logicalBegin int64
	logicalEnd   int64
	hasWindow    bool
	windowBegin  VertexId
	windowEnd    VertexId
}

// StreamEdges runs process over edges selected by mode and the optional
// bitmap, folding the results with a lock-free atomic add starting from
// zero. Go does not support generic methods, so this is a free function
// taking the Engine as its first argument.
func StreamEdges[T Number](ctx context.Context, e *Engine, zero T, mode UpdateMode, process func(Edge) T, opts ...EdgeStreamOption) (T, error) {
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if mode != ModeSource && mode != ModeTarget {
		return zero, wrapError("stream edges", KindInvalidUpdateMode, fmt.Errorf("%w: %d", ErrInvalidUpdateMode, mode))
	}

	var cfg edgeStreamConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	active := e.activeSourcePartitions(cfg.bitmap)
	activeBytes := e.activeBytes(active)
	wantDirect := activeBytes > e.memoryBytes

	if e.logger != nil {
		e.logger.Printf("gridstream: StreamEdges mode=%d active_bytes=%d memory_budget=%d direct=%v",
			mode, activeBytes, e.memoryBytes, wantDirect)
	}

	if mode == ModeSource {
		return streamEdgesSource(e, zero, process, cfg.bitmap, active, wantDirect)
	}
	return streamEdgesTarget(e, zero, process, cfg, active, wantDirect)
}

func (e *Engine) activeSourcePartitions(bitmap *Bitmap) []bool {
	active := make([]bool, e.partitions)
	if bitmap == nil {
		for i := range active {
			active[i] = true
		}
		return active
	}
	e.pool.ParallelForAtomic(e.partitions, func(i int) {
		begin, end := e.PartitionRange(i)
		active[i] = bitmap.anySetInRange(begin, end)
	})
	return active
}

func (e *Engine) activeBytes(active []bool) int64 {
	var total int64
	for i, isActive := range active {
		if !isActive {
			continue
		}
		for j := 0; j < e.partitions; j++ {
			total += e.meta.blockSize[i][j]
		}
	}
	return total
}

// streamEdgesSource implements ModeSource: a single unwindowed pass over
// the row stream.
func streamEdgesSource[T Number](e *Engine, zero T, process func(Edge) T, bitmap *Bitmap, active []bool, wantDirect bool) (T, error) {
	mapping, _, err := e.rowStream(wantDirect)
	if err != nil {
		return zero, err
	}

	result := zero
	queue := taskqueue.New(0)
	workers := e.parallelism

	wgs := make([]*sync.WaitGroup, workers)
	for w := 0; w < workers; w++ {
		w := w
		wgs[w] = e.pool.Go(func() {
			runEdgeWorker(e, w, queue, bitmap, false, 0, 0, process, &result)
		})
	}

	visited, skipped := 0, 0
	for i := 0; i < e.partitions; i++ {
		if !active[i] {
			skipped += e.partitions
			continue
		}
		visited += e.partitions
		for j := 0; j < e.partitions; j++ {
			begin, end := e.meta.rowRange(i, j)
			for _, c := range planChunks(begin, end, e.pageSize, e.ioSize) {
				queue.Push(taskqueue.Task{
					Region: ioTask{mapping: mapping, logicalBegin: c.logicalBegin, logicalEnd: c.logicalEnd},
					Offset: c.readOffset,
					Length: c.readLength,
				})
			}
		}
	}
	for w := 0; w < workers; w++ {
		queue.PushDone()
	}
	for _, wg := range wgs {
		wg.Wait()
	}

	e.recordShardCounts(visited, skipped)
	return result, nil
}

// streamEdgesTarget implements ModeTarget: windowed passes over the
// column stream, one worker batch and one queue per window.
func streamEdgesTarget[T Number](e *Engine, zero T, process func(Edge) T, cfg edgeStreamConfig, active []bool, wantDirect bool) (T, error) {
	mapping, _, err := e.columnStream(wantDirect)
	if err != nil {
		return zero, err
	}

	result := zero
	batch := e.partitionBatchSize()
	workers := e.parallelism
	visited, skipped := 0, 0

	for wStart := 0; wStart < e.partitions; wStart += batch {
		wEnd := wStart + batch
		if wEnd > e.partitions {
			wEnd = e.partitions
		}
		beginV, _ := e.PartitionRange(wStart)
		_, endV := e.PartitionRange(wEnd - 1)

		if cfg.preSrc != nil {
			cfg.preSrc(beginV, endV)
		}

		queue := taskqueue.New(0)
		wgs := make([]*sync.WaitGroup, workers)
		for w := 0; w < workers; w++ {
			w := w
			wgs[w] = e.pool.Go(func() {
				runEdgeWorker(e, w, queue, cfg.bitmap, true, beginV, endV, process, &result)
			})
		}

		for j := 0; j < e.partitions; j++ {
			for i := wStart; i < wEnd; i++ {
				if !active[i] {
					skipped++
					continue
				}
				visited++
				begin, end := e.meta.columnRange(i, j)
				for _, c := range planChunks(begin, end, e.pageSize, e.ioSize) {
					queue.Push(taskqueue.Task{
						Region: ioTask{mapping: mapping, logicalBegin: c.logicalBegin, logicalEnd: c.logicalEnd, hasWindow: true, windowBegin: beginV, windowEnd: endV},
						Offset: c.readOffset,
						Length: c.readLength,
					})
				}
			}
		}
		for w := 0; w < workers; w++ {
			queue.PushDone()
		}
		for _, wg := range wgs {
			wg.Wait()
		}

		if cfg.postSrc != nil {
			cfg.postSrc(beginV, endV)
		}
	}

	e.recordShardCounts(visited, skipped)
	return result, nil
}

// runEdgeWorker pops tasks from queue until it receives a termination
// sentinel, decoding and delivering edges to process, then folds its
// local accumulation into *result exactly once.
func runEdgeWorker[T Number](e *Engine, workerIndex int, queue *taskqueue.Queue, bitmap *Bitmap, hasWindow bool, windowBegin, windowEnd VertexId, process func(Edge) T, result *T) {
	scratch := e.arena.Buffer(workerIndex)
	unit := int64(edgeUnit(e.edgeType))

	var local T
	var localBytes int64

	for {
		task := queue.Pop()
		if task.IsDone() {
			break
		}
		it := task.Region.(ioTask)

		readEnd := task.Offset + task.Length
		if mapLen := int64(it.mapping.Len()); readEnd > mapLen {
			readEnd = mapLen
		}
		n := readEnd - task.Offset
		if n <= 0 {
			continue
		}
		// scratch is sized to ioSize+pageSize (engine.go), the maximum
		// readLength planChunks can produce, so this never actually
		// truncates; it only guards against a future chunk planner with
		// a looser bound on readLength than the arena assumes.
		if int64(len(scratch)) < n {
			n = int64(len(scratch))
		}
		copy(scratch[:n], it.mapping.Bytes()[task.Offset:task.Offset+n])
		localBytes += n

		for pos := int64(0); pos+unit <= n; pos += unit {
			abs := task.Offset + pos
			if abs < it.logicalBegin || abs >= it.logicalEnd {
				continue
			}
			edge := decodeEdge(scratch[pos:pos+unit], e.edgeType)
			if hasWindow && (edge.Source < windowBegin || edge.Source >= windowEnd) {
				continue
			}
			if bitmap != nil && !bitmap.Get(edge.Source) {
				continue
			}
			local += process(edge)
		}
	}

	foldacc.AddInto(result, local)
	e.lifetimeBytesRead.Add(uint64(localBytes))
}

func decodeEdge(rec []byte, edgeType EdgeType) Edge {
	e := Edge{
		Source: binary.LittleEndian.Uint32(rec[0:4]),
		Target: binary.LittleEndian.Uint32(rec[4:8]),
	}
	if edgeType == EdgeTypeWeighted {
		e.Weight = math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12]))
	}
	return e
}
