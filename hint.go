// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import (
	"fmt"
	"math"
)

// VectorDesc describes one per-vertex state vector a caller intends to
// keep resident during a pass, for the purpose of sizing the batch
// planner's partition window.
type VectorDesc struct {
	Length      int64 // number of elements, typically Engine.Vertices()
	ElementSize int64 // bytes per element
}

// hintThreshold is the fraction of the memory budget the batch planner
// targets per window.
const hintThreshold = 0.8

// Hint declares the total per-vertex working-set size implied by descs
// and resizes the batch planner's partition window so that one window's
// working set fits within 80% of the memory budget. Call before a
// windowed pass; the default window (before any Hint call) is the whole
// partition set.
func (e *Engine) Hint(descs ...VectorDesc) {
	var bytes int64
	for _, d := range descs {
		bytes += d.Length * d.ElementSize
	}

	budget := hintThreshold * float64(e.memoryBytes)
	if budget <= 0 || bytes <= 0 {
		e.partitionBatch = e.partitions
		return
	}

	x := int64(math.Ceil(float64(bytes) / budget))
	if x < 1 {
		x = 1
	}
	batch := int64(e.partitions) / x
	if batch < 1 {
		batch = 1
		if e.logger != nil {
			warn := wrapError("hint", KindBudgetTooSmall,
				fmt.Errorf("%d working-set bytes over %d partitions clamped to a 1-partition batch", bytes, e.partitions))
			e.logger.Print(warn)
		}
	}
	e.partitionBatch = int(batch)
}

// partitionBatchSize returns the current partition window size, which
// defaults to Partitions() until Hint narrows it.
func (e *Engine) partitionBatchSize() int {
	if e.partitionBatch <= 0 {
		return e.partitions
	}
	return e.partitionBatch
}

// numWindows returns the number of consecutive partition windows of size
// partitionBatchSize needed to cover [0, partitions).
func (e *Engine) numWindows() int {
	batch := e.partitionBatchSize()
	return (e.partitions + batch - 1) / batch
}
