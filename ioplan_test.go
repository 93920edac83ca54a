// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import "testing"

func TestPlanChunksEmptyRange(t *testing.T) {
	if chunks := planChunks(10, 10, 4096, 1<<20); chunks != nil {
		t.Errorf("expected nil for empty range, got %v", chunks)
	}
}

func TestPlanChunksSingleChunkWithinIOSize(t *testing.T) {
	const pageSize = 4096
	const ioSize = 1 << 20
	chunks := planChunks(8000, 8008, pageSize, ioSize)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.readOffset%pageSize != 0 {
		t.Errorf("readOffset %d not page-aligned", c.readOffset)
	}
	if c.readLength%pageSize != 0 {
		t.Errorf("readLength %d not a multiple of pageSize", c.readLength)
	}
	if c.logicalBegin != 8000 || c.logicalEnd != 8008 {
		t.Errorf("logical range = [%d,%d), want [8000,8008)", c.logicalBegin, c.logicalEnd)
	}
	if c.readOffset > c.logicalBegin || c.readOffset+c.readLength < c.logicalEnd {
		t.Errorf("physical range [%d,%d) does not cover logical range [%d,%d)",
			c.readOffset, c.readOffset+c.readLength, c.logicalBegin, c.logicalEnd)
	}
}

func TestPlanChunksSplitsLargeRegionByIOSize(t *testing.T) {
	const pageSize = 4096
	const ioSize = 8192
	begin, end := int64(0), int64(ioSize*3+100)
	chunks := planChunks(begin, end, pageSize, ioSize)
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}

	var coveredLogical int64
	for i, c := range chunks {
		if c.logicalBegin != coveredLogical {
			t.Errorf("chunk %d logicalBegin = %d, want %d", i, c.logicalBegin, coveredLogical)
		}
		coveredLogical = c.logicalEnd
		if c.readOffset%pageSize != 0 {
			t.Errorf("chunk %d readOffset %d not page-aligned", i, c.readOffset)
		}
		if c.readLength%pageSize != 0 {
			t.Errorf("chunk %d readLength %d not a multiple of pageSize", i, c.readLength)
		}
	}
	if coveredLogical != end {
		t.Errorf("last logicalEnd = %d, want %d", coveredLogical, end)
	}
}

func TestPageFloorAndCeil(t *testing.T) {
	if got := pageFloor(4097, 4096); got != 4096 {
		t.Errorf("pageFloor(4097,4096) = %d, want 4096", got)
	}
	if got := pageFloor(4096, 4096); got != 4096 {
		t.Errorf("pageFloor(4096,4096) = %d, want 4096", got)
	}
	if got := pageCeil(4097, 4096); got != 8192 {
		t.Errorf("pageCeil(4097,4096) = %d, want 8192", got)
	}
	if got := pageCeil(4096, 4096); got != 4096 {
		t.Errorf("pageCeil(4096,4096) = %d, want 4096", got)
	}
}
