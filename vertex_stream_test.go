// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import (
	"context"
	"testing"

	"github.com/gridstream/gridstream/internal/gridstreamtest"
)

func TestStreamVerticesCountsAll(t *testing.T) {
	e := newEngineFromGraph(t, smallGraph())

	got, err := StreamVertices[int64](context.Background(), e, 0, func(VertexId) int64 { return 1 })
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(e.Vertices()) {
		t.Errorf("got %d, want %d", got, e.Vertices())
	}
}

func TestStreamVerticesWithBitmap(t *testing.T) {
	e := newEngineFromGraph(t, smallGraph())

	bitmap := e.AllocBitmap()
	bitmap.Set(0)
	bitmap.Set(3)
	bitmap.Set(5)

	got, err := StreamVertices[int64](context.Background(), e, 0, func(VertexId) int64 { return 1 }, WithVertexBitmap(bitmap))
	if err != nil {
		t.Fatal(err)
	}
	if got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestStreamVerticesSumsVertexIDs(t *testing.T) {
	e := newEngineFromGraph(t, smallGraph())

	got, err := StreamVertices[int64](context.Background(), e, 0, func(v VertexId) int64 { return int64(v) })
	if err != nil {
		t.Fatal(err)
	}
	var want int64
	for v := VertexId(0); v < e.Vertices(); v++ {
		want += int64(v)
	}
	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestStreamVerticesBatchedModeCoversContiguousRanges(t *testing.T) {
	g := gridstreamtest.Graph{
		Vertices:   1000,
		Partitions: 10,
	}
	e := newEngineFromGraph(t, g, WithMemoryBytes(10<<20)) // 10 MiB budget
	e.SetVertexDataBytes(16 << 20)                         // 16 MiB of declared per-vertex state
	e.Hint(VectorDesc{Length: 1000, ElementSize: 16000})   // narrows the batch window below all 10 partitions

	var ranges [][2]VertexId
	pre := func(begin, end VertexId) {
		ranges = append(ranges, [2]VertexId{begin, end})
	}
	post := func(begin, end VertexId) {
		if len(ranges) == 0 || ranges[len(ranges)-1][0] != begin || ranges[len(ranges)-1][1] != end {
			t.Errorf("post(%d,%d) did not match the matching pre call", begin, end)
		}
	}

	got, err := StreamVertices[int64](context.Background(), e, 0, func(VertexId) int64 { return 1 }, WithVertexWindowHooks(pre, post))
	if err != nil {
		t.Fatal(err)
	}
	if got != int64(e.Vertices()) {
		t.Errorf("got %d, want %d", got, e.Vertices())
	}

	wantWindows := e.numWindows()
	if len(ranges) != wantWindows {
		t.Fatalf("called pre %d times, want %d", len(ranges), wantWindows)
	}

	var prev VertexId
	for i, r := range ranges {
		if r[0] != prev {
			t.Errorf("window %d begin = %d, want %d (contiguous)", i, r[0], prev)
		}
		if r[1] < r[0] {
			t.Errorf("window %d end %d < begin %d", i, r[1], r[0])
		}
		prev = r[1]
	}
	if prev != e.Vertices() {
		t.Errorf("last window end = %d, want %d", prev, e.Vertices())
	}
}

func TestStreamVerticesRejectsCancelledContext(t *testing.T) {
	e := newEngineFromGraph(t, smallGraph())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := StreamVertices[int64](ctx, e, 0, func(VertexId) int64 { return 1 })
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
