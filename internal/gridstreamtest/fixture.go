// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gridstreamtest synthesizes on-disk graph directories for
// tests, in place of shipping golden binary fixtures.
package gridstreamtest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Edge is one input edge for Build. Weight is ignored for unweighted
// graphs.
type Edge struct {
	Source, Target uint32
	Weight         float32
}

// Graph describes the fixture to synthesize.
type Graph struct {
	Vertices   uint32
	Partitions int
	Weighted   bool
	Edges      []Edge
}

func (g Graph) partitionOf(v uint32) int {
	base := g.Vertices / uint32(g.Partitions)
	if base == 0 {
		return 0
	}
	p := int(v / base)
	if p >= g.Partitions {
		p = g.Partitions - 1
	}
	return p
}

func (g Graph) edgeUnit() int {
	if g.Weighted {
		return 12
	}
	return 8
}

// Build writes a complete graph directory (meta, row_offset,
// column_offset, row, column, block-i-j) under a fresh t.TempDir() and
// returns its path.
func Build(t *testing.T, g Graph) string {
	t.Helper()

	dir := t.TempDir()
	p := g.Partitions
	unit := g.edgeUnit()

	blocks := make([][][]Edge, p)
	for i := range blocks {
		blocks[i] = make([][]Edge, p)
	}
	for _, e := range g.Edges {
		i := g.partitionOf(e.Source)
		j := g.partitionOf(e.Target)
		blocks[i][j] = append(blocks[i][j], e)
	}

	edgeType := 0
	if g.Weighted {
		edgeType = 1
	}
	writeFile(t, filepath.Join(dir, "meta"), []byte(fmt.Sprintf("%d %d %d %d\n", edgeType, g.Vertices, len(g.Edges), p)))

	rowOffset := make([]int64, p*p+1)
	columnOffset := make([]int64, p*p+1)

	var rowStream, columnStream []byte
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			es := sortedBySource(blocks[i][j])
			rowOffset[i*p+j+1] = rowOffset[i*p+j] + int64(len(es)*unit)
			rowStream = append(rowStream, encodeBlock(es, g.Weighted)...)
		}
	}
	for j := 0; j < p; j++ {
		for i := 0; i < p; i++ {
			es := sortedByTarget(blocks[i][j])
			columnOffset[j*p+i+1] = columnOffset[j*p+i] + int64(len(es)*unit)
			columnStream = append(columnStream, encodeBlock(es, g.Weighted)...)
		}
	}

	writeFile(t, filepath.Join(dir, "row_offset"), encodeOffsets(rowOffset))
	writeFile(t, filepath.Join(dir, "column_offset"), encodeOffsets(columnOffset))
	writeFile(t, filepath.Join(dir, "row"), rowStream)
	writeFile(t, filepath.Join(dir, "column"), columnStream)

	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			size := int64(len(blocks[i][j]) * unit)
			buf := make([]byte, size)
			writeFile(t, filepath.Join(dir, fmt.Sprintf("block-%d-%d", i, j)), buf)
		}
	}

	return dir
}

func sortedBySource(es []Edge) []Edge {
	out := append([]Edge(nil), es...)
	sort.Slice(out, func(a, b int) bool { return out[a].Source < out[b].Source })
	return out
}

func sortedByTarget(es []Edge) []Edge {
	out := append([]Edge(nil), es...)
	sort.Slice(out, func(a, b int) bool { return out[a].Target < out[b].Target })
	return out
}

func encodeBlock(es []Edge, weighted bool) []byte {
	unit := 8
	if weighted {
		unit = 12
	}
	buf := make([]byte, 0, len(es)*unit)
	for _, e := range es {
		var rec [12]byte
		binary.LittleEndian.PutUint32(rec[0:4], e.Source)
		binary.LittleEndian.PutUint32(rec[4:8], e.Target)
		if weighted {
			binary.LittleEndian.PutUint32(rec[8:12], math.Float32bits(e.Weight))
			buf = append(buf, rec[:12]...)
		} else {
			buf = append(buf, rec[:8]...)
		}
	}
	return buf
}

func encodeOffsets(offsets []int64) []byte {
	buf := make([]byte, len(offsets)*8)
	for i, v := range offsets {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("gridstreamtest: write %s: %v", path, err)
	}
}
