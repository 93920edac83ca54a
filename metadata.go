// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gridstream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// metadata holds everything the engine reads eagerly from a graph
// directory at construction time: the edge-type/vertex/edge/partition
// counts from meta, the two offset tables, and per-block file sizes.
type metadata struct {
	dir        string
	edgeType   EdgeType
	vertices   VertexId
	edges      EdgeId
	partitions int

	rowOffset    []int64 // length partitions*partitions + 1
	columnOffset []int64 // length partitions*partitions + 1

	blockSize [][]int64 // blockSize[i][j] = size of block-i-j, in bytes
}

// loadMetadata reads meta, row_offset, column_offset, and every block-i-j
// accounting file from dir, validating that edge_type is recognized,
// partitions is positive, the offset tables are monotonic and sized
// P*P+1, each block size is a multiple of the edge unit, and the sum of
// block sizes agrees with the edge count and with the final entry of
// both offset tables. Individual block sizes are not compared with the
// offset-table ranges.
func loadMetadata(dir string) (*metadata, error) {
	m := &metadata{dir: dir}

	if err := m.readMeta(); err != nil {
		return nil, err
	}
	if err := m.readOffsetTable("row_offset", &m.rowOffset); err != nil {
		return nil, err
	}
	if err := m.readOffsetTable("column_offset", &m.columnOffset); err != nil {
		return nil, err
	}
	if err := m.readBlockSizes(); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metadata) path(name string) string { return filepath.Join(m.dir, name) }

func (m *metadata) readMeta() error {
	path := m.path("meta")
	f, err := os.Open(path)
	if err != nil {
		return wrapPathError("load meta", path, KindMetadataMissing, err)
	}
	defer f.Close()

	var edgeType int
	var vertices uint32
	var edges uint64
	var partitions int
	n, err := fmt.Fscan(bufio.NewReader(f), &edgeType, &vertices, &edges, &partitions)
	if err != nil || n != 4 {
		return wrapPathError("parse meta", path, KindMetadataMalformed,
			fmt.Errorf("expected 4 whitespace-separated integers, got %d fields: %w", n, err))
	}
	if edgeType != int(EdgeTypeUnweighted) && edgeType != int(EdgeTypeWeighted) {
		return wrapPathError("parse meta", path, KindMetadataMalformed,
			fmt.Errorf("edge_type %d is not 0 or 1", edgeType))
	}
	if partitions <= 0 {
		return wrapPathError("parse meta", path, KindMetadataMalformed,
			fmt.Errorf("partitions %d must be positive", partitions))
	}

	m.edgeType = EdgeType(edgeType)
	m.vertices = VertexId(vertices)
	m.edges = EdgeId(edges)
	m.partitions = partitions
	return nil
}

func (m *metadata) readOffsetTable(name string, out *[]int64) error {
	path := m.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return wrapPathError("load "+name, path, KindMetadataMissing, err)
	}

	want := m.partitions*m.partitions + 1
	if len(data) != want*8 {
		return wrapPathError("parse "+name, path, KindMetadataMalformed,
			fmt.Errorf("expected %d bytes for %d int64 entries, got %d", want*8, want, len(data)))
	}

	table := make([]int64, want)
	for i := range table {
		table[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
		if i > 0 && table[i] < table[i-1] {
			return wrapPathError("parse "+name, path, KindMetadataMalformed,
				fmt.Errorf("offset table not monotonic at index %d: %d < %d", i, table[i], table[i-1]))
		}
	}
	*out = table
	return nil
}

func (m *metadata) readBlockSizes() error {
	m.blockSize = make([][]int64, m.partitions)
	for i := range m.blockSize {
		m.blockSize[i] = make([]int64, m.partitions)
		for j := range m.blockSize[i] {
			name := fmt.Sprintf("block-%d-%d", i, j)
			path := m.path(name)
			info, err := os.Stat(path)
			if err != nil {
				return wrapPathError("stat "+name, path, KindBlockFileMissing, err)
			}
			m.blockSize[i][j] = info.Size()
		}
	}
	return nil
}

func (m *metadata) validate() error {
	unit := int64(edgeUnit(m.edgeType))
	var total int64
	for i := range m.blockSize {
		for j := range m.blockSize[i] {
			size := m.blockSize[i][j]
			if size%unit != 0 {
				return wrapPathError("validate metadata", m.path(fmt.Sprintf("block-%d-%d", i, j)),
					KindMetadataMalformed, fmt.Errorf("size %d not a multiple of edge unit %d", size, unit))
			}
			total += size
		}
	}
	if total != int64(m.edges)*unit {
		return wrapPathError("validate metadata", m.dir, KindMetadataMalformed,
			fmt.Errorf("sum of block sizes %d != edges(%d) * edge_unit(%d)", total, m.edges, unit))
	}

	lastRow := m.rowOffset[len(m.rowOffset)-1]
	lastColumn := m.columnOffset[len(m.columnOffset)-1]
	if lastRow != total || lastColumn != total {
		return wrapPathError("validate metadata", m.dir, KindMetadataMalformed,
			fmt.Errorf("row_offset/column_offset terminal entries (%d, %d) do not match total block bytes %d",
				lastRow, lastColumn, total))
	}
	return nil
}

// totalBytes returns the combined size in bytes of every block, which a
// fully-written row or column stream file must equal.
func (m *metadata) totalBytes() int64 {
	return m.rowOffset[len(m.rowOffset)-1]
}

// rowRange returns the byte range of block (i, j) within the row stream.
func (m *metadata) rowRange(i, j int) (begin, end int64) {
	idx := i*m.partitions + j
	return m.rowOffset[idx], m.rowOffset[idx+1]
}

// columnRange returns the byte range of block (i, j) within the column
// stream, indexed target-major as the column_offset table is laid out.
func (m *metadata) columnRange(i, j int) (begin, end int64) {
	idx := j*m.partitions + i
	return m.columnOffset[idx], m.columnOffset[idx+1]
}
