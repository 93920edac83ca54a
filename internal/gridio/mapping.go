// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gridio memory-maps the row and column stream files the engine
// reads during a row-streamed or column-streamed pass. Workers copy
// page-aligned ranges out of the mapping, so mapping each stream once and
// letting the kernel page it in on demand avoids both an up-front read
// of the whole file and a syscall per range.
package gridio

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Mapping is a read-only memory-mapped view of a file.
type Mapping struct {
	f    *os.File
	data mmap.MMap
}

// Open memory-maps the file at path for reading. The returned Mapping
// must be closed with Close to release the mapping and the underlying
// file descriptor.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gridio: open %s: %w", path, err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gridio: mmap %s: %w", path, err)
	}

	return &Mapping{f: f, data: data}, nil
}

// Bytes returns the mapped file contents. The slice is valid until
// Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the size of the mapped file in bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Close unmaps the file and closes its descriptor.
func (m *Mapping) Close() error {
	uerr := m.data.Unmap()
	cerr := m.f.Close()
	if uerr != nil {
		return fmt.Errorf("gridio: unmap: %w", uerr)
	}
	if cerr != nil {
		return fmt.Errorf("gridio: close: %w", cerr)
	}
	return nil
}
