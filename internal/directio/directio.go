// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package directio opens graph stream files bypassing the page cache when
// the platform and alignment of a request both allow it. The engine's
// sequential streaming passes read each block exactly once, so page
// cache reuse has no benefit and only costs a memory copy; the reference
// engine forces O_DIRECT for any read at least as large as its memory
// budget threshold. Package directio isolates the platform-specific
// open path so the rest of the engine can request direct I/O and fall
// back to buffered I/O uniformly when it is unavailable.
package directio

import "os"

// Open opens name for reading, requesting that the platform bypass its
// page cache. If the platform does not support direct I/O, or the
// underlying open call rejects the O_DIRECT flag (common on filesystems
// that don't support aligned unbuffered access, e.g. tmpfs), Open falls
// back to a normal buffered os.Open and reports ok == false so the
// caller can size its read buffer without the direct-I/O alignment
// constraint.
func Open(name string) (f *os.File, ok bool, err error) {
	return open(name)
}

// Supported reports whether this platform's Open can request direct
// I/O at all. It does not guarantee a given file or filesystem will
// accept it — only Open's return value does that.
func Supported() bool {
	return supported
}
