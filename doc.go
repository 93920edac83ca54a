// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gridstream implements an out-of-core streaming engine for
// vertex-centric and edge-centric graph computations.
//
// # Overview
//
// Input graphs are pre-partitioned on disk into a P x P grid of edge
// blocks by an external preprocessor (not part of this package). The
// engine streams those blocks through a bounded memory budget, applying
// caller-supplied per-vertex and per-edge functions in parallel, without
// ever materializing the whole edge set in memory.
//
// A single Engine is bound to one on-disk graph directory for its
// lifetime (see New). Callers drive computations with two entry points:
//
//	StreamVertices - a parallel fold over vertex IDs, optionally
//	restricted to a Bitmap, with a batched mode for working sets that
//	exceed the configured memory budget.
//
//	StreamEdges - the central pipeline: it plans page-aligned I/O
//	ranges over the row or column stream, skips shards with no active
//	source vertex, and runs a worker pool that decodes edges and
//	applies the caller's function.
//
// Both are generic over the fold's result type T, which must satisfy
// Number; the engine accumulates partial results per worker and folds
// them into a single value using a lock-free compare-and-swap loop.
//
// Applications (BFS, PageRank, connected components, SSSP, ...) are
// callers of this package: they supply closures and Bitmaps and own
// their own per-vertex state vectors. This package does not define any
// of those algorithms; cmd/gridwalk is a minimal illustrative BFS caller,
// not part of the core engine.
package gridstream
