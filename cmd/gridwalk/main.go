package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/gridstream/gridstream"
)

func main() {
	memoryGiB := flag.Float64("memory-gib", 1, "memory budget in GiB")
	parallelism := flag.Int("parallelism", 0, "worker count (0 = GOMAXPROCS)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 3 || args[0] != "bfs" {
		fmt.Fprintln(os.Stderr, "Usage: gridwalk bfs <path> <start_vid> [-memory-gib N] [-parallelism N]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	// flag.Parse stops at the first positional argument, so parse any
	// flags that follow <start_vid> as well.
	flag.CommandLine.Parse(args[3:])

	path := args[1]
	start, err := parseVertex(args[2])
	if err != nil {
		log.Fatalf("start_vid: %v", err)
	}

	if err := runBFS(path, start, *memoryGiB, *parallelism); err != nil {
		log.Fatalf("bfs: %v", err)
	}
}

func parseVertex(s string) (gridstream.VertexId, error) {
	var v uint32
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, err
	}
	return gridstream.VertexId(v), nil
}

func runBFS(path string, start gridstream.VertexId, memoryGiB float64, parallelism int) error {
	ctx := context.Background()

	opts := []gridstream.Option{
		gridstream.WithMemoryBytes(int64(memoryGiB * (1 << 30))),
		gridstream.WithLogger(log.Default()),
	}
	if parallelism > 0 {
		opts = append(opts, gridstream.WithParallelism(parallelism))
	}

	e, err := gridstream.New(ctx, path, opts...)
	if err != nil {
		return fmt.Errorf("New: %w", err)
	}
	defer e.Close()

	if start >= e.Vertices() {
		return fmt.Errorf("start vertex %d out of range [0, %d)", start, e.Vertices())
	}

	parent := make([]int64, e.Vertices())
	for i := range parent {
		parent[i] = -1
	}
	parent[start] = int64(start)

	frontier := e.AllocBitmap()
	frontier.Set(start)
	next := e.AllocBitmap()

	discovered := int64(1)
	for superstep := 0; frontier.Popcount() > 0; superstep++ {
		next.ClearAll()

		n, err := gridstream.StreamEdges[int64](ctx, e, 0, gridstream.ModeTarget, func(edge gridstream.Edge) int64 {
			if atomic.CompareAndSwapInt64(&parent[edge.Target], -1, int64(edge.Source)) {
				next.SetAtomic(edge.Target)
				return 1
			}
			return 0
		}, gridstream.WithEdgeBitmap(frontier))
		if err != nil {
			return fmt.Errorf("StreamEdges: %w", err)
		}

		discovered += n
		stats := e.Stats()
		log.Printf("superstep %d: discovered %d new vertices (total %d), read_bytes=%d", superstep, n, discovered, stats.BytesRead)
		frontier, next = next, frontier
	}

	fmt.Printf("start=%d discovered=%d\n", start, discovered)
	for v := gridstream.VertexId(0); v < e.Vertices(); v++ {
		if parent[v] != -1 {
			fmt.Printf("%d\t%d\n", v, parent[v])
		}
	}
	return nil
}
