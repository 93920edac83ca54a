package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestParallelForAtomicCoversAllIndices(t *testing.T) {
	p := New(4)
	defer p.Close()

	const n = 1000
	var seen [n]int32
	p.ParallelForAtomic(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, v := range seen {
		if v != 1 {
			t.Fatalf("index %d visited %d times, want 1", i, v)
		}
	}
}

func TestParallelForAtomicEmpty(t *testing.T) {
	p := New(4)
	defer p.Close()

	called := false
	p.ParallelForAtomic(0, func(int) { called = true })
	if called {
		t.Error("fn should not be called for n == 0")
	}
}

func TestParallelForAtomicSingleWorker(t *testing.T) {
	p := New(1)
	defer p.Close()

	var total int64
	p.ParallelForAtomic(10, func(i int) {
		atomic.AddInt64(&total, int64(i))
	})
	if total != 45 {
		t.Errorf("total = %d, want 45", total)
	}
}

func TestGoRunsEveryFunction(t *testing.T) {
	p := New(4)
	defer p.Close()

	var wg sync.WaitGroup
	results := make(chan int, 4)
	for i := 0; i < 4; i++ {
		i := i
		barrier := p.Go(func() {
			results <- i
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			barrier.Wait()
		}()
	}
	wg.Wait()
	close(results)

	count := 0
	for range results {
		count++
	}
	if count != 4 {
		t.Errorf("got %d results, want 4", count)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(2)
	p.Close()
	p.Close()
}

func TestClosedPoolFallsBackToSequential(t *testing.T) {
	p := New(2)
	p.Close()

	var total int64
	p.ParallelForAtomic(5, func(i int) {
		atomic.AddInt64(&total, 1)
	})
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
}
