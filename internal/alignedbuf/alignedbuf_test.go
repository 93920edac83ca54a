package alignedbuf

import "testing"

func TestAllocLength(t *testing.T) {
	buf := Alloc(4096, 4096)
	if len(buf) != 4096 {
		t.Fatalf("len = %d, want 4096", len(buf))
	}
	if cap(buf) != 4096 {
		t.Fatalf("cap = %d, want 4096 (three-index slice should cap growth)", cap(buf))
	}
}

func TestAllocIsPageAligned(t *testing.T) {
	const pageSize = 4096
	for _, size := range []int{1, 512, 4096, 12288, 65536} {
		buf := Alloc(size, pageSize)
		if len(buf) != size {
			t.Errorf("size %d: len = %d, want %d", size, len(buf), size)
		}
		if addr := uintptrOf(buf); addr%pageSize != 0 {
			t.Errorf("size %d: address %#x not aligned to %d", size, addr, pageSize)
		}
	}
}

func TestNewArena(t *testing.T) {
	const workers = 4
	const bufSize = 12288
	const pageSize = 4096

	a := NewArena(workers, bufSize, pageSize)
	if a.Len() != workers {
		t.Fatalf("Len() = %d, want %d", a.Len(), workers)
	}

	seen := make(map[uintptr]bool)
	for i := 0; i < workers; i++ {
		buf := a.Buffer(i)
		if len(buf) != bufSize {
			t.Errorf("slot %d: len = %d, want %d", i, len(buf), bufSize)
		}
		addr := uintptrOf(buf)
		if addr%pageSize != 0 {
			t.Errorf("slot %d: address %#x not page-aligned", i, addr)
		}
		if seen[addr] {
			t.Errorf("slot %d: address %#x reused from another slot", i, addr)
		}
		seen[addr] = true
	}
}

func TestArenaBufferIndependence(t *testing.T) {
	a := NewArena(2, 16, 16)
	a.Buffer(0)[0] = 0xAB
	if a.Buffer(1)[0] == 0xAB {
		t.Fatal("writing to slot 0 affected slot 1")
	}
}
