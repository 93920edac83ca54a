package gridio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMapsFileContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "row_offset")

	var want []byte
	for i := uint64(0); i < 8; i++ {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, i*17)
		want = append(want, b...)
	}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if m.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(want))
	}
	if string(m.Bytes()) != string(want) {
		t.Errorf("mapped bytes mismatch")
	}

	got := binary.LittleEndian.Uint64(m.Bytes()[3*8:])
	if got != 3*17 {
		t.Errorf("offset[3] = %d, want %d", got, 3*17)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
