package heap

import "testing"

func newTestHeap(t *testing.T, size int) *Heap {
	t.Helper()
	region := make([]byte, size)
	return New(region, 0x1000)
}

func TestAllocateReturnsDistinctAlignedPointers(t *testing.T) {
	h := newTestHeap(t, 4096)

	a, err := h.Allocate(64)
	if err != nil {
		t.Fatalf("allocate a: %v", err)
	}
	b, err := h.Allocate(64)
	if err != nil {
		t.Fatalf("allocate b: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct pointers, got %#x twice", a)
	}
	if a%4 != 0 || b%4 != 0 {
		t.Fatalf("pointers must be 4-byte aligned: %#x %#x", a, b)
	}
}

func TestSplitAndCoalesce(t *testing.T) {
	h := newTestHeap(t, 4096)
	region := h.RegionSize()

	a, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	c, err := h.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}

	before := h.FreeBytes()
	if err := h.Free(b); err != nil {
		t.Fatalf("free b: %v", err)
	}
	if got := h.FreeBytes(); got < before+64 {
		t.Fatalf("free_bytes did not grow by >= 64: before=%d after=%d", before, got)
	}

	if err := h.Free(a); err != nil {
		t.Fatalf("free a: %v", err)
	}
	h.Defrag()

	if err := h.Free(c); err != nil {
		t.Fatalf("free c: %v", err)
	}
	h.Defrag()

	if got := h.FreeBytes(); got != region-headerSize {
		t.Fatalf("free_bytes after full defrag = %d, want %d", got, region-headerSize)
	}
}

func TestFreeRefusesCorruptedCanary(t *testing.T) {
	h := newTestHeap(t, 4096)

	p, err := h.Allocate(32)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.PokeByte(p-1, 0xff); err != nil {
		t.Fatalf("poke byte: %v", err)
	}
	if err := h.Free(p); err != ErrInvalidFree {
		t.Fatalf("Free on corrupted header = %v, want ErrInvalidFree", err)
	}
}

func TestFreeRefusesUnknownPointer(t *testing.T) {
	h := newTestHeap(t, 4096)

	if err := h.Free(0); err != ErrInvalidFree {
		t.Fatalf("Free(0) = %v, want ErrInvalidFree", err)
	}
	if err := h.Free(h.Base() + 100000); err != ErrInvalidFree {
		t.Fatalf("Free(out-of-range) = %v, want ErrInvalidFree", err)
	}
}

func TestOutOfMemory(t *testing.T) {
	h := newTestHeap(t, 128)

	if _, err := h.Allocate(1 << 20); err != ErrOutOfMemory {
		t.Fatalf("Allocate(huge) = %v, want ErrOutOfMemory", err)
	}
}

func TestNoContiguousFreesSurviveDefrag(t *testing.T) {
	h := newTestHeap(t, 4096)

	a, err := h.Allocate(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Allocate(32)
	if err != nil {
		t.Fatal(err)
	}

	if err := h.Free(a); err != nil {
		t.Fatal(err)
	}
	if err := h.Free(b); err != nil {
		t.Fatal(err)
	}
	h.Defrag()

	off := h.head
	prevFree := false
	for {
		hd := h.headerAt(off)
		if hd.free() && prevFree {
			t.Fatalf("two neighboring headers are both free after defrag")
		}
		prevFree = hd.free()
		next := hd.next()
		if next == noNext {
			break
		}
		off = next
	}
}
