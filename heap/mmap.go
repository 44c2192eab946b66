package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapRegion is an anonymous, page-aligned host memory mapping standing in
// for the board's dedicated RAM region: a byte region obtained directly
// from the kernel rather than the Go allocator, so canary corruption in
// the arena can never be masked by Go's own heap bookkeeping.
type MmapRegion struct {
	bytes []byte
}

// NewMmapRegion allocates size bytes of anonymous, zeroed memory via mmap.
func NewMmapRegion(size int) (*MmapRegion, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("heap: mmap %d bytes: %w", size, err)
	}
	return &MmapRegion{bytes: b}, nil
}

// Bytes returns the backing slice.
func (m *MmapRegion) Bytes() []byte { return m.bytes }

// Close unmaps the region. Calling any heap built on it afterward is
// undefined, exactly as with any use-after-free of raw host memory.
func (m *MmapRegion) Close() error {
	if m.bytes == nil {
		return nil
	}
	err := unix.Munmap(m.bytes)
	m.bytes = nil
	return err
}

// NewFromMmap is heap.New backed by an anonymous mmap region instead of a
// plain Go slice, for callers that want the heap region to be real host
// memory (e.g. so external tools can inspect /proc/<pid>/maps) rather than
// GC-managed memory.
func NewFromMmap(size int, base uint32) (*Heap, *MmapRegion, error) {
	region, err := NewMmapRegion(size)
	if err != nil {
		return nil, nil, err
	}
	return New(region.Bytes(), base), region, nil
}
