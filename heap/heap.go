// Package heap implements the kernel's first-fit, split/coalesce free-list
// allocator over a contiguous byte region, with header canaries for
// corruption detection. Headers live inline in the region (not in a side
// Go struct) so that a stray write through a bad task pointer is
// detectable exactly the way real hardware corruption would be: a byte
// written at p-1 must be able to stomp the canary.
//
// Header layout is a fixed 16-byte record read and written with
// encoding/binary rather than an unsafe.Pointer cast: there is no real
// hardware ABI pinning the layout here, so encoding/binary is the
// simpler, equally idiomatic choice.
package heap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
)

const (
	headerSize     = 16
	canarySentinel = 0xC0FFEE42
	noNext         = 0xFFFFFFFF
	splitSlack     = headerSize + 8
)

var (
	// ErrOutOfMemory is returned by Allocate when no free block is large
	// enough to satisfy the request.
	ErrOutOfMemory = errors.New("heap: out of memory")
	// ErrInvalidFree is returned by Free when the pointer is null,
	// out of range, misaligned, or its header's canary does not read the
	// sentinel value.
	ErrInvalidFree = errors.New("heap: invalid free")
)

// header is a view over a 16-byte slot within the heap's arena:
//
//	[0:4)   payload size
//	[4:8)   offset of the next header, or noNext
//	[8:12)  free flag (0 = used, 1 = free)
//	[12:16) canary
type header struct {
	arena []byte
	off   uint32
}

func (h header) size() uint32       { return binary.LittleEndian.Uint32(h.arena[h.off:]) }
func (h header) next() uint32       { return binary.LittleEndian.Uint32(h.arena[h.off+4:]) }
func (h header) free() bool         { return binary.LittleEndian.Uint32(h.arena[h.off+8:]) == 1 }
func (h header) canary() uint32     { return binary.LittleEndian.Uint32(h.arena[h.off+12:]) }
func (h header) payloadOff() uint32 { return h.off + headerSize }

func (h header) setSize(v uint32) { binary.LittleEndian.PutUint32(h.arena[h.off:], v) }
func (h header) setNext(v uint32) { binary.LittleEndian.PutUint32(h.arena[h.off+4:], v) }
func (h header) setFree(v bool) {
	n := uint32(0)
	if v {
		n = 1
	}
	binary.LittleEndian.PutUint32(h.arena[h.off+8:], n)
}
func (h header) setCanary(v uint32) { binary.LittleEndian.PutUint32(h.arena[h.off+12:], v) }

func (h header) valid() bool { return h.canary() == canarySentinel }

// Heap is a first-fit allocator over a caller-provided region.
type Heap struct {
	arena []byte
	base  uint32 // simulated address of arena[0]
	head  uint32 // offset of the first header
}

// New initializes a heap over region, which must back the interval
// [base, base+len(region)). base is rounded up to 4-byte alignment and
// region is a slice of the original backing store starting at that
// aligned point; the caller is expected to have sized region generously
// enough to absorb the rounding.
func New(region []byte, base uint32) *Heap {
	aligned := (base + 3) &^ 3
	skip := aligned - base
	arena := region[skip:]

	h := &Heap{arena: arena, base: aligned, head: 0}
	hd := header{arena: arena, off: 0}
	hd.setSize(uint32(len(arena)) - headerSize)
	hd.setNext(noNext)
	hd.setFree(true)
	hd.setCanary(canarySentinel)
	return h
}

func (h *Heap) headerAt(off uint32) header { return header{arena: h.arena, off: off} }

// Allocate rounds n up to a multiple of 4 and returns the address of a
// payload at least that large, splitting the first sufficiently large
// free block it finds. It returns ErrOutOfMemory if none exists.
func (h *Heap) Allocate(n uint32) (uint32, error) {
	n = (n + 3) &^ 3

	off := h.head
	for {
		hd := h.headerAt(off)
		if hd.free() && hd.size() >= n {
			if hd.size()-n > splitSlack {
				newOff := hd.payloadOff() + n
				newHd := h.headerAt(newOff)
				newHd.setSize(hd.size() - n - headerSize)
				newHd.setNext(hd.next())
				newHd.setFree(true)
				newHd.setCanary(canarySentinel)

				hd.setNext(newOff)
				hd.setSize(n)
			}
			hd.setFree(false)
			return h.base + hd.payloadOff(), nil
		}
		next := hd.next()
		if next == noNext {
			return 0, ErrOutOfMemory
		}
		off = next
	}
}

// Free releases the block at addr. It refuses (without mutating state) a
// null, out-of-range, or misaligned address, or one whose header canary
// has been overwritten.
func (h *Heap) Free(addr uint32) error {
	if addr == 0 || addr < h.base+headerSize {
		return ErrInvalidFree
	}
	payloadOff := addr - h.base
	if payloadOff%4 != 0 || payloadOff < headerSize {
		return ErrInvalidFree
	}
	hdrOff := payloadOff - headerSize
	if payloadOff >= uint32(len(h.arena)) {
		return ErrInvalidFree
	}
	hd := h.headerAt(hdrOff)
	if !hd.valid() {
		log.Printf("heap: canary mismatch at offset %d, refusing free", hdrOff)
		return ErrInvalidFree
	}
	hd.setFree(true)
	return nil
}

// Defrag makes one linear pass absorbing any free header into its free
// successor, repeating at the same position until the merged block's
// successor is not free (or there is none).
func (h *Heap) Defrag() {
	off := h.head
	for {
		hd := h.headerAt(off)
		if hd.free() {
			next := hd.next()
			if next == noNext {
				return
			}
			nh := h.headerAt(next)
			if nh.free() {
				hd.setSize(hd.size() + headerSize + nh.size())
				hd.setNext(nh.next())
				continue // may merge again with the new successor
			}
		}
		next := hd.next()
		if next == noNext {
			return
		}
		off = next
	}
}

// FreeBytes sums the payload size of every free header.
func (h *Heap) FreeBytes() uint32 {
	var total uint32
	off := h.head
	for {
		hd := h.headerAt(off)
		if hd.free() {
			total += hd.size()
		}
		next := hd.next()
		if next == noNext {
			return total
		}
		off = next
	}
}

// Dump writes a human-readable heap map to w, one line per header,
// followed by a running free/used total.
func (h *Heap) Dump(w func(string)) {
	var free, used uint32
	off := h.head
	for {
		hd := h.headerAt(off)
		status := "used"
		if hd.free() {
			status = "free"
			free += hd.size()
		} else {
			used += hd.size()
		}
		canary := "ok"
		if !hd.valid() {
			canary = "CORRUPT"
		}
		w(fmt.Sprintf("0x%08x size=%-6d %s canary=%s", h.base+hd.payloadOff(), hd.size(), status, canary))
		next := hd.next()
		if next == noNext {
			break
		}
		off = next
	}
	w(fmt.Sprintf("total: %d free, %d used", free, used))
}

// Peek reads a 32-bit word at addr, anywhere within the heap's arena
// (header or payload alike) — it mirrors what the PEEK syscall exposes to
// tasks that hold a raw pointer.
func (h *Heap) Peek(addr uint32) (uint32, error) {
	if addr < h.base || addr+4 > h.base+uint32(len(h.arena)) {
		return 0, fmt.Errorf("heap: peek address 0x%08x out of range", addr)
	}
	return binary.LittleEndian.Uint32(h.arena[addr-h.base:]), nil
}

// Poke writes a 32-bit word at addr. Writing within a header's bytes is
// exactly how a task can corrupt a canary and trigger ErrInvalidFree on
// the next Free.
func (h *Heap) Poke(addr uint32, val uint32) error {
	if addr < h.base || addr+4 > h.base+uint32(len(h.arena)) {
		return fmt.Errorf("heap: poke address 0x%08x out of range", addr)
	}
	binary.LittleEndian.PutUint32(h.arena[addr-h.base:], val)
	return nil
}

// PokeByte writes a single byte at addr, anywhere in the arena — the
// smallest possible stray write that can still stomp a header canary.
func (h *Heap) PokeByte(addr uint32, val byte) error {
	if addr < h.base || addr >= h.base+uint32(len(h.arena)) {
		return fmt.Errorf("heap: poke address 0x%08x out of range", addr)
	}
	h.arena[addr-h.base] = val
	return nil
}

// Slice returns the live backing bytes for [addr, addr+n), with no copy —
// callers that need direct byte-region access (the mini file system's disk
// image, addressed by heap.Allocate) alias the same memory the allocator
// itself tracks.
func (h *Heap) Slice(addr, n uint32) ([]byte, error) {
	if addr < h.base || addr+n > h.base+uint32(len(h.arena)) {
		return nil, fmt.Errorf("heap: slice [0x%08x,0x%08x) out of range", addr, addr+n)
	}
	off := addr - h.base
	return h.arena[off : off+n], nil
}

// RegionSize returns the total size of the region this heap manages.
func (h *Heap) RegionSize() uint32 { return uint32(len(h.arena)) }

// Base returns the address corresponding to the start of the region.
func (h *Heap) Base() uint32 { return h.base }
