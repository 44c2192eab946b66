package minifs

import (
	"errors"
	"fmt"
	"sync"
)

// Errors returned by FS operations, surfaced to the syscall layer as small
// negative codes.
var (
	ErrExists   = errors.New("minifs: file exists")
	ErrNotFound = errors.New("minifs: file not found")
	ErrNoInode  = errors.New("minifs: no free inode")
	ErrDirFull  = errors.New("minifs: root directory full")
	ErrTooLarge = errors.New("minifs: file exceeds direct block limit")
	ErrNameLen  = errors.New("minifs: name exceeds limit")

	errDiskFull = errors.New("minifs: no free data block")
)

// FS is a mounted, RAM-resident mini file system with a single flat root
// directory.
type FS struct {
	mu sync.Mutex

	disk      []byte
	inodeCap  uint32
	blockCap  uint32
	blockSize uint32
	ibmOff    uint32
	bbmOff    uint32
	itOff     uint32
	dataOff   uint32
}

// Size returns the number of bytes Mount must carve out of the heap for
// the given capacities.
func Size(inodeCap, blockCap, blockSize uint32) uint32 {
	return superblockSize + bitmapBytes(inodeCap) + bitmapBytes(blockCap) +
		inodeCap*inodeRecordSize + blockCap*blockSize
}

// Mount allocates the disk image from alloc and formats it. inodeCap must
// be at least 1 (the root directory consumes inode 0).
func Mount(alloc Allocator, inodeCap, blockCap, blockSize uint32) (*FS, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	size := Size(inodeCap, blockCap, blockSize)
	addr, err := alloc.Allocate(size)
	if err != nil {
		return nil, fmt.Errorf("minifs: mount: %w", err)
	}
	disk, err := alloc.Slice(addr, size)
	if err != nil {
		return nil, fmt.Errorf("minifs: mount: %w", err)
	}

	fs := &FS{
		disk:      disk,
		inodeCap:  inodeCap,
		blockCap:  blockCap,
		blockSize: blockSize,
	}
	fs.layout()
	fs.format()
	return fs, nil
}

func (fs *FS) layout() {
	fs.ibmOff = superblockSize
	fs.bbmOff = fs.ibmOff + bitmapBytes(fs.inodeCap)
	fs.itOff = fs.bbmOff + bitmapBytes(fs.blockCap)
	fs.dataOff = fs.itOff + fs.inodeCap*inodeRecordSize
}

func (fs *FS) super() superblock { return superblock{fs.disk[0:superblockSize]} }

func (fs *FS) inodeBitmap() bitmap {
	return bitmap{fs.disk[fs.ibmOff : fs.ibmOff+bitmapBytes(fs.inodeCap)], fs.inodeCap}
}

func (fs *FS) blockBitmap() bitmap {
	return bitmap{fs.disk[fs.bbmOff : fs.bbmOff+bitmapBytes(fs.blockCap)], fs.blockCap}
}

func (fs *FS) inodeAt(i uint32) inode {
	off := fs.itOff + i*inodeRecordSize
	return inode{fs.disk[off : off+inodeRecordSize]}
}

func (fs *FS) blockAt(i uint32) []byte {
	off := fs.dataOff + i*fs.blockSize
	return fs.disk[off : off+fs.blockSize]
}

func (fs *FS) entriesPerBlock() int { return int(fs.blockSize) / dirEntrySize }

func (fs *FS) dirEntry(blockIdx uint32, slot int) dirent {
	b := fs.blockAt(blockIdx)
	off := slot * dirEntrySize
	return dirent{b[off : off+dirEntrySize]}
}

// Format zeroes the entire region and (re)initializes the root directory.
// Mount calls this once; it is also reachable directly as the FS_FORMAT
// syscall.
func (fs *FS) Format() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.format()
}

func (fs *FS) format() {
	for i := range fs.disk {
		fs.disk[i] = 0
	}
	sb := fs.super()
	sb.setMagic(superblockMagic)
	sb.setInodeCap(fs.inodeCap)
	sb.setBlockCap(fs.blockCap)
	sb.setBlockSize(fs.blockSize)
	sb.setFreeInodes(fs.inodeCap)
	sb.setFreeBlocks(fs.blockCap)

	ibm := fs.inodeBitmap()
	ibm.set(RootInode)
	sb.setFreeInodes(fs.inodeCap - 1)

	blk, _ := fs.allocBlockLocked()

	root := fs.inodeAt(RootInode)
	root.setTyp(TypeDir)
	root.setSize(0)
	root.setBlockCount(1)
	root.setDirect(0, blk)

	n := fs.entriesPerBlock()
	for slot := 0; slot < n; slot++ {
		fs.dirEntry(blk, slot).clear()
	}
}

func (fs *FS) allocBlockLocked() (uint32, error) {
	bbm := fs.blockBitmap()
	idx, ok := bbm.firstFree()
	if !ok {
		return 0, errDiskFull
	}
	bbm.set(idx)
	sb := fs.super()
	sb.setFreeBlocks(sb.freeBlocks() - 1)
	return idx, nil
}

func (fs *FS) freeBlockLocked(idx uint32) {
	bbm := fs.blockBitmap()
	bbm.clear(idx)
	sb := fs.super()
	sb.setFreeBlocks(sb.freeBlocks() + 1)
}

// lookupLocked scans the root directory's blocks for name, returning its
// inode index.
func (fs *FS) lookupLocked(name string) (uint32, bool) {
	root := fs.inodeAt(RootInode)
	n := fs.entriesPerBlock()
	for bi := uint32(0); bi < root.blockCount(); bi++ {
		blk := root.direct(int(bi))
		for slot := 0; slot < n; slot++ {
			de := fs.dirEntry(blk, slot)
			if !de.vacant() && de.name() == name {
				return uint32(de.inodeIndex()), true
			}
		}
	}
	return 0, false
}

// Create allocates a new, empty file named name in the root directory.
func (fs *FS) Create(name string) error {
	if len(name) == 0 || len(name) > MaxNameLen {
		return ErrNameLen
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.lookupLocked(name); ok {
		return ErrExists
	}

	ibm := fs.inodeBitmap()
	idx, ok := ibm.firstFree()
	if !ok {
		return ErrNoInode
	}

	root := fs.inodeAt(RootInode)
	n := fs.entriesPerBlock()
	for bi := uint32(0); bi < root.blockCount(); bi++ {
		blk := root.direct(int(bi))
		for slot := 0; slot < n; slot++ {
			de := fs.dirEntry(blk, slot)
			if de.vacant() {
				ibm.set(idx)
				sb := fs.super()
				sb.setFreeInodes(sb.freeInodes() - 1)

				ino := fs.inodeAt(idx)
				ino.setTyp(TypeFile)
				ino.setSize(0)
				ino.setBlockCount(0)

				de.setInodeIndex(uint16(idx))
				de.setName(name)
				return nil
			}
		}
	}
	return ErrDirFull
}

// Write replaces name's contents with data, releasing any blocks the
// inode previously held first.
func (fs *FS) Write(name string, data []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, ok := fs.lookupLocked(name)
	if !ok {
		return 0, ErrNotFound
	}
	ino := fs.inodeAt(idx)

	for i := uint32(0); i < ino.blockCount(); i++ {
		fs.freeBlockLocked(ino.direct(int(i)))
	}
	ino.setBlockCount(0)
	ino.setSize(0)

	needed := (uint32(len(data)) + fs.blockSize - 1) / fs.blockSize
	if needed > DirectBlocks {
		return 0, ErrTooLarge
	}

	written := 0
	for i := uint32(0); i < needed; i++ {
		blk, err := fs.allocBlockLocked()
		if err != nil {
			ino.setBlockCount(i)
			ino.setSize(uint32(written))
			return written, nil
		}
		ino.setDirect(int(i), blk)
		ino.setBlockCount(i + 1)

		dst := fs.blockAt(blk)
		n := copy(dst, data[written:])
		written += n
	}
	ino.setSize(uint32(written))
	return written, nil
}

// Read copies up to len(buf) bytes of name's contents into buf, honoring
// the inode's recorded size rather than relying on the formatted zero
// fill for a partially used last block.
func (fs *FS) Read(name string, buf []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, ok := fs.lookupLocked(name)
	if !ok {
		return 0, ErrNotFound
	}
	ino := fs.inodeAt(idx)

	total := int(ino.size())
	if total > len(buf) {
		total = len(buf)
	}

	copied := 0
	for i := uint32(0); copied < total; i++ {
		blk := fs.blockAt(ino.direct(int(i)))
		remaining := total - copied
		n := int(fs.blockSize)
		if n > remaining {
			n = remaining
		}
		copy(buf[copied:copied+n], blk[:n])
		copied += n
	}
	return copied, nil
}

// Stat returns name's size and type without reading its contents.
func (fs *FS) Stat(name string) (size uint32, typ uint32, err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, ok := fs.lookupLocked(name)
	if !ok {
		return 0, 0, ErrNotFound
	}
	ino := fs.inodeAt(idx)
	return ino.size(), ino.typ(), nil
}

// Delete removes name: its blocks, its inode, and its directory entry.
func (fs *FS) Delete(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	idx, ok := fs.lookupLocked(name)
	if !ok {
		return ErrNotFound
	}
	ino := fs.inodeAt(idx)
	for i := uint32(0); i < ino.blockCount(); i++ {
		fs.freeBlockLocked(ino.direct(int(i)))
	}
	ino.setBlockCount(0)
	ino.setSize(0)
	ino.setTyp(TypeFree)

	ibm := fs.inodeBitmap()
	ibm.clear(idx)
	sb := fs.super()
	sb.setFreeInodes(sb.freeInodes() + 1)

	root := fs.inodeAt(RootInode)
	n := fs.entriesPerBlock()
	for bi := uint32(0); bi < root.blockCount(); bi++ {
		blk := root.direct(int(bi))
		for slot := 0; slot < n; slot++ {
			de := fs.dirEntry(blk, slot)
			if !de.vacant() && uint32(de.inodeIndex()) == idx {
				de.clear()
				return nil
			}
		}
	}
	return nil
}

// List renders every non-vacant root entry as "  name\n" into buf,
// null-terminating the result, and returns the number of bytes written
// before the terminator. It never writes past len(buf).
func (fs *FS) List(buf []byte) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	root := fs.inodeAt(RootInode)
	n := fs.entriesPerBlock()
	off := 0
	for bi := uint32(0); bi < root.blockCount(); bi++ {
		blk := root.direct(int(bi))
		for slot := 0; slot < n; slot++ {
			de := fs.dirEntry(blk, slot)
			if de.vacant() {
				continue
			}
			line := "  " + de.name() + "\n"
			if off+len(line) >= len(buf) {
				if off < len(buf) {
					buf[off] = 0
				}
				return off
			}
			off += copy(buf[off:], line)
		}
	}
	if off < len(buf) {
		buf[off] = 0
	}
	return off
}

// FreeInodes returns the number of inode-bitmap bits currently clear.
func (fs *FS) FreeInodes() uint32 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.inodeBitmap().freeCount()
}

// FreeBlocks returns the number of block-bitmap bits currently clear.
func (fs *FS) FreeBlocks() uint32 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.blockBitmap().freeCount()
}
