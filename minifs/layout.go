// Package minifs implements the RAM-resident inode-and-bitmap file store:
// a superblock, two bitmaps, an inode table, and a data-block region, all
// addressed as typed offsets into one byte region obtained from the
// kernel heap and keyed by small integer inode numbers rather than
// pointers.
package minifs

import "encoding/binary"

const (
	// DefaultBlockSize is the file system's default block size in bytes.
	DefaultBlockSize = 256
	// DirectBlocks is the fixed direct-block array length per inode.
	DirectBlocks = 6
	// MaxNameLen is the stored name length, null-padded.
	MaxNameLen = 28

	vacantSentinel = 0xFFFF

	superblockMagic = 0x41584653 // "AXFS"
	superblockSize  = 32

	inodeRecordSize = 4 + 4 + 4 + 4*DirectBlocks // size + type + blockCount + direct[]
	dirEntrySize    = 2 + MaxNameLen
)

// Inode types.
const (
	TypeFree = 0
	TypeFile = 1
	TypeDir  = 2
)

// RootInode is the single flat namespace's directory inode index.
const RootInode = 0

// Allocator is the subset of heap.Heap the file system needs: a place to
// carve its disk image out of, and direct byte access to it.
type Allocator interface {
	Allocate(size uint32) (uint32, error)
	Slice(addr, size uint32) ([]byte, error)
}

// superblock is a fixed 32-byte view:
//
//	[0:4)   magic
//	[4:8)   inode capacity
//	[8:12)  block capacity
//	[12:16) block size
//	[16:20) free inodes
//	[20:24) free blocks
type superblock struct{ b []byte }

func (s superblock) magic() uint32          { return binary.LittleEndian.Uint32(s.b[0:]) }
func (s superblock) inodeCap() uint32       { return binary.LittleEndian.Uint32(s.b[4:]) }
func (s superblock) blockCap() uint32       { return binary.LittleEndian.Uint32(s.b[8:]) }
func (s superblock) blockSize() uint32      { return binary.LittleEndian.Uint32(s.b[12:]) }
func (s superblock) freeInodes() uint32     { return binary.LittleEndian.Uint32(s.b[16:]) }
func (s superblock) freeBlocks() uint32     { return binary.LittleEndian.Uint32(s.b[20:]) }
func (s superblock) setMagic(v uint32)      { binary.LittleEndian.PutUint32(s.b[0:], v) }
func (s superblock) setInodeCap(v uint32)   { binary.LittleEndian.PutUint32(s.b[4:], v) }
func (s superblock) setBlockCap(v uint32)   { binary.LittleEndian.PutUint32(s.b[8:], v) }
func (s superblock) setBlockSize(v uint32)  { binary.LittleEndian.PutUint32(s.b[12:], v) }
func (s superblock) setFreeInodes(v uint32) { binary.LittleEndian.PutUint32(s.b[16:], v) }
func (s superblock) setFreeBlocks(v uint32) { binary.LittleEndian.PutUint32(s.b[20:], v) }

// inode is a fixed-size view over one inode table record:
//
//	[0:4)                     size in bytes
//	[4:8)                     type
//	[8:12)                    block count
//	[12:12+4*DirectBlocks)    direct block indices
type inode struct{ b []byte }

func (n inode) size() uint32       { return binary.LittleEndian.Uint32(n.b[0:]) }
func (n inode) typ() uint32        { return binary.LittleEndian.Uint32(n.b[4:]) }
func (n inode) blockCount() uint32 { return binary.LittleEndian.Uint32(n.b[8:]) }
func (n inode) direct(i int) uint32 {
	return binary.LittleEndian.Uint32(n.b[12+4*i:])
}
func (n inode) setSize(v uint32)       { binary.LittleEndian.PutUint32(n.b[0:], v) }
func (n inode) setTyp(v uint32)        { binary.LittleEndian.PutUint32(n.b[4:], v) }
func (n inode) setBlockCount(v uint32) { binary.LittleEndian.PutUint32(n.b[8:], v) }
func (n inode) setDirect(i int, v uint32) {
	binary.LittleEndian.PutUint32(n.b[12+4*i:], v)
}

// dirent is a fixed-size view over one directory entry:
//
//	[0:2)               inode index, or vacantSentinel
//	[2:2+MaxNameLen)     null-padded name
type dirent struct{ b []byte }

func (d dirent) inodeIndex() uint16 { return binary.LittleEndian.Uint16(d.b[0:]) }
func (d dirent) setInodeIndex(v uint16) {
	binary.LittleEndian.PutUint16(d.b[0:], v)
}
func (d dirent) vacant() bool { return d.inodeIndex() == vacantSentinel }
func (d dirent) name() string {
	i := 0
	for i < MaxNameLen && d.b[2+i] != 0 {
		i++
	}
	return string(d.b[2 : 2+i])
}
func (d dirent) setName(name string) {
	for i := 2; i < 2+MaxNameLen; i++ {
		d.b[i] = 0
	}
	copy(d.b[2:2+MaxNameLen], name)
}
func (d dirent) clear() {
	d.setInodeIndex(vacantSentinel)
	for i := 2; i < 2+MaxNameLen; i++ {
		d.b[i] = 0
	}
}
