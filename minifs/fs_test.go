package minifs

import (
	"bytes"
	"testing"

	"github.com/nyfeu-axon/axonk/heap"
)

func mount(t *testing.T, inodeCap, blockCap uint32) *FS {
	t.Helper()
	region := make([]byte, 64*1024)
	h := heap.New(region, 0x2000)
	fs, err := Mount(h, inodeCap, blockCap, DefaultBlockSize)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return fs
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	fs := mount(t, 16, 64)

	if err := fs.Create("notes.txt"); err != nil {
		t.Fatalf("create: %v", err)
	}
	data := bytes.Repeat([]byte("x"), DirectBlocks*DefaultBlockSize-1)
	n, err := fs.Write("notes.txt", data)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != len(data) {
		t.Fatalf("wrote %d bytes, want %d", n, len(data))
	}

	buf := make([]byte, len(data))
	got, err := fs.Read("notes.txt", buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != len(data) || !bytes.Equal(buf[:got], data) {
		t.Fatalf("round trip mismatch: got %d bytes", got)
	}
}

func TestCreateExists(t *testing.T) {
	fs := mount(t, 16, 64)
	if err := fs.Create("a"); err != nil {
		t.Fatal(err)
	}
	if err := fs.Create("a"); err != ErrExists {
		t.Fatalf("Create duplicate = %v, want ErrExists", err)
	}
}

func TestWriteTooLarge(t *testing.T) {
	fs := mount(t, 16, 64)
	fs.Create("big")
	data := make([]byte, (DirectBlocks+1)*DefaultBlockSize)
	if _, err := fs.Write("big", data); err != ErrTooLarge {
		t.Fatalf("Write oversized = %v, want ErrTooLarge", err)
	}
}

func TestDeleteIsIdempotentAndRestoresCounts(t *testing.T) {
	fs := mount(t, 16, 64)
	fs.Create("f")
	fs.Write("f", []byte("hello"))

	freeInodesBefore := fs.FreeInodes()
	freeBlocksBefore := fs.FreeBlocks()

	if err := fs.Delete("f"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := fs.Delete("f"); err != ErrNotFound {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}

	if got := fs.FreeInodes(); got != freeInodesBefore+1 {
		t.Fatalf("free inodes after delete = %d, want %d", got, freeInodesBefore+1)
	}
	if got := fs.FreeBlocks(); got != freeBlocksBefore+1 {
		t.Fatalf("free blocks after delete = %d, want %d", got, freeBlocksBefore+1)
	}
}

func TestCreateReturnsNoInodeAfterInodesExhausted(t *testing.T) {
	fs := mount(t, 4, 64) // 1 root + 3 usable inodes

	created := 0
	var lastErr error
	for i := 0; i < 10; i++ {
		name := string(rune('a' + i))
		if err := fs.Create(name); err != nil {
			lastErr = err
			break
		}
		created++
	}
	if created != 3 {
		t.Fatalf("created %d files, want 3", created)
	}
	if lastErr != ErrNoInode {
		t.Fatalf("exhaustion error = %v, want ErrNoInode", lastErr)
	}
}

func TestList(t *testing.T) {
	fs := mount(t, 16, 64)
	fs.Create("one")
	fs.Create("two")

	buf := make([]byte, 256)
	n := fs.List(buf)
	out := string(buf[:n])
	if !bytes.Contains([]byte(out), []byte("one")) || !bytes.Contains([]byte(out), []byte("two")) {
		t.Fatalf("list output missing entries: %q", out)
	}
}

func TestStat(t *testing.T) {
	fs := mount(t, 16, 64)
	fs.Create("f")
	fs.Write("f", []byte("abc"))

	size, typ, err := fs.Stat("f")
	if err != nil {
		t.Fatal(err)
	}
	if size != 3 || typ != TypeFile {
		t.Fatalf("stat = (%d, %d), want (3, %d)", size, typ, TypeFile)
	}
}
