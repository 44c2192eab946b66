// Package kernel wires the scheduler, trap dispatcher, heap, file system,
// mutex registry, and interrupt table into one runnable board. Kernel is
// the concrete trap.Machine the dispatcher calls back into.
package kernel

import (
	"errors"
	"log"
	"sync"

	"github.com/nyfeu-axon/axonk/hal"
	"github.com/nyfeu-axon/axonk/heap"
	"github.com/nyfeu-axon/axonk/irq"
	"github.com/nyfeu-axon/axonk/minifs"
	"github.com/nyfeu-axon/axonk/mutex"
	"github.com/nyfeu-axon/axonk/raw"
	"github.com/nyfeu-axon/axonk/sched"
	"github.com/nyfeu-axon/axonk/trap"
)

const (
	// heapBase is the simulated address of arena[0] — off zero so a null
	// pointer is never mistaken for a valid allocation.
	heapBase = 0x80000000
	// failCode is returned in place of a syscall's normal result when the
	// operation could not be serviced at all (bad handle, bad address).
	failCode = 0xFFFFFFFF
)

var errSyscallFailed = errors.New("kernel: syscall failed")

// Options configures a Kernel at construction time. Zero sizing values pick
// defaults sized for tests and small demo boards. IRQSources has no
// default: at zero the interrupt table accepts no source id, so New fails
// when both PLIC and Serial are set.
type Options struct {
	MaxTasks    int
	HeapSize    int
	CyclesPerMs uint64
	TickCycles  uint64
	InodeCap    uint32
	BlockCap    uint32
	BlockSize   uint32
	IRQSources  uint32
	// MmapHeap backs the heap arena with an anonymous host memory mapping
	// (heap.NewFromMmap) instead of a plain Go slice.
	MmapHeap bool

	Serial hal.Serial
	Clock  hal.Clock
	Timer  hal.Timer
	PLIC   hal.PLIC
}

func (o *Options) setDefaults() {
	if o.MaxTasks <= 0 {
		o.MaxTasks = 16
	}
	if o.CyclesPerMs == 0 {
		o.CyclesPerMs = 1_000_000
	}
	if o.TickCycles == 0 {
		o.TickCycles = o.CyclesPerMs * 10 // 10ms time slice
	}
	if o.HeapSize <= 0 {
		o.HeapSize = 64 * 1024
	}
	if o.InodeCap == 0 {
		o.InodeCap = 32
	}
	if o.BlockCap == 0 {
		o.BlockCap = 128
	}
}

// Kernel is the board: the scheduler, the byte arena and the file system
// mounted on it, the mutex handle registry, and the interrupt table. mu is
// the trap critical section — exactly the serializing lock a real trap
// handler's "interrupts disabled" window stands in for.
type Kernel struct {
	mu sync.Mutex

	sc *sched.Scheduler
	hp *heap.Heap
	fs *minifs.FS

	irqTbl *irq.Table
	serial hal.Serial
	clock  hal.Clock
	timer  hal.Timer

	tickCycles uint64

	mutexes    map[uint32]*mutex.Mutex
	nextHandle uint32

	resetFn func()
	region  *heap.MmapRegion
}

// New builds a Kernel and mounts its file system. It does not start
// running tasks; call Create for each task and then Run.
func New(opts Options) (*Kernel, error) {
	opts.setDefaults()

	var hp *heap.Heap
	var region *heap.MmapRegion
	if opts.MmapHeap {
		var err error
		hp, region, err = heap.NewFromMmap(opts.HeapSize, heapBase)
		if err != nil {
			return nil, err
		}
	} else {
		hp = heap.New(make([]byte, opts.HeapSize), heapBase)
	}

	sc := sched.New(opts.MaxTasks, opts.Clock, opts.CyclesPerMs, heapBase)

	k := &Kernel{
		sc:         sc,
		hp:         hp,
		serial:     opts.Serial,
		clock:      opts.Clock,
		timer:      opts.Timer,
		tickCycles: opts.TickCycles,
		mutexes:    make(map[uint32]*mutex.Mutex),
		region:     region,
	}

	if opts.PLIC != nil {
		k.irqTbl = irq.NewTable(opts.PLIC, opts.IRQSources)
		if opts.Serial != nil {
			if err := k.irqTbl.Register(opts.Serial.InputIRQSource(), k.onSerialInput); err != nil {
				return nil, err
			}
		}
	}

	fs, err := minifs.Mount(hp, opts.InodeCap, opts.BlockCap, opts.BlockSize)
	if err != nil {
		return nil, err
	}
	k.fs = fs

	return k, nil
}

// SetResetFunc installs the platform reset path Fatal invokes after
// logging. Tests typically install one that records the call instead of
// actually tearing anything down.
func (k *Kernel) SetResetFunc(fn func()) { k.resetFn = fn }

// Close releases the mmap-backed heap arena, if Options.MmapHeap was set.
// It is a no-op for the default Go-slice-backed arena.
func (k *Kernel) Close() error {
	if k.region == nil {
		return nil
	}
	return k.region.Close()
}

// NewMutex registers a fresh, unlocked mutex and returns the handle LOCK
// and UNLOCK address it by. Handle 0 is never issued, so it is safe to use
// as a "no mutex" sentinel.
func (k *Kernel) NewMutex() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextHandle++
	k.mutexes[k.nextHandle] = &mutex.Mutex{}
	return k.nextHandle
}

// Snapshot copies the current scheduling state of every task directly,
// bypassing the syscall/arena round trip GET_TASKS uses — for host-side
// inspection (tests, cmd/axonsh) rather than task code.
func (k *Kernel) Snapshot() []sched.Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()
	buf := make([]sched.Snapshot, k.sc.Len())
	n := k.sc.Snapshot(buf)
	return buf[:n]
}

// FreeHeapBytes reports the allocator's current free-byte total, for
// diagnostics outside any task's own HEAP_INFO call.
func (k *Kernel) FreeHeapBytes() uint32 { return k.hp.FreeBytes() }

func (k *Kernel) onSerialInput() {
	if k.serial == nil {
		return
	}
	b, ok := k.serial.GetC()
	if ok {
		log.Printf("kernel: serial input byte %#x", b)
	}
}

// --- trap.Machine -----------------------------------------------------
//
// Every method below runs inside Dispatch, which the syscall/tick/external
// paths all call with k.mu held: k.sc.Current() during these calls is
// still the task that trapped, since the scheduler's own handoff (Commit)
// has not happened yet.

func (k *Kernel) Yield() { k.sc.Schedule() }

func (k *Kernel) Write(b byte) {
	if k.serial != nil {
		k.serial.PutC(b)
	}
}

func (k *Kernel) Sleep(ms uint32) {
	cur := k.sc.Current()
	if cur == nil {
		return
	}
	k.sc.Sleep(cur.ID, ms)
}

func (k *Kernel) Lock(handle uint32) uint32 {
	m := k.mutexes[handle]
	cur := k.sc.Current()
	if m == nil || cur == nil {
		return failCode
	}
	if m.TryLock(uint32(cur.ID)) {
		return 1
	}
	return 0
}

func (k *Kernel) Unlock(handle uint32) {
	m := k.mutexes[handle]
	cur := k.sc.Current()
	if m == nil || cur == nil {
		return
	}
	m.Unlock(uint32(cur.ID))
}

func (k *Kernel) GetTasks(bufAddr, bufCap uint32) uint32 {
	recSize := uint32(raw.TaskInfoSize)
	maxN := bufCap / recSize
	if maxN == 0 {
		return 0
	}
	snaps := make([]sched.Snapshot, maxN)
	n := k.sc.Snapshot(snaps)
	buf, err := k.hp.Slice(bufAddr, uint32(n)*recSize)
	if err != nil {
		return 0
	}
	for i := 0; i < n; i++ {
		s := snaps[i]
		raw.PutTaskInfo(buf[uint32(i)*recSize:], s.ID, s.Name, int(s.State), s.Priority, s.SP, s.WakeTime)
	}
	return uint32(n)
}

func (k *Kernel) Peek(addr uint32) uint32 {
	v, err := k.hp.Peek(addr)
	if err != nil {
		return failCode
	}
	return v
}

func (k *Kernel) Poke(addr, val uint32) { k.hp.Poke(addr, val) }

func (k *Kernel) HeapInfo() {
	k.hp.Dump(func(line string) {
		for i := 0; i < len(line); i++ {
			k.Write(line[i])
		}
		k.Write('\n')
	})
}

func (k *Kernel) Malloc(size uint32) uint32 {
	addr, err := k.hp.Allocate(size)
	if err != nil {
		return 0
	}
	return addr
}

func (k *Kernel) Free(addr uint32) uint32 {
	if err := k.hp.Free(addr); err != nil {
		return failCode
	}
	return 0
}

func (k *Kernel) Defrag() { k.hp.Defrag() }

func (k *Kernel) Suspend(id uint32) uint32 {
	if err := k.sc.Suspend(int(id)); err != nil {
		return failCode
	}
	return 0
}

func (k *Kernel) Resume(id uint32) uint32 {
	if err := k.sc.Resume(int(id)); err != nil {
		return failCode
	}
	return 0
}

func (k *Kernel) readName(addr, n uint32) (string, bool) {
	b, err := k.hp.Slice(addr, n)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (k *Kernel) FSCreate(nameAddr, nameLen uint32) uint32 {
	name, ok := k.readName(nameAddr, nameLen)
	if !ok {
		return failCode
	}
	if err := k.fs.Create(name); err != nil {
		return fsErrCode(err)
	}
	return 0
}

func (k *Kernel) FSWrite(nameAddr, nameLen, dataAddr, dataLen uint32) uint32 {
	name, ok := k.readName(nameAddr, nameLen)
	if !ok {
		return failCode
	}
	data, err := k.hp.Slice(dataAddr, dataLen)
	if err != nil {
		return failCode
	}
	n, werr := k.fs.Write(name, data)
	if werr != nil {
		return fsErrCode(werr)
	}
	return uint32(n)
}

func (k *Kernel) FSRead(nameAddr, nameLen, bufAddr, bufLen uint32) uint32 {
	name, ok := k.readName(nameAddr, nameLen)
	if !ok {
		return failCode
	}
	buf, err := k.hp.Slice(bufAddr, bufLen)
	if err != nil {
		return failCode
	}
	n, rerr := k.fs.Read(name, buf)
	if rerr != nil {
		return fsErrCode(rerr)
	}
	return uint32(n)
}

// FSList renders the directory into the caller's buffer, null-terminated,
// and returns 0 on success or failCode on error.
func (k *Kernel) FSList(bufAddr, bufLen uint32) uint32 {
	buf, err := k.hp.Slice(bufAddr, bufLen)
	if err != nil {
		return failCode
	}
	k.fs.List(buf)
	return 0
}

func (k *Kernel) FSDelete(nameAddr, nameLen uint32) uint32 {
	name, ok := k.readName(nameAddr, nameLen)
	if !ok {
		return failCode
	}
	if err := k.fs.Delete(name); err != nil {
		return fsErrCode(err)
	}
	return 0
}

func (k *Kernel) FSFormat() { k.fs.Format() }

func (k *Kernel) Tick() {
	if k.timer != nil {
		k.timer.SetIRQDelta(k.tickCycles)
	}
	k.sc.Schedule()
}

func (k *Kernel) ExternalInterrupt() {
	if k.irqTbl != nil {
		k.irqTbl.Dispatch()
	}
}

func (k *Kernel) Fatal(cause trap.Cause, pc uint32) {
	log.Printf("kernel: fatal trap (interrupt=%v code=%d) at pc=0x%08x", cause.Interrupt, cause.Code, pc)
	if k.resetFn != nil {
		k.resetFn()
	}
}
