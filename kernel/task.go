package kernel

import (
	"bytes"

	"github.com/nyfeu-axon/axonk/heap"
	"github.com/nyfeu-axon/axonk/raw"
	"github.com/nyfeu-axon/axonk/sched"
	"github.com/nyfeu-axon/axonk/trap"
)

// Task is the handle an entry function uses to make environment calls into
// the kernel — the hosted stand-in for a task's ecall instructions. Every
// method traps: it builds a register image, dispatches it under the
// kernel's trap lock, and performs whatever goroutine handoff the
// resulting schedule demands before returning.
type Task struct {
	k  *Kernel
	id int
}

// ID returns the task's scheduler-assigned id.
func (t *Task) ID() int { return t.id }

// Create allocates a TCB and starts entry on its own goroutine, parked
// until the scheduler first selects it. entry runs outside the trap
// critical section, exactly as task code runs outside the kernel on real
// hardware; every Task method it calls traps back in.
func (k *Kernel) Create(name string, priority int, entry func(*Task)) (int, error) {
	k.mu.Lock()
	id, err := k.sc.Create(name, priority)
	k.mu.Unlock()
	if err != nil {
		return 0, err
	}

	tcb := k.sc.Task(id)
	go func() {
		<-tcb.Resume
		entry(&Task{k: k, id: id})
		k.retire(id)
	}()
	return id, nil
}

// retire marks a task TERMINATED once its entry function returns and hands
// off to whatever the scheduler picks next.
func (k *Kernel) retire(id int) {
	k.mu.Lock()
	if tcb := k.sc.Task(id); tcb != nil {
		tcb.State = sched.Terminated
	}
	k.sc.Schedule()
	k.mu.Unlock()
	k.switchAway(id)
}

// syscall builds a minimal register image carrying num and args in
// A7/A0.., traps into Dispatch under the kernel lock, then performs
// whatever handoff the resulting schedule demands.
func (k *Kernel) syscall(id int, num uint32, args ...uint32) uint32 {
	var regs raw.Regs
	regs.X[raw.A7] = num
	for i, a := range args {
		regs.X[raw.A0+i] = a
	}
	k.mu.Lock()
	trap.Dispatch(k, trap.Cause{Code: trap.CauseEnvCall}, &regs)
	k.mu.Unlock()
	k.switchAway(id)
	return regs.X[raw.A0]
}

// switchAway commits whatever Schedule selected during the just-finished
// dispatch. If the selection is still id, this task keeps running and
// returns immediately. Otherwise it wakes whichever task now holds the
// slot and parks id's own goroutine on its resumption token until chosen
// again — the point at which its turn resumes exactly where it trapped.
func (k *Kernel) switchAway(id int) {
	k.mu.Lock()
	k.sc.Commit()
	cur := k.sc.Current()
	k.mu.Unlock()

	if cur != nil && cur.ID == id {
		return
	}
	wake(cur)

	me := k.sc.Task(id)
	if me == nil || me.State == sched.Terminated {
		return
	}
	<-me.Resume
}

// wake delivers one resumption token to t, if one is not already pending.
// At most one pending token is ever meaningful — a second send before the
// first is drained would just be a duplicate "your turn" — so an unready
// channel send is silently dropped rather than blocking the caller.
func wake(t *sched.TCB) {
	if t == nil {
		return
	}
	select {
	case t.Resume <- struct{}{}:
	default:
	}
}

// Yield() := YIELD. Calls schedule unconditionally, giving any other Ready
// task of equal or higher priority a turn.
func (t *Task) Yield() { t.k.syscall(t.id, trap.Yield) }

// WriteByte() := WRITE(b).
func (t *Task) WriteByte(b byte) { t.k.syscall(t.id, trap.Write, uint32(b)) }

// WriteString writes each byte of s via WRITE in turn.
func (t *Task) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		t.WriteByte(s[i])
	}
}

// Sleep() := SLEEP(ms).
func (t *Task) Sleep(ms uint32) { t.k.syscall(t.id, trap.Sleep, ms) }

// Lock() := LOCK(handle). Reports whether the mutex was acquired; it never
// blocks.
func (t *Task) Lock(handle uint32) bool { return t.k.syscall(t.id, trap.Lock, handle) == 1 }

// Unlock() := UNLOCK(handle).
func (t *Task) Unlock(handle uint32) { t.k.syscall(t.id, trap.Unlock, handle) }

// Acquire spins on Lock via repeated Yields — the cooperative retry the
// mutex's non-blocking TryLock leaves to the caller.
func (t *Task) Acquire(handle uint32) {
	for !t.Lock(handle) {
		t.Yield()
	}
}

// Peek() := PEEK(addr).
func (t *Task) Peek(addr uint32) uint32 { return t.k.syscall(t.id, trap.Peek, addr) }

// Poke() := POKE(addr, val).
func (t *Task) Poke(addr, val uint32) { t.k.syscall(t.id, trap.Poke, addr, val) }

// HeapInfo() := HEAP_INFO.
func (t *Task) HeapInfo() { t.k.syscall(t.id, trap.HeapInfo) }

// Malloc() := MALLOC(size).
func (t *Task) Malloc(size uint32) (uint32, error) {
	addr := t.k.syscall(t.id, trap.Malloc, size)
	if addr == 0 {
		return 0, heap.ErrOutOfMemory
	}
	return addr, nil
}

// Free() := FREE(addr).
func (t *Task) Free(addr uint32) error {
	if t.k.syscall(t.id, trap.Free, addr) != 0 {
		return heap.ErrInvalidFree
	}
	return nil
}

// Defrag() := DEFRAG.
func (t *Task) Defrag() { t.k.syscall(t.id, trap.Defrag) }

// Suspend() := SUSPEND(id).
func (t *Task) Suspend(id int) error {
	if t.k.syscall(t.id, trap.Suspend, uint32(id)) != 0 {
		return sched.ErrNotFound
	}
	return nil
}

// Resume() := RESUME(id).
func (t *Task) Resume(id int) error {
	if t.k.syscall(t.id, trap.Resume, uint32(id)) != 0 {
		return sched.ErrNotFound
	}
	return nil
}

// GetTasks() := GET_TASKS(bufAddr, bufCap), returning the number of
// records written at bufAddr.
func (t *Task) GetTasks(bufAddr, bufCap uint32) uint32 {
	return t.k.syscall(t.id, trap.GetTasks, bufAddr, bufCap)
}

// stage copies data into a freshly malloc'd scratch buffer so its address
// can be passed across the addr/len syscall ABI. Placing a task's own
// strings and buffers in its own memory never traps on real hardware —
// only the one syscall that hands the kernel the address does — so
// writeBytes below goes straight to the arena rather than through
// Dispatch.
func (t *Task) stage(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	addr, err := t.Malloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if err := t.k.writeBytes(addr, data); err != nil {
		return 0, err
	}
	return addr, nil
}

func (t *Task) freeIfStaged(addr uint32) {
	if addr != 0 {
		t.Free(addr)
	}
}

// FSCreate() := FS_CREATE(name).
func (t *Task) FSCreate(name string) error {
	addr, err := t.stage([]byte(name))
	if err != nil {
		return err
	}
	defer t.freeIfStaged(addr)
	return fsCodeErr(t.k.syscall(t.id, trap.FSCreate, addr, uint32(len(name))))
}

// FSWrite() := FS_WRITE(name, data), returning the byte count written.
func (t *Task) FSWrite(name string, data []byte) (int, error) {
	nameAddr, err := t.stage([]byte(name))
	if err != nil {
		return 0, err
	}
	defer t.freeIfStaged(nameAddr)

	dataAddr, err := t.stage(data)
	if err != nil {
		return 0, err
	}
	defer t.freeIfStaged(dataAddr)

	code := t.k.syscall(t.id, trap.FSWrite, nameAddr, uint32(len(name)), dataAddr, uint32(len(data)))
	if int32(code) < 0 {
		return 0, fsCodeErr(code)
	}
	return int(code), nil
}

// FSRead() := FS_READ(name, max), returning the bytes actually read.
func (t *Task) FSRead(name string, max uint32) ([]byte, error) {
	nameAddr, err := t.stage([]byte(name))
	if err != nil {
		return nil, err
	}
	defer t.freeIfStaged(nameAddr)

	bufAddr, err := t.Malloc(max)
	if err != nil {
		return nil, err
	}
	defer t.Free(bufAddr)

	code := t.k.syscall(t.id, trap.FSRead, nameAddr, uint32(len(name)), bufAddr, max)
	if int32(code) < 0 {
		return nil, fsCodeErr(code)
	}
	return t.k.readBytes(bufAddr, code)
}

// FSList() := FS_LIST(max), returning the rendered directory listing.
func (t *Task) FSList(max uint32) (string, error) {
	bufAddr, err := t.Malloc(max)
	if err != nil {
		return "", err
	}
	defer t.Free(bufAddr)

	if code := t.k.syscall(t.id, trap.FSList, bufAddr, max); code == failCode {
		return "", errSyscallFailed
	}
	b, err := t.k.readBytes(bufAddr, max)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// FSDelete() := FS_DELETE(name).
func (t *Task) FSDelete(name string) error {
	addr, err := t.stage([]byte(name))
	if err != nil {
		return err
	}
	defer t.freeIfStaged(addr)
	return fsCodeErr(t.k.syscall(t.id, trap.FSDelete, addr, uint32(len(name))))
}

// FSFormat() := FS_FORMAT.
func (t *Task) FSFormat() { t.k.syscall(t.id, trap.FSFormat) }

// writeBytes and readBytes give a task direct access to its own staged
// memory. They take the kernel lock briefly but do not go through
// Dispatch: on real hardware a task's ordinary load/store instructions
// against its own RAM never trap, only the syscall that later hands an
// address across the ABI does.
func (k *Kernel) writeBytes(addr uint32, data []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	dst, err := k.hp.Slice(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (k *Kernel) readBytes(addr uint32, n uint32) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	src, err := k.hp.Slice(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, src)
	return out, nil
}
