package sched

import "github.com/nyfeu-axon/axonk/raw"

// State is one of the five states a task control block can be in.
type State int

const (
	Ready State = iota
	Running
	Blocked
	Suspended
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Suspended:
		return "SUSPENDED"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// MaxNameLen bounds the human-readable task name stored in each TCB.
const MaxNameLen = 15

// StackSize is the compile-time size of each task's exclusively-owned
// stack buffer.
const StackSize = 1024

// TCB is a task control block. The pool is static and fixed-capacity;
// entries are created once during bootstrap and never destroyed or
// recycled afterward.
//
// Since this kernel runs hosted inside a Go process rather than on real
// RV32 hardware, there is no assembly stack to forge: Resume is the
// resumption token a task's goroutine blocks on, standing in for the
// saved stack pointer. Regs and Stack are still carried so the data model
// stays fully present and inspectable from Go (GET_TASKS reports SP; PEEK
// and POKE reach only the heap arena, not a TCB's saved image).
type TCB struct {
	ID       int
	Name     string
	State    State
	Priority int
	WakeTime uint64
	SP       uint32
	Stack    [StackSize]byte
	Regs     raw.Regs

	// Resume is closed by nobody and sent to exactly once per turn: the
	// scheduler wakes a task by sending on its Resume channel, and the
	// task's goroutine blocks receiving from it between turns.
	Resume chan struct{}
}

// forge sets up the initial saved-register image in t.Regs: registers
// zeroed, return address and exception PC set to entryToken (the kernel's
// stand-in for the task's entry address), and the global-pointer register
// copied from the kernel's current value so the task observes the same
// globals. The image is not written into Stack, and SP is the offset of
// the top of Stack rather than the address of a stacked image.
func (t *TCB) forge(entryToken, kernelGP uint32) {
	t.Regs = raw.Regs{}
	t.Regs.X[raw.RA] = entryToken
	t.Regs.PC = entryToken
	t.Regs.X[raw.GP] = kernelGP
	t.SP = uint32(len(t.Stack)) // top of Stack
}
