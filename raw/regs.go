// Package raw defines the saved register image: the fixed-layout block the
// trap prologue writes onto a task's stack, the dispatcher reads and
// mutates, and the trap epilogue restores. Its field order is frozen
// across those three call sites to match the kernel/user calling
// convention exactly.
package raw

// Register slot indices into Regs.X, naming the RV32 integer ABI. x0 (the
// hardwired zero register) is never saved.
const (
	RA = iota // x1: return address
	SP        // x2: stack pointer
	GP        // x3: global pointer
	TP        // x4: thread pointer
	T0
	T1
	T2
	S0 // x8: frame pointer
	S1
	A0 // x10: first argument / return value
	A1
	A2
	A3
	A4
	A5
	A6
	A7 // x17: syscall number
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6

	numSlots
)

// Regs is the saved image of all 31 general-purpose RV32 registers plus the
// exception program counter. It is what a task's "resumption token" points
// at in this simulator, standing in for the raw stack-pointer address the
// real trap entry would record.
type Regs struct {
	X  [numSlots]uint32
	PC uint32
}

// Arg returns environment-call argument i (A0..A5, i in [0,5]).
func (r *Regs) Arg(i int) uint32 {
	return r.X[A0+i]
}

// SetReturn writes the environment-call return value into slot A0.
func (r *Regs) SetReturn(v uint32) {
	r.X[A0] = v
}

// Syscall returns the syscall number carried in slot A7.
func (r *Regs) Syscall() uint32 {
	return r.X[A7]
}

// envCallWidth is the width in bytes of a single ecall instruction; the
// dispatcher advances the saved PC by this much so a resumed task does not
// re-execute the trap it just serviced.
const envCallWidth = 4

// AdvancePastEnvCall moves the saved PC past the environment-call
// instruction that trapped here. Timer and external-interrupt traps never
// call this: the interrupted instruction has not yet retired.
func (r *Regs) AdvancePastEnvCall() {
	r.PC += envCallWidth
}
