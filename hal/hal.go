// Package hal names the hardware abstraction interfaces the kernel trusts
// but never implements itself: UART byte I/O, a monotonic cycle counter and
// compare register, and an external-interrupt controller. Real drivers for
// a given board live outside this package; hal/hostsim provides a
// host-process stand-in so the rest of the kernel is testable without real
// RISC-V hardware.
package hal

// Serial is the board's UART.
type Serial interface {
	PutC(b byte)
	GetC() (b byte, ok bool)
	HasInput() bool
	// InputIRQSource is the external-interrupt source id the controller
	// raises when input becomes available.
	InputIRQSource() uint32
}

// Clock is the monotonic cycle counter.
type Clock interface {
	Cycles() uint64
}

// Timer arms the next timer interrupt relative to now.
type Timer interface {
	SetIRQDelta(cycles uint64)
}

// PLIC is the external-interrupt controller: claim/complete the pending
// source, and configure a source's priority and enablement. It is the
// same shape irq.Controller consumes.
type PLIC interface {
	Claim() uint32
	Complete(source uint32)
	SetPriority(source uint32, level uint32)
	Enable(source uint32)
}
