package trap

import (
	"log"

	"github.com/nyfeu-axon/axonk/raw"
)

// Machine is the dispatcher's view of kernel services: everything a
// syscall, a timer tick, or an external interrupt might need to call
// into. A concrete kernel implements it and hands itself to Dispatch.
//
// File-system and buffer operations take addr/len pairs into the
// kernel's byte arena rather than Go strings/slices, matching the real
// environment-call ABI: a task passes a pointer and a length, not a
// managed-language value.
type Machine interface {
	Yield()
	Write(b byte)
	Sleep(ms uint32)

	Lock(mutexHandle uint32) uint32
	Unlock(mutexHandle uint32)

	GetTasks(bufAddr, bufCap uint32) uint32

	Peek(addr uint32) uint32
	Poke(addr, val uint32)

	HeapInfo()
	Malloc(size uint32) uint32
	Free(addr uint32) uint32
	Defrag()

	Suspend(id uint32) uint32
	Resume(id uint32) uint32

	FSCreate(nameAddr, nameLen uint32) uint32
	FSWrite(nameAddr, nameLen, dataAddr, dataLen uint32) uint32
	FSRead(nameAddr, nameLen, bufAddr, bufLen uint32) uint32
	FSList(bufAddr, bufLen uint32) uint32
	FSDelete(nameAddr, nameLen uint32) uint32
	FSFormat()

	// Tick re-arms the timer for another slice and calls schedule.
	Tick()
	// ExternalInterrupt runs the claim/dispatch/complete loop.
	ExternalInterrupt()
	// Fatal handles any cause this dispatcher cannot service: it logs a
	// diagnostic and invokes the platform reset path. The dispatcher
	// returns immediately afterward without touching regs further.
	Fatal(cause Cause, pc uint32)
}

// invalidSyscall is returned in A0 for an out-of-range syscall number —
// an invalid-argument condition, not a fatal one.
const invalidSyscall = 0xFFFFFFFF

// Dispatch is the kernel's single trap entry point. It demultiplexes
// timer ticks, external interrupts, and environment calls by cause.
func Dispatch(m Machine, cause Cause, regs *raw.Regs) {
	switch {
	case cause.IsTimer():
		m.Tick()
	case cause.IsExternal():
		m.ExternalInterrupt()
	case cause.IsEnvCall():
		dispatchEnvCall(m, regs)
	case cause.Interrupt:
		m.Fatal(cause, regs.PC)
	default:
		m.Fatal(cause, regs.PC)
	}
}

func dispatchEnvCall(m Machine, regs *raw.Regs) {
	n := regs.Syscall()
	switch n {
	case Yield:
		m.Yield()
	case Write:
		m.Write(byte(regs.Arg(0)))
	case Sleep:
		m.Sleep(regs.Arg(0))
	case Lock:
		regs.SetReturn(m.Lock(regs.Arg(0)))
	case Unlock:
		m.Unlock(regs.Arg(0))
	case GetTasks:
		regs.SetReturn(m.GetTasks(regs.Arg(0), regs.Arg(1)))
	case Peek:
		regs.SetReturn(m.Peek(regs.Arg(0)))
	case Poke:
		m.Poke(regs.Arg(0), regs.Arg(1))
	case HeapInfo:
		m.HeapInfo()
	case Malloc:
		regs.SetReturn(m.Malloc(regs.Arg(0)))
	case Free:
		regs.SetReturn(m.Free(regs.Arg(0)))
	case Defrag:
		m.Defrag()
	case Suspend:
		regs.SetReturn(m.Suspend(regs.Arg(0)))
	case Resume:
		regs.SetReturn(m.Resume(regs.Arg(0)))
	case FSCreate:
		regs.SetReturn(m.FSCreate(regs.Arg(0), regs.Arg(1)))
	case FSWrite:
		regs.SetReturn(m.FSWrite(regs.Arg(0), regs.Arg(1), regs.Arg(2), regs.Arg(3)))
	case FSRead:
		regs.SetReturn(m.FSRead(regs.Arg(0), regs.Arg(1), regs.Arg(2), regs.Arg(3)))
	case FSList:
		regs.SetReturn(m.FSList(regs.Arg(0), regs.Arg(1)))
	case FSDelete:
		regs.SetReturn(m.FSDelete(regs.Arg(0), regs.Arg(1)))
	case FSFormat:
		m.FSFormat()
	default:
		log.Printf("trap: unknown syscall number %d", n)
		regs.SetReturn(invalidSyscall)
	}
	regs.AdvancePastEnvCall()
}
