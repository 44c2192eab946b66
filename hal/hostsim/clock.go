// Package hostsim implements hal's interfaces against the host OS, so the
// kernel can run (and be end-to-end tested) inside a plain Go process
// instead of on real RISC-V hardware. It is a stand-in for board drivers,
// not part of the kernel's own logic.
package hostsim

import "time"

// CyclesPerMs is the conversion factor Clock uses: one "cycle" is one
// nanosecond of host wall-clock time.
const CyclesPerMs = 1_000_000

// Clock is a hal.Clock backed by the host's monotonic clock.
type Clock struct {
	start time.Time
}

// NewClock returns a Clock whose cycle count starts at zero now.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Cycles returns nanoseconds elapsed since the clock was created. Go's
// time.Since reads the runtime's monotonic clock reading, which on this
// host is already torn-read-proof; there is no 32-bit-half compare-register
// pair to guard against here, unlike real hardware's hi/lo mtime registers.
func (c *Clock) Cycles() uint64 {
	return uint64(time.Since(c.start))
}
