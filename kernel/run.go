package kernel

import (
	"github.com/nyfeu-axon/axonk/raw"
	"github.com/nyfeu-axon/axonk/trap"
)

// tickSource is the narrow capability hal.Timer's hosted implementation
// offers beyond the hal.Timer interface itself: a channel delivering one
// value per armed interrupt. Run uses it if present; a Timer that can't
// supply one simply never preempts on its own, leaving Yield/Sleep as the
// only schedule points.
type tickSource interface {
	Fired() <-chan struct{}
}

// Run starts the board: it performs the very first Schedule/Commit and
// kicks off whichever task is chosen, arms the timer for one time slice,
// and then services timer ticks until stop is closed. External interrupts
// are polled on the same cadence as the timer tick rather than on their
// own asynchronous signal — this hosted simulator has no hardware PLIC
// wakeup line to select on, so the two causes share one trap point per
// tick instead of two independent ones.
func (k *Kernel) Run(stop <-chan struct{}) {
	k.mu.Lock()
	k.sc.Schedule()
	k.sc.Commit()
	cur := k.sc.Current()
	if k.timer != nil {
		k.timer.SetIRQDelta(k.tickCycles)
	}
	k.mu.Unlock()
	wake(cur)

	var tickCh <-chan struct{}
	if ts, ok := k.timer.(tickSource); ok {
		tickCh = ts.Fired()
	}

	for {
		select {
		case <-stop:
			return
		case <-tickCh:
			k.runTick()
		}
	}
}

// runTick services one timer interrupt (which re-arms the timer and
// re-schedules) followed by one external-interrupt sweep, then commits and
// hands off if the selection changed.
func (k *Kernel) runTick() {
	k.mu.Lock()
	prev := k.sc.Current()
	trap.Dispatch(k, trap.Cause{Interrupt: true, Code: trap.CauseTimer}, &raw.Regs{})
	trap.Dispatch(k, trap.Cause{Interrupt: true, Code: trap.CauseExternal}, &raw.Regs{})
	k.sc.Commit()
	cur := k.sc.Current()
	k.mu.Unlock()

	if cur == nil || (prev != nil && prev.ID == cur.ID) {
		return
	}
	wake(cur)
}
