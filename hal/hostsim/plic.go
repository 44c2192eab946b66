package hostsim

import "sync"

// PLIC is a software stand-in for a platform-level external-interrupt
// controller: a priority-ordered pending set, claimed and completed by
// the trap dispatcher's external-interrupt arm.
type PLIC struct {
	mu         sync.Mutex
	pending    []uint32
	priorities map[uint32]uint32
	enabled    map[uint32]bool
}

// NewPLIC returns an empty controller.
func NewPLIC() *PLIC {
	return &PLIC{
		priorities: make(map[uint32]uint32),
		enabled:    make(map[uint32]bool),
	}
}

// Raise marks source pending, if it is enabled and not already pending.
func (p *PLIC) Raise(source uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled[source] {
		return
	}
	for _, s := range p.pending {
		if s == source {
			return
		}
	}
	p.pending = append(p.pending, source)
}

// Claim returns the highest-priority pending source (ties broken by
// arrival order), or 0 if none is pending.
func (p *PLIC) Claim() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return 0
	}
	best := 0
	for i, s := range p.pending {
		if p.priorities[s] > p.priorities[p.pending[best]] {
			best = i
		}
	}
	src := p.pending[best]
	p.pending = append(p.pending[:best], p.pending[best+1:]...)
	return src
}

// Complete acknowledges a serviced source. There is no in-service bit to
// clear in this simulator; it exists to satisfy hal.PLIC's contract.
func (p *PLIC) Complete(source uint32) {}

// SetPriority records source's interrupt priority level.
func (p *PLIC) SetPriority(source, level uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priorities[source] = level
}

// Enable allows source to become pending via Raise.
func (p *PLIC) Enable(source uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled[source] = true
}
