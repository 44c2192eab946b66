package sched

import "errors"

// Errors returned by the scheduler's public contract.
var (
	ErrTooMany     = errors.New("sched: task pool is full")
	ErrNotFound    = errors.New("sched: unknown task id")
	ErrRefusedIdle = errors.New("sched: cannot suspend the idle task")
)

// Clock supplies the monotonic cycle count sleep/schedule need to decide
// when a blocked task wakes. hal.Clock satisfies this by method shape.
type Clock interface {
	Cycles() uint64
}

// Scheduler holds the static TCB pool and the current/next selection the
// trap epilogue consumes. All of its state is mutated only by a single
// caller at a time — the trap handler is the serializing agent; Scheduler
// itself holds no lock.
type Scheduler struct {
	pool []*TCB

	current *TCB
	next    *TCB

	clock       Clock
	cyclesPerMs uint64
	kernelGP    uint32
	entryTokens uint32
}

// New creates a scheduler with a static pool of the given capacity.
func New(capacity int, clock Clock, cyclesPerMs uint64, kernelGP uint32) *Scheduler {
	s := &Scheduler{clock: clock, cyclesPerMs: cyclesPerMs, kernelGP: kernelGP}
	s.Init(capacity)
	return s
}

// Init resets the pool to empty; the current task becomes undefined.
func (s *Scheduler) Init(capacity int) {
	s.pool = make([]*TCB, 0, capacity)
	s.current = nil
	s.next = nil
}

func (s *Scheduler) byID(id int) *TCB {
	if id < 0 || id >= len(s.pool) {
		return nil
	}
	return s.pool[id]
}

func trimName(name string) string {
	if len(name) > MaxNameLen {
		return name[:MaxNameLen]
	}
	return name
}

// Create allocates a TCB from the static pool, forges its initial saved
// register image, and returns its stable id.
func (s *Scheduler) Create(name string, priority int) (int, error) {
	if len(s.pool) == cap(s.pool) {
		return 0, ErrTooMany
	}
	id := len(s.pool)
	t := &TCB{
		ID:       id,
		Name:     trimName(name),
		State:    Ready,
		Priority: priority,
		Resume:   make(chan struct{}, 1),
	}
	s.entryTokens++
	t.forge(s.entryTokens, s.kernelGP)
	s.pool = append(s.pool, t)
	return id, nil
}

// Sleep transitions the calling task from RUNNING to BLOCKED with a wake
// time computed from the current cycle count, then yields by invoking
// Schedule.
func (s *Scheduler) Sleep(id int, ms uint32) {
	t := s.byID(id)
	if t == nil {
		return
	}
	t.State = Blocked
	t.WakeTime = s.clock.Cycles() + uint64(ms)*s.cyclesPerMs
	s.Schedule()
}

// Suspend marks id SUSPENDED. It refuses the idle task (priority 0) and
// unknown ids. If id is the caller's own task, Schedule runs immediately
// so the suspension takes effect on this trap.
func (s *Scheduler) Suspend(id int) error {
	t := s.byID(id)
	if t == nil {
		return ErrNotFound
	}
	if t.Priority == 0 {
		return ErrRefusedIdle
	}
	t.State = Suspended
	if s.current != nil && s.current.ID == id {
		s.Schedule()
	}
	return nil
}

// Resume transitions id from SUSPENDED to READY; it is a no-op in any
// other state.
func (s *Scheduler) Resume(id int) error {
	t := s.byID(id)
	if t == nil {
		return ErrNotFound
	}
	if t.State == Suspended {
		t.State = Ready
	}
	return nil
}

// Schedule runs the three-phase selection (wake sweep, candidate search,
// idle fallback) and records the result as the next-task pointer. It does
// not commit next as current — that happens in Commit, once the caller
// has performed the actual handoff in the trap epilogue.
func (s *Scheduler) Schedule() {
	if len(s.pool) == 0 {
		return
	}
	now := s.clock.Cycles()
	for _, t := range s.pool {
		if t.State == Blocked && t.WakeTime <= now {
			t.State = Ready
		}
	}

	start := 0
	if s.current != nil {
		start = (s.current.ID + 1) % len(s.pool)
	}

	var best *TCB
	for i := 0; i < len(s.pool); i++ {
		t := s.pool[(start+i)%len(s.pool)]
		if (t.State == Ready || t.State == Running) && t.Priority > 0 {
			if best == nil || t.Priority > best.Priority {
				best = t
			}
		}
	}
	if best == nil {
		for _, t := range s.pool {
			if t.Priority == 0 {
				best = t
				break
			}
		}
	}
	if best == nil {
		return // no idle task registered: leave the selection unchanged
	}

	s.next = best
	if best.State == Ready {
		best.State = Running
	}
	if s.current != nil && s.current.State == Running && s.current.ID != best.ID {
		s.current.State = Ready
	}
}

// Commit makes Next the current task. Callers invoke it once they have
// performed whatever stack/goroutine handoff "current != next" demanded.
func (s *Scheduler) Commit() {
	s.current = s.next
}

// Current returns the task the scheduler currently considers running, or
// nil before the first Commit call.
func (s *Scheduler) Current() *TCB { return s.current }

// Next returns the task selected by the most recent Schedule call.
func (s *Scheduler) Next() *TCB { return s.next }

// Task returns the TCB for id, or nil if it does not exist.
func (s *Scheduler) Task(id int) *TCB { return s.byID(id) }

// Snapshot is the data copied by GET_TASKS / Scheduler.Snapshot: a
// read-only view of one TCB's scheduling-relevant fields.
type Snapshot struct {
	ID       int
	Name     string
	State    State
	Priority int
	SP       uint32
	WakeTime uint64
}

// Snapshot copies up to len(buf) tasks' id/name/state/priority/sp/wake_time
// into buf, returning the number copied.
func (s *Scheduler) Snapshot(buf []Snapshot) int {
	n := 0
	for _, t := range s.pool {
		if n >= len(buf) {
			break
		}
		buf[n] = Snapshot{
			ID:       t.ID,
			Name:     t.Name,
			State:    t.State,
			Priority: t.Priority,
			SP:       t.SP,
			WakeTime: t.WakeTime,
		}
		n++
	}
	return n
}

// Len returns the number of tasks created so far.
func (s *Scheduler) Len() int { return len(s.pool) }
