// Package mutex implements a single-holder lock: a non-blocking try-lock
// serviced by the kernel dispatcher, with cooperative retry left to the
// caller.
package mutex

// Mutex is owned by whichever subsystem declares it; the kernel only
// inspects and mutates it while servicing LOCK/UNLOCK, inside the trap
// critical section. There is no internal locking here — serialization is
// the caller's job, exactly as a real mutex header would be just two
// plain fields the kernel pokes at.
type Mutex struct {
	locked bool
	owner  uint32
}

// TryLock attempts to acquire the mutex on behalf of task id owner. It
// reports whether the lock was acquired; it never blocks.
func (m *Mutex) TryLock(owner uint32) bool {
	if m.locked {
		return false
	}
	m.locked = true
	m.owner = owner
	return true
}

// Unlock releases the mutex if owner currently holds it. Any other caller
// (including one that never held the lock) is a silent no-op, per spec.
func (m *Mutex) Unlock(owner uint32) {
	if m.locked && m.owner == owner {
		m.locked = false
	}
}

// Locked reports whether the mutex is currently held.
func (m *Mutex) Locked() bool { return m.locked }

// Owner returns the current owner's task id. Its value is undefined when
// the mutex is unlocked.
func (m *Mutex) Owner() uint32 { return m.owner }
