package mutex

import "testing"

func TestTryLockSingleHolder(t *testing.T) {
	var m Mutex

	if !m.TryLock(1) {
		t.Fatal("first TryLock should succeed")
	}
	if m.TryLock(2) {
		t.Fatal("second TryLock should report busy")
	}
	if m.Owner() != 1 {
		t.Fatalf("owner = %d, want 1", m.Owner())
	}
}

func TestUnlockOnlyByOwner(t *testing.T) {
	var m Mutex
	m.TryLock(1)

	m.Unlock(2)
	if !m.Locked() {
		t.Fatal("unlock by non-owner must be a no-op")
	}

	m.Unlock(1)
	if m.Locked() {
		t.Fatal("unlock by owner must release the lock")
	}
}

func TestReacquireAfterUnlock(t *testing.T) {
	var m Mutex
	m.TryLock(1)
	m.Unlock(1)

	if !m.TryLock(2) {
		t.Fatal("lock should be acquirable after release")
	}
	if m.Owner() != 2 {
		t.Fatalf("owner = %d, want 2", m.Owner())
	}
}
