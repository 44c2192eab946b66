package sched

import "testing"

type fakeClock struct{ now uint64 }

func (f *fakeClock) Cycles() uint64 { return f.now }

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := New(4, &fakeClock{}, 1000, 0)

	for i := 0; i < 4; i++ {
		id, err := s.Create("t", 1)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if id != i {
			t.Fatalf("id = %d, want %d", id, i)
		}
	}
	if _, err := s.Create("overflow", 1); err != ErrTooMany {
		t.Fatalf("Create over capacity = %v, want ErrTooMany", err)
	}
}

func TestIdleFallbackWhenNoOtherCandidate(t *testing.T) {
	s := New(2, &fakeClock{}, 1000, 0)
	idle, _ := s.Create("idle", 0)

	s.Schedule()
	s.Commit()
	if s.Current().ID != idle {
		t.Fatalf("expected idle fallback, got task %d", s.Current().ID)
	}
}

func TestHigherPriorityAlwaysWins(t *testing.T) {
	s := New(3, &fakeClock{}, 1000, 0)
	_, _ = s.Create("idle", 0)
	low, _ := s.Create("low", 1)
	high, _ := s.Create("high", 2)
	_ = low

	for i := 0; i < 10; i++ {
		s.Schedule()
		s.Commit()
		if s.Current().ID != high {
			t.Fatalf("iteration %d: expected high-priority task %d, got %d", i, high, s.Current().ID)
		}
	}
}

func TestRoundRobinWithinPriorityBand(t *testing.T) {
	s := New(3, &fakeClock{}, 1000, 0)
	a, _ := s.Create("a", 1)
	b, _ := s.Create("b", 1)

	seen := map[int]int{}
	for i := 0; i < 20; i++ {
		s.Schedule()
		s.Commit()
		seen[s.Current().ID]++
	}
	if seen[a] == 0 || seen[b] == 0 {
		t.Fatalf("round robin starved a task: a=%d b=%d", seen[a], seen[b])
	}
}

func TestSleepWakesAfterDeadline(t *testing.T) {
	clk := &fakeClock{now: 0}
	s := New(2, clk, 1000, 0) // 1000 cycles/ms
	_, _ = s.Create("idle", 0)
	task, _ := s.Create("task", 1)

	s.Schedule()
	s.Commit() // task becomes current/running

	s.Sleep(task, 100) // blocks for 100ms == 100000 cycles
	s.Commit()
	if s.Current().ID != 0 {
		t.Fatalf("expected idle to run while task sleeps, got %d", s.Current().ID)
	}

	clk.now = 99999
	s.Schedule()
	s.Commit()
	if s.Current().ID == task {
		t.Fatalf("task woke up too early")
	}

	clk.now = 100000
	s.Schedule()
	s.Commit()
	if s.Current().ID != task {
		t.Fatalf("task did not wake at deadline, current = %d", s.Current().ID)
	}
}

func TestSuspendRefusesIdleAndUnknown(t *testing.T) {
	s := New(2, &fakeClock{}, 1000, 0)
	idle, _ := s.Create("idle", 0)

	if err := s.Suspend(idle); err != ErrRefusedIdle {
		t.Fatalf("Suspend(idle) = %v, want ErrRefusedIdle", err)
	}
	if err := s.Suspend(99); err != ErrNotFound {
		t.Fatalf("Suspend(unknown) = %v, want ErrNotFound", err)
	}
}

func TestSuspendedTaskNeverSelected(t *testing.T) {
	s := New(2, &fakeClock{}, 1000, 0)
	idle, _ := s.Create("idle", 0)
	task, _ := s.Create("task", 1)

	if err := s.Suspend(task); err != nil {
		t.Fatal(err)
	}
	s.Schedule()
	s.Commit()
	if s.Current().ID != idle {
		t.Fatalf("suspended task was selected; current = %d", s.Current().ID)
	}

	if err := s.Resume(task); err != nil {
		t.Fatal(err)
	}
	s.Schedule()
	s.Commit()
	if s.Current().ID != task {
		t.Fatalf("resumed task was not selected; current = %d", s.Current().ID)
	}
}

func TestSnapshotCopiesBoundedCount(t *testing.T) {
	s := New(4, &fakeClock{}, 1000, 0)
	s.Create("a", 1)
	s.Create("b", 1)
	s.Create("c", 1)

	buf := make([]Snapshot, 2)
	n := s.Snapshot(buf)
	if n != 2 {
		t.Fatalf("Snapshot copied %d, want 2 (bounded by buf)", n)
	}
}
