package hostsim

import (
	"os"
	"testing"
	"time"
)

func TestSerialInjectAndRaisesIRQ(t *testing.T) {
	plic := NewPLIC()
	plic.SetPriority(5, 1)
	plic.Enable(5)

	s, err := NewSerial(int(os.Stdout.Fd()), plic, 5)
	if err != nil {
		t.Fatalf("NewSerial: %v", err)
	}
	defer s.Close()

	if err := s.Inject([]byte("A")); err != nil {
		t.Fatalf("inject: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if s.HasInput() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("input never arrived")
		case <-time.After(time.Millisecond):
		}
	}

	b, ok := s.GetC()
	if !ok || b != 'A' {
		t.Fatalf("GetC = (%v, %v), want ('A', true)", b, ok)
	}

	if src := plic.Claim(); src != 5 {
		t.Fatalf("Claim() = %d, want 5 (input IRQ raised)", src)
	}
}

func TestClockIsMonotonicNonDecreasing(t *testing.T) {
	c := NewClock()
	a := c.Cycles()
	time.Sleep(time.Millisecond)
	b := c.Cycles()
	if b < a {
		t.Fatalf("clock went backwards: %d -> %d", a, b)
	}
}

func TestTimerFiresAfterDelta(t *testing.T) {
	tm := NewTimer(CyclesPerMs)
	tm.SetIRQDelta(CyclesPerMs / 10) // ~0.1ms

	select {
	case <-tm.Fired():
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestPLICPrefersHigherPriority(t *testing.T) {
	p := NewPLIC()
	p.SetPriority(1, 1)
	p.SetPriority(2, 5)
	p.Enable(1)
	p.Enable(2)

	p.Raise(1)
	p.Raise(2)

	if src := p.Claim(); src != 2 {
		t.Fatalf("Claim() = %d, want 2 (higher priority)", src)
	}
	if src := p.Claim(); src != 1 {
		t.Fatalf("Claim() = %d, want 1", src)
	}
	if src := p.Claim(); src != 0 {
		t.Fatalf("Claim() = %d, want 0 (none pending)", src)
	}
}
