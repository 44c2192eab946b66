// Package irq implements the external-interrupt claim/dispatch table: a
// fixed-size source-id to handler mapping, serviced by the trap
// dispatcher's external-interrupt arm.
package irq

import "fmt"

// Controller is the subset of the external-interrupt controller the
// dispatcher needs: claim the next pending source, mark it serviced, and
// configure a source's priority/enablement at registration time.
type Controller interface {
	Claim() uint32
	Complete(source uint32)
	SetPriority(source uint32, level uint32)
	Enable(source uint32)
}

// Handler services one interrupt source. It runs in trap context: it must
// be short and must not suspend, allocate, or call the scheduler.
type Handler func()

// Table is the fixed-size source-id -> handler table.
type Table struct {
	ctrl     Controller
	handlers []Handler
}

// NewTable creates a table for source ids 0..sourceCount-1; 0 is reserved
// by Controller.Claim to mean "nothing pending", so 1..sourceCount-1 can be
// registered.
func NewTable(ctrl Controller, sourceCount uint32) *Table {
	return &Table{ctrl: ctrl, handlers: make([]Handler, sourceCount)}
}

// Register installs h for source and enables it on the controller at
// priority 1.
func (t *Table) Register(source uint32, h Handler) error {
	if source == 0 || source >= uint32(len(t.handlers)) {
		return fmt.Errorf("irq: source id %d out of range", source)
	}
	t.handlers[source] = h
	t.ctrl.SetPriority(source, 1)
	t.ctrl.Enable(source)
	return nil
}

// Dispatch runs the external-interrupt arm of the trap dispatcher: claim a
// source, invoke its handler if one is installed, complete the claim, and
// repeat until the controller reports nothing pending.
func (t *Table) Dispatch() {
	for {
		src := t.ctrl.Claim()
		if src == 0 {
			return
		}
		if src < uint32(len(t.handlers)) {
			if h := t.handlers[src]; h != nil {
				h()
			}
		}
		t.ctrl.Complete(src)
	}
}
