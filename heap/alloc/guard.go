package alloc

import (
	"github.com/joshuapare/heapkit/heap/irq"
	"github.com/joshuapare/heapkit/heap/mem"
)

// Masker masks and restores interrupts. *irq.Controller implements it.
type Masker interface {
	Disable() irq.State
	Restore(irq.State)
}

// noMask is used when no interrupt source can reach the allocator.
type noMask struct{}

func (noMask) Disable() irq.State { return irq.State(false) }
func (noMask) Restore(irq.State)  {}

// guard is the allocator's exclusion guard. It masks interrupts for the
// duration of an operation and detects re-entry: with a mask instead of a
// lock, a nested call would not wait, it would walk a half-updated list.
type guard struct {
	irq  Masker
	busy bool
}

func newGuard(m Masker) *guard {
	if m == nil {
		m = noMask{}
	}
	return &guard{irq: m}
}

// enter masks interrupts and marks the allocator busy. Pair every enter with
// a deferred exit.
func (g *guard) enter(op string) irq.State {
	s := g.irq.Disable()
	if g.busy {
		g.irq.Restore(s)
		fatal(op, mem.Nil, "re-entrant call while the allocator guard is held")
	}
	g.busy = true
	return s
}

// exit clears the busy mark before restoring, so interrupt handlers that run
// on restore may allocate.
func (g *guard) exit(s irq.State) {
	g.busy = false
	g.irq.Restore(s)
}
