// Package irq models the target's interrupt controller and provides the
// scoped exclusion guard used by the allocator.
//
// The controller has a master enable (IME), a per-line enable mask (IE) and a
// latch of pending requests (IF). Raise latches a line and, when the master
// enable is on, runs the pending handlers straight away. While a handler runs
// the master enable is off, so handlers never nest.
//
// Exclusion is a mask, not a lock. Disable turns the master enable off and
// returns the previous State; Restore puts it back and runs anything that was
// latched in the meantime:
//
//	s := c.Disable()
//	defer c.Restore(s)
//	// interrupt handlers cannot run here
//
// Free wraps the same pattern around a function. Nothing in this package
// blocks, and nothing is safe for use from more than one goroutine: the
// target has a single execution core.
package irq
