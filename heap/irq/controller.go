package irq

import (
	"fmt"
	"log/slog"
	"math/bits"
)

// State is the master-enable value captured by Disable.
type State bool

// Handler services one interrupt line. It runs with interrupts masked.
type Handler func(Line)

// Controller is a software model of the interrupt controller.
type Controller struct {
	ime      bool   // master enable
	ie       uint16 // per-line enable
	pending  uint16 // latched requests (IF)
	handlers [NumLines]Handler
	serviced [NumLines]uint64

	inHandler bool
	log       *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger routes dispatch logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// NewController returns a controller with the master enable on and every
// line disabled until a handler is installed.
func NewController(opts ...Option) *Controller {
	c := &Controller{ime: true, log: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Handle installs h for line and enables it. A nil h disables the line and
// drops any request already latched for it.
func (c *Controller) Handle(line Line, h Handler) {
	if !line.Valid() {
		panic(fmt.Sprintf("irq: handle %s", line))
	}
	c.handlers[line] = h
	if h == nil {
		c.ie &^= line.mask()
		c.pending &^= line.mask()
		return
	}
	c.ie |= line.mask()
}

// Raise latches a request on line and services it now if interrupts are
// enabled. Requests on lines without a handler are dropped.
func (c *Controller) Raise(line Line) {
	if !line.Valid() {
		panic(fmt.Sprintf("irq: raise %s", line))
	}
	if c.ie&line.mask() == 0 {
		return
	}
	c.pending |= line.mask()
	c.dispatch()
}

// Disable masks interrupts and returns the previous state for Restore.
func (c *Controller) Disable() State {
	prev := State(c.ime)
	c.ime = false
	return prev
}

// Restore sets the master enable back to s. Requests latched while masked
// are serviced as soon as interrupts are enabled again.
func (c *Controller) Restore(s State) {
	c.ime = bool(s)
	c.dispatch()
}

// Free runs fn with interrupts masked and restores the previous state on
// every exit path, panics included.
func (c *Controller) Free(fn func()) {
	s := c.Disable()
	defer c.Restore(s)
	fn()
}

// Enabled reports whether the master enable is on.
func (c *Controller) Enabled() bool { return c.ime }

// Pending returns the latched request bits.
func (c *Controller) Pending() uint16 { return c.pending }

// Serviced returns how many times line's handler has run.
func (c *Controller) Serviced(line Line) uint64 {
	if !line.Valid() {
		return 0
	}
	return c.serviced[line]
}

// dispatch services pending lines, lowest first, while the master enable is
// on. Entering a handler clears the master enable the way the CPU masks IRQs
// on exception entry; it is restored when the handler returns, even if the
// handler panics.
func (c *Controller) dispatch() {
	if c.inHandler {
		return
	}
	for c.ime {
		ready := c.pending & c.ie
		if ready == 0 {
			return
		}
		line := Line(bits.TrailingZeros16(ready))
		c.pending &^= line.mask()
		c.run(line)
	}
}

func (c *Controller) run(line Line) {
	h := c.handlers[line]
	c.serviced[line]++
	c.log.Debug("irq dispatch", "line", line.String(), "count", c.serviced[line])

	c.inHandler = true
	c.ime = false
	defer func() {
		c.inHandler = false
		c.ime = true
	}()
	h(line)
}
