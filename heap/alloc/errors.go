package alloc

import (
	"errors"
	"fmt"

	"github.com/joshuapare/heapkit/heap/mem"
)

var (
	// ErrOutOfMemory indicates the region is exhausted and no free block fits.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrBadLayout indicates a zero or non power-of-two alignment, a size
	// whose effective layout does not fit in the address space, or a grow
	// or shrink request in the wrong direction.
	ErrBadLayout = errors.New("alloc: bad layout")

	// ErrInvariant is wrapped by every *InvariantError.
	ErrInvariant = errors.New("alloc: invariant violated")
)

// InvariantError reports heap corruption or allocator misuse: a corrupt free
// list node, a negative or overflowing address distance, an invalid
// deallocation, or a re-entrant call. Operations raise it with panic, since
// continuing on a corrupt heap would spread the damage; Verify returns it.
type InvariantError struct {
	Op     string
	Addr   mem.Addr
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("alloc: invariant violated in %s at %s: %s", e.Op, e.Addr, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func invariant(op string, at mem.Addr, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Addr: at, Detail: fmt.Sprintf(format, args...)}
}

// fatal halts the current operation with an *InvariantError.
func fatal(op string, at mem.Addr, format string, args ...any) {
	panic(invariant(op, at, format, args...))
}
