package mem

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRegion indicates a region whose bounds are inverted, include
	// address zero, or run past the 32-bit address space.
	ErrBadRegion = errors.New("mem: bad region")

	// ErrClosed is wrapped by the Fault raised for any access to an arena
	// after Close.
	ErrClosed = errors.New("mem: arena closed")
)

// Fault describes an access outside the arena's region. It is raised with
// panic: touching memory that does not exist means the caller's bookkeeping
// is already corrupt.
type Fault struct {
	Op     string
	Addr   Addr
	Len    uint32
	Region Region
	Err    error // ErrClosed for accesses after Close, nil otherwise
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("mem: %s fault at %s+%d: %v", f.Op, f.Addr, f.Len, f.Err)
	}
	return fmt.Sprintf("mem: %s fault at %s+%d outside %s", f.Op, f.Addr, f.Len, f.Region)
}

func (f *Fault) Unwrap() error { return f.Err }
