package mem

import (
	"fmt"
	"math/bits"

	"github.com/joshuapare/heapkit/internal/format"
)

// Addr is a 32-bit address in the target's address space.
type Addr uint32

// Nil is the terminator of the free list. It is never a valid heap address.
const Nil Addr = format.NilAddr

// Add returns a+n. ok is false when the sum leaves the 32-bit address space.
func (a Addr) Add(n uint32) (Addr, bool) {
	sum, carry := bits.Add32(uint32(a), n, 0)
	if carry != 0 {
		return 0, false
	}
	return Addr(sum), true
}

// Sub returns the distance a-b. ok is false when b lies above a.
func (a Addr) Sub(b Addr) (uint32, bool) {
	diff, borrow := bits.Sub32(uint32(a), uint32(b), 0)
	if borrow != 0 {
		return 0, false
	}
	return diff, true
}

// AlignUp rounds a up to a multiple of align, which must be a power of two.
func (a Addr) AlignUp(align uint32) (Addr, bool) {
	if !format.IsPow2(align) {
		return 0, false
	}
	v, ok := format.AlignUp(uint32(a), align)
	return Addr(v), ok
}

// IsAligned reports whether a is a multiple of align (a power of two).
func (a Addr) IsAligned(align uint32) bool {
	return format.IsAligned(uint32(a), align)
}

func (a Addr) String() string {
	return fmt.Sprintf("0x%08X", uint32(a))
}
