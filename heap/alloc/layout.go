package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
)

// Layout is the size and alignment of an allocation request.
type Layout struct {
	Size  uint32
	Align uint32
}

// NewLayout returns a validated layout.
func NewLayout(size, align uint32) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate reports ErrBadLayout for a zero or non power-of-two alignment or a
// size whose effective layout would not fit in the address space.
func (l Layout) Validate() error {
	if !format.IsPow2(l.Align) {
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrBadLayout, l.Align)
	}
	if _, ok := l.effective(); !ok {
		return fmt.Errorf("%w: size %d too large", ErrBadLayout, l.Size)
	}
	return nil
}

// Effective returns the layout actually reserved for l: at least one block
// header, aligned to at least the header's alignment, then raised to the
// allocation granularity and padded to it. Every chunk the allocator hands
// out has this shape, which is what lets a freed chunk hold a free-list node.
//
// Effective panics with *InvariantError if the computation overflows; call
// Validate first for untrusted layouts.
func (l Layout) Effective() Layout {
	eff, ok := l.effective()
	if !ok {
		fatal("layout", mem.Nil, "effective layout of size %d align %d overflows", l.Size, l.Align)
	}
	return eff
}

func (l Layout) effective() (Layout, bool) {
	if !format.IsPow2(l.Align) {
		return Layout{}, false
	}
	align := max(l.Align, format.BlockHeaderAlign)
	size, ok := format.AlignUp(max(l.Size, format.BlockHeaderSize), align)
	if !ok {
		return Layout{}, false
	}
	align = max(align, format.Granularity)
	size, ok = format.AlignUp(size, align)
	if !ok {
		return Layout{}, false
	}
	return Layout{Size: size, Align: align}, true
}

// splitThreshold is the smallest free block that can serve eff and still
// leave a trailing block header behind.
func splitThreshold(op string, eff Layout) uint32 {
	t := eff.Size + format.BlockHeaderSize
	if t < eff.Size {
		fatal(op, mem.Nil, "split threshold for %d overflows", eff.Size)
	}
	return t
}

func (l Layout) String() string {
	return fmt.Sprintf("%d@%d", l.Size, l.Align)
}
