package alloc

import (
	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
)

// BumpAllocator carves fresh, never-used chunks from the unused tail of a
// region. It never reclaims memory; freed chunks are recycled by
// BlockAllocator's free list instead.
//
// Key characteristics:
//   - O(1) allocation: align the tip, check the end, advance
//   - Zero metadata: the tip is the only state
//   - The tip only moves forward
type BumpAllocator struct {
	region mem.Region

	// base is the region start rounded up to the granularity: the first
	// address ever handed out.
	base mem.Addr

	// tip is the boundary between used and untouched memory.
	tip mem.Addr

	g *guard
}

// NewBump returns a bump allocator over region. m masks interrupts around
// every operation; nil means no interrupt source can reach the allocator.
func NewBump(region mem.Region, m Masker) *BumpAllocator {
	return newBump(region, newGuard(m))
}

func newBump(region mem.Region, g *guard) *BumpAllocator {
	base, ok := region.Start().AlignUp(format.Granularity)
	if !ok || base > region.End() {
		// A region too small to hold a single granule is simply full.
		base = region.End()
	}
	return &BumpAllocator{region: region, base: base, tip: base, g: g}
}

// Alloc returns a fresh chunk of l.Size bytes aligned to l.Align, or
// ErrOutOfMemory when the tail of the region is too short.
func (b *BumpAllocator) Alloc(l Layout) (mem.Addr, error) {
	if err := l.Validate(); err != nil {
		return mem.Nil, err
	}
	s := b.g.enter("bump")
	defer b.g.exit(s)

	p, ok := b.alloc(l)
	if !ok {
		return mem.Nil, ErrOutOfMemory
	}
	return p, nil
}

// Tip returns the current boundary between used and untouched memory.
func (b *BumpAllocator) Tip() mem.Addr {
	s := b.g.enter("tip")
	defer b.g.exit(s)
	return b.tip
}

// Remaining returns the number of untouched bytes after the tip.
func (b *BumpAllocator) Remaining() uint32 {
	s := b.g.enter("remaining")
	defer b.g.exit(s)
	return uint32(b.region.End() - b.tip)
}

// Region returns the region the allocator carves from.
func (b *BumpAllocator) Region() mem.Region { return b.region }

// Base returns the first address the allocator hands out.
func (b *BumpAllocator) Base() mem.Addr { return b.base }

// placement computes where a chunk of layout l would go without moving the
// tip. Callers hold the guard.
func (b *BumpAllocator) placement(l Layout) (start, end mem.Addr, ok bool) {
	start, ok = b.tip.AlignUp(l.Align)
	if !ok {
		return mem.Nil, mem.Nil, false
	}
	end, ok = start.Add(l.Size)
	if !ok || end > b.region.End() {
		return mem.Nil, mem.Nil, false
	}
	return start, end, true
}

// alloc advances the tip past a chunk of layout l. Callers hold the guard.
func (b *BumpAllocator) alloc(l Layout) (mem.Addr, bool) {
	start, end, ok := b.placement(l)
	if !ok {
		return mem.Nil, false
	}
	b.tip = end
	return start, true
}
