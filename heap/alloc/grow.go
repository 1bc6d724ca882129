package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
)

// candidate is a free block that could take a moved allocation.
type candidate struct {
	at    mem.Addr
	prev  mem.Addr
	size  uint32
	next  mem.Addr
	exact bool
}

// Grow extends the allocation at p, made with layout old, to newSize bytes.
//
// Three strategies are tried in order:
//  1. If the chunk ends at the bump tip, the tip is pushed forward.
//  2. If a free block starts where the chunk ends, the chunk absorbs as much
//     of it as it needs. A free block that runs up to the tip is absorbed
//     whole and the rest is taken from the tip.
//  3. The data moves to the first free block of exactly the new size, else
//     to the first block large enough to split, else to a fresh bump chunk.
//     The old chunk is freed.
//
// Only the third strategy changes the address. On ErrOutOfMemory the
// allocation at p is left intact.
func (a *BlockAllocator) Grow(p mem.Addr, old Layout, newSize uint32) (mem.Addr, error) {
	if err := old.Validate(); err != nil {
		return mem.Nil, err
	}
	if newSize < old.Size {
		return mem.Nil, fmt.Errorf("%w: grow from %d to %d bytes", ErrBadLayout, old.Size, newSize)
	}
	grown := Layout{Size: newSize, Align: old.Align}
	if err := grown.Validate(); err != nil {
		return mem.Nil, err
	}
	oldEff, newEff := old.Effective(), grown.Effective()
	if oldEff.Size == newEff.Size {
		return p, nil
	}

	s := a.g.enter("grow")
	defer a.g.exit(s)

	a.stats.GrowCalls++
	a.checkLive("grow", p, oldEff.Size)

	q, ok := a.growLocked(p, old, oldEff, newEff)
	if !ok {
		a.stats.OutOfMemory++
		a.log.Debug("grow: out of memory", "addr", p.String(), "from", oldEff.Size, "to", newEff.Size,
			"tip", a.bump.tip.String())
		return mem.Nil, ErrOutOfMemory
	}
	return q, nil
}

func (a *BlockAllocator) growLocked(p mem.Addr, old, oldEff, newEff Layout) (mem.Addr, bool) {
	const op = "grow"
	delta := newEff.Size - oldEff.Size
	end, ok := p.Add(oldEff.Size)
	if !ok {
		fatal(op, p, "chunk of %d bytes overflows the address space", oldEff.Size)
	}

	// Tip extension.
	if end == a.bump.tip {
		if _, ok := a.bump.alloc(Layout{Size: delta, Align: format.Granularity}); ok {
			a.stats.GrowTipExtend++
			return p, true
		}
	}

	// In-place absorption, recording a move target on the way.
	threshold := splitThreshold(op, newEff)
	var cand *candidate
	prev := mem.Nil
	cur := a.first
	for cur != mem.Nil {
		blk := a.readNode(op, cur)
		next := mem.Addr(blk.Next)

		if cur == end {
			switch {
			case blk.Size == delta:
				a.link(op, prev, next)
				a.stats.GrowInPlace++
				return p, true
			case blk.Size > delta:
				rem := cur + mem.Addr(delta)
				a.writeNode(op, rem, blk.Size-delta, next)
				a.link(op, prev, rem)
				a.stats.GrowInPlace++
				return p, true
			case next == mem.Nil && cur+mem.Addr(blk.Size) == a.bump.tip:
				if _, ok := a.bump.alloc(Layout{Size: delta - blk.Size, Align: format.Granularity}); ok {
					a.link(op, prev, mem.Nil)
					a.stats.GrowTipExtend++
					return p, true
				}
			}
		}

		if cur.IsAligned(newEff.Align) {
			switch {
			case blk.Size == newEff.Size && (cand == nil || !cand.exact):
				cand = &candidate{at: cur, prev: prev, size: blk.Size, next: next, exact: true}
			case blk.Size >= threshold && cand == nil:
				cand = &candidate{at: cur, prev: prev, size: blk.Size, next: next}
			}
		}

		// Past the chunk nothing can be absorbed in place; the node just
		// examined was the last chance to find an exact fit.
		if cur > end && cand != nil {
			break
		}

		prev = cur
		cur = next
	}

	// Move.
	var q mem.Addr
	if cand != nil {
		q = cand.at
		if cand.exact {
			a.link(op, cand.prev, cand.next)
		} else {
			rem := q + mem.Addr(newEff.Size)
			a.writeNode(op, rem, cand.size-newEff.Size, cand.next)
			a.link(op, cand.prev, rem)
		}
	} else {
		q, ok = a.newChunk(op, newEff)
		if !ok {
			return mem.Nil, false
		}
	}

	a.mem.Copy(q, p, old.Size)
	a.insertLocked(op, p, oldEff.Size)
	a.normalise(op)
	a.stats.GrowMoves++
	a.log.Debug("grow: moved", "from", p.String(), "to", q.String(), "size", newEff.Size)
	return q, true
}

// Shrink trims the allocation at p, made with layout old, to newSize bytes.
// The chunk never moves; the trimmed tail is returned to the free list and
// coalesced.
func (a *BlockAllocator) Shrink(p mem.Addr, old Layout, newSize uint32) (mem.Addr, error) {
	if err := old.Validate(); err != nil {
		return mem.Nil, err
	}
	if newSize > old.Size {
		return mem.Nil, fmt.Errorf("%w: shrink from %d to %d bytes", ErrBadLayout, old.Size, newSize)
	}
	oldEff := old.Effective()
	newEff := Layout{Size: newSize, Align: old.Align}.Effective()
	if oldEff.Size == newEff.Size {
		return p, nil
	}

	s := a.g.enter("shrink")
	defer a.g.exit(s)

	a.stats.ShrinkCalls++
	a.checkLive("shrink", p, oldEff.Size)
	a.insertLocked("shrink", p+mem.Addr(newEff.Size), oldEff.Size-newEff.Size)
	a.normalise("shrink")
	return p, nil
}

// Realloc resizes the allocation at p, made with layout old, to newSize bytes
// with Grow or Shrink.
func (a *BlockAllocator) Realloc(p mem.Addr, old Layout, newSize uint32) (mem.Addr, error) {
	if newSize >= old.Size {
		return a.Grow(p, old, newSize)
	}
	return a.Shrink(p, old, newSize)
}
