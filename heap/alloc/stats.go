package alloc

import (
	"errors"

	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
)

// Stats counts what the allocator has done since it was created.
type Stats struct {
	AllocCalls   uint64
	DeallocCalls uint64
	GrowCalls    uint64
	ShrinkCalls  uint64

	ExactFits  uint64 // Alloc served by unlinking a whole free block
	Splits     uint64 // Alloc served by splitting a free block
	BumpAllocs uint64 // fresh chunks taken from the tip
	GapBlocks  uint64 // alignment gaps below a fresh chunk released as free blocks
	Merges     uint64 // adjacent free blocks coalesced

	GrowTipExtend uint64
	GrowInPlace   uint64
	GrowMoves     uint64

	OutOfMemory uint64
}

// Snapshot is a point-in-time summary of the heap.
type Snapshot struct {
	Start      mem.Addr // first address the allocator hands out
	Tip        mem.Addr
	End        mem.Addr
	FreeBlocks int
	FreeBytes  uint32
	Largest    uint32 // largest free block
}

// Used returns the bytes below the tip that are not on the free list, which
// is the sum of the effective sizes of all live allocations.
func (s Snapshot) Used() uint32 {
	return uint32(s.Tip-s.Start) - s.FreeBytes
}

// Remaining returns the untouched bytes above the tip.
func (s Snapshot) Remaining() uint32 {
	return uint32(s.End - s.Tip)
}

// Stats returns a copy of the allocator's counters.
func (a *BlockAllocator) Stats() Stats {
	s := a.g.enter("stats")
	defer a.g.exit(s)
	return a.stats
}

// Snapshot summarises the free list and the bump tip.
func (a *BlockAllocator) Snapshot() Snapshot {
	s := a.g.enter("snapshot")
	defer a.g.exit(s)

	snap := Snapshot{Start: a.bump.base, Tip: a.bump.tip, End: a.bump.region.End()}
	a.walkLocked("snapshot", func(_ mem.Addr, size uint32) bool {
		snap.FreeBlocks++
		snap.FreeBytes += size
		snap.Largest = max(snap.Largest, size)
		return true
	})
	return snap
}

// Walk calls fn for every free block in address order until fn returns false.
// fn runs with interrupts masked and must not call back into the allocator.
func (a *BlockAllocator) Walk(fn func(addr mem.Addr, size uint32) bool) {
	s := a.g.enter("walk")
	defer a.g.exit(s)
	a.walkLocked("walk", fn)
}

func (a *BlockAllocator) walkLocked(op string, fn func(mem.Addr, uint32) bool) {
	for cur := a.first; cur != mem.Nil; {
		blk := a.readNode(op, cur)
		if !fn(cur, blk.Size) {
			return
		}
		cur = mem.Addr(blk.Next)
	}
}

// Verify checks the free list: every node lies between the base and the tip,
// is granular, comes after the end of its predecessor and is not byte
// adjacent to it. The first problem found is returned as an *InvariantError.
func (a *BlockAllocator) Verify() error {
	s := a.g.enter("verify")
	defer a.g.exit(s)
	return a.verifyLocked()
}

func (a *BlockAllocator) verifyLocked() (err error) {
	const op = "verify"
	defer func() {
		if r := recover(); r != nil {
			var ie *InvariantError
			if e, ok := r.(error); ok && errors.As(e, &ie) {
				err = ie
				return
			}
			panic(r)
		}
	}()

	var prevEnd mem.Addr
	var free uint32
	for cur := a.first; cur != mem.Nil; {
		blk := a.readNode(op, cur)
		if prevEnd != mem.Nil {
			switch {
			case cur < prevEnd:
				return invariant(op, cur, "free block overlaps its predecessor ending at %s", prevEnd)
			case cur == prevEnd:
				return invariant(op, cur, "free block is adjacent to its predecessor and was not merged")
			}
		}
		free += blk.Size
		end, _ := blk.End(uint32(cur))
		prevEnd = mem.Addr(end)
		cur = mem.Addr(blk.Next)
	}

	if span := uint32(a.bump.tip - a.bump.base); free > span {
		return invariant(op, a.bump.base, "%d free bytes exceed the %d bytes below the tip", free, span)
	}
	if !a.bump.tip.IsAligned(format.Granularity) {
		return invariant(op, a.bump.tip, "tip is not granular")
	}
	return nil
}
