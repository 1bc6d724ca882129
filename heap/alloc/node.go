package alloc

import (
	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
)

// All reads and writes of free-list nodes go through the helpers in this
// file. A node is a format.Block header stored in the first bytes of a free
// chunk; every helper checks that the chunk lies inside the used part of the
// region before touching it. Callers hold the guard.

// readNode decodes and sanity-checks the node at at.
func (a *BlockAllocator) readNode(op string, at mem.Addr) format.Block {
	a.checkNodeAddr(op, at)
	blk, err := format.DecodeBlock(a.mem.Bytes(at, format.BlockHeaderSize))
	if err != nil {
		fatal(op, at, "decode free block: %v", err)
	}
	if err := blk.Validate(); err != nil {
		fatal(op, at, "corrupt free block: %v", err)
	}
	end, ok := blk.End(uint32(at))
	if !ok || mem.Addr(end) > a.bump.tip {
		fatal(op, at, "free block of %d bytes runs past the tip %s", blk.Size, a.bump.tip)
	}
	if blk.Next != format.NilAddr && mem.Addr(blk.Next) <= at {
		fatal(op, at, "free list link to %s does not move forward", mem.Addr(blk.Next))
	}
	return blk
}

// writeNode stores a node header of size bytes linking to next at at.
func (a *BlockAllocator) writeNode(op string, at mem.Addr, size uint32, next mem.Addr) {
	a.checkNodeAddr(op, at)
	blk := format.Block{Size: size, Next: uint32(next)}
	if err := blk.Validate(); err != nil {
		fatal(op, at, "refusing to write free block: %v", err)
	}
	if err := format.EncodeBlock(a.mem.Bytes(at, format.BlockHeaderSize), blk); err != nil {
		fatal(op, at, "encode free block: %v", err)
	}
}

// link points the predecessor of a node (or the list head when prev is Nil)
// at to.
func (a *BlockAllocator) link(op string, prev, to mem.Addr) {
	if prev == mem.Nil {
		a.first = to
		return
	}
	a.checkNodeAddr(op, prev)
	a.mem.SetWord(prev+format.BlockNextOffset, uint32(to))
}

// checkNodeAddr verifies that a node header at at would be granular and lie
// between the allocator's base and the tip.
func (a *BlockAllocator) checkNodeAddr(op string, at mem.Addr) {
	if at < a.bump.base || !at.IsAligned(format.Granularity) {
		fatal(op, at, "free block address outside the heap or misaligned")
	}
	end, ok := at.Add(format.BlockHeaderSize)
	if !ok || end > a.bump.tip {
		fatal(op, at, "free block header runs past the tip %s", a.bump.tip)
	}
}

// distance returns to-from for two node addresses, treating a negative or
// overflowing result as corruption.
func distance(op string, from, to mem.Addr) uint32 {
	d, ok := to.Sub(from)
	if !ok {
		fatal(op, from, "distance to %s is negative", to)
	}
	return d
}
