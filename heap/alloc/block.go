package alloc

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// Runtime debug flag for allocation logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// BlockAllocator is the reuse layer. It keeps a singly linked free list,
// ordered by address, whose nodes live inside the freed memory itself, and
// falls back to a BumpAllocator when no free block fits.
//
//   - Alloc: first fit in address order; exact fits are unlinked, larger
//     blocks are split and the remainder relinked in place
//   - Dealloc: ordered insert, then a full coalescing pass
//   - Grow: tip extension, then in-place absorption of the next free block,
//     then a move
//
// Every operation masks interrupts for its whole duration.
type BlockAllocator struct {
	mem  mem.Memory
	bump *BumpAllocator
	g    *guard

	// first is the lowest-addressed free block, Nil when the list is empty.
	first mem.Addr

	stats Stats
	log   *slog.Logger
}

// Option configures a BlockAllocator.
type Option func(*options)

type options struct {
	masker Masker
	log    *slog.Logger
}

// WithInterrupts masks interrupts through m around every operation.
func WithInterrupts(m Masker) Option {
	return func(o *options) { o.masker = m }
}

// WithLogger routes allocator debug logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New returns a block allocator managing all of m's region. The free list
// starts empty and the bump tip at the start of the region.
func New(m mem.Memory, opts ...Option) (*BlockAllocator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = defaultLogger()
	}

	g := newGuard(o.masker)
	bump := newBump(m.Region(), g)
	if bump.base == bump.region.End() {
		return nil, fmt.Errorf("%w: %s holds no %d-byte granule", mem.ErrBadRegion, m.Region(), format.Granularity)
	}
	return &BlockAllocator{
		mem:  m,
		bump: bump,
		g:    g,
		log:  o.log,
	}, nil
}

func defaultLogger() *slog.Logger {
	if logAlloc {
		return logger.New(os.Stderr, logger.Options{Level: slog.LevelDebug})
	}
	return logger.L
}

// Alloc returns the address of a chunk that fits l.
//
// The free list is searched in address order. A block of exactly the
// effective size is unlinked; a larger one is split, the front returned and
// the remainder relinked where the original block was. When nothing fits a
// fresh chunk is taken from the bump allocator.
func (a *BlockAllocator) Alloc(l Layout) (mem.Addr, error) {
	if err := l.Validate(); err != nil {
		return mem.Nil, err
	}
	eff := l.Effective()

	s := a.g.enter("alloc")
	defer a.g.exit(s)

	a.stats.AllocCalls++
	p, ok := a.allocLocked("alloc", eff)
	if !ok {
		a.stats.OutOfMemory++
		a.log.Debug("alloc: out of memory", "layout", l.String(), "effective", eff.Size,
			"tip", a.bump.tip.String(), "free_blocks", a.countLocked())
		return mem.Nil, ErrOutOfMemory
	}
	return p, nil
}

// AllocZeroed is Alloc followed by clearing the whole effective chunk.
func (a *BlockAllocator) AllocZeroed(l Layout) (mem.Addr, error) {
	p, err := a.Alloc(l)
	if err != nil {
		return mem.Nil, err
	}
	a.mem.Zero(p, l.Effective().Size)
	return p, nil
}

func (a *BlockAllocator) allocLocked(op string, eff Layout) (mem.Addr, bool) {
	threshold := splitThreshold(op, eff)

	prev := mem.Nil
	cur := a.first
	for cur != mem.Nil {
		blk := a.readNode(op, cur)
		if cur.IsAligned(eff.Align) {
			if blk.Size == eff.Size {
				a.link(op, prev, mem.Addr(blk.Next))
				a.stats.ExactFits++
				return cur, true
			}
			if blk.Size >= threshold {
				rem := cur + mem.Addr(eff.Size)
				a.writeNode(op, rem, blk.Size-eff.Size, mem.Addr(blk.Next))
				a.link(op, prev, rem)
				a.stats.Splits++
				return cur, true
			}
		}
		prev = cur
		cur = mem.Addr(blk.Next)
	}

	return a.newChunk(op, eff)
}

// newChunk takes a fresh chunk for eff from the bump allocator. If aligning
// the tip would skip bytes, the skipped gap is carved first and released to
// the free list so every byte below the tip stays accounted for.
func (a *BlockAllocator) newChunk(op string, eff Layout) (mem.Addr, bool) {
	start, _, ok := a.bump.placement(eff)
	if !ok {
		return mem.Nil, false
	}
	if gap := distance(op, a.bump.tip, start); gap > 0 {
		gapAddr, ok := a.bump.alloc(Layout{Size: gap, Align: format.Granularity})
		if !ok {
			fatal(op, a.bump.tip, "alignment gap of %d bytes vanished", gap)
		}
		a.insertLocked(op, gapAddr, gap)
		a.normalise(op)
		a.stats.GapBlocks++
	}

	p, ok := a.bump.alloc(eff)
	if !ok {
		fatal(op, start, "bump placement of %d bytes vanished", eff.Size)
	}
	a.stats.BumpAllocs++
	a.log.Debug("alloc: bump", "addr", p.String(), "size", eff.Size, "tip", a.bump.tip.String())
	return p, true
}

// Dealloc returns the chunk at p, allocated with layout l, to the free list
// and coalesces it with its neighbours.
//
// p and l must describe a live allocation from this allocator. Anything that
// is detectably wrong (outside the heap, misaligned, overlapping a free block,
// already free) is a fatal invariant violation.
func (a *BlockAllocator) Dealloc(p mem.Addr, l Layout) {
	if err := l.Validate(); err != nil {
		fatal("dealloc", p, "%v", err)
	}
	eff := l.Effective()

	s := a.g.enter("dealloc")
	defer a.g.exit(s)

	a.stats.DeallocCalls++
	a.deallocLocked("dealloc", p, eff)
}

func (a *BlockAllocator) deallocLocked(op string, p mem.Addr, eff Layout) {
	a.checkLive(op, p, eff.Size)
	a.insertLocked(op, p, eff.Size)
	a.normalise(op)
}

// checkLive verifies that [p, p+size) could be a live allocation.
func (a *BlockAllocator) checkLive(op string, p mem.Addr, size uint32) {
	if p < a.bump.base || !p.IsAligned(format.Granularity) {
		fatal(op, p, "pointer outside the heap or misaligned")
	}
	end, ok := p.Add(size)
	if !ok || end > a.bump.tip {
		fatal(op, p, "chunk of %d bytes runs past the tip %s", size, a.bump.tip)
	}
}

// insertLocked links a new node of size bytes at p before the first node with
// a higher address, or at the tail.
func (a *BlockAllocator) insertLocked(op string, p mem.Addr, size uint32) {
	end, ok := p.Add(size)
	if !ok {
		fatal(op, p, "chunk of %d bytes overflows the address space", size)
	}

	prev := mem.Nil
	cur := a.first
	for cur != mem.Nil && cur <= p {
		blk := a.readNode(op, cur)
		if cur == p {
			fatal(op, p, "chunk is already free")
		}
		if curEnd, _ := blk.End(uint32(cur)); mem.Addr(curEnd) > p {
			fatal(op, p, "chunk overlaps free block at %s", cur)
		}
		prev = cur
		cur = mem.Addr(blk.Next)
	}
	if cur != mem.Nil && end > cur {
		fatal(op, p, "chunk of %d bytes overlaps free block at %s", size, cur)
	}

	a.writeNode(op, p, size, cur)
	a.link(op, prev, p)
}

// normalise walks the whole free list and merges every pair of byte-adjacent
// blocks. After a merge the same block is examined again, so one block can
// absorb a run of neighbours.
func (a *BlockAllocator) normalise(op string) {
	cur := a.first
	for cur != mem.Nil {
		blk := a.readNode(op, cur)
		if blk.Next == format.NilAddr {
			return
		}
		next := mem.Addr(blk.Next)
		d := distance(op, cur, next)
		switch {
		case d == blk.Size:
			nb := a.readNode(op, next)
			merged := blk.Size + nb.Size
			if merged < blk.Size {
				fatal(op, cur, "merged block size overflows")
			}
			a.writeNode(op, cur, merged, mem.Addr(nb.Next))
			a.stats.Merges++
		case d < blk.Size:
			fatal(op, cur, "free block of %d bytes overlaps the next one at %s", blk.Size, next)
		default:
			cur = next
		}
	}
}

// FreeBlocks returns the number of nodes in the free list.
func (a *BlockAllocator) FreeBlocks() int {
	s := a.g.enter("free_blocks")
	defer a.g.exit(s)
	return a.countLocked()
}

func (a *BlockAllocator) countLocked() int {
	n := 0
	for cur := a.first; cur != mem.Nil; cur = mem.Addr(a.readNode("count", cur).Next) {
		n++
	}
	return n
}

// Tip returns the bump allocator's current tip.
func (a *BlockAllocator) Tip() mem.Addr {
	s := a.g.enter("tip")
	defer a.g.exit(s)
	return a.bump.tip
}

// Region returns the region the allocator manages.
func (a *BlockAllocator) Region() mem.Region { return a.bump.region }

// Base returns the first address the allocator can hand out.
func (a *BlockAllocator) Base() mem.Addr { return a.bump.base }

// Memory returns the memory the allocator manages.
func (a *BlockAllocator) Memory() mem.Memory { return a.mem }
