// Package arrowmem lets Apache Arrow buffers live inside a heapkit region.
//
// Allocator implements memory.Allocator on top of a BlockAllocator, so Arrow
// builders and buffers draw from the same free list as everything else in
// the region:
//
//	sys, _ := heap.Open(cfg)
//	mem := arrowmem.New(sys.Alloc, sys.Arena)
//	buf := memory.NewResizableBuffer(mem)
//	buf.Resize(1024) // carved from the region
package arrowmem

import (
	"fmt"
	"math"
	"sync"

	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/mem"
)

// Alignment is the alignment of every buffer handed to Arrow.
const Alignment = 8

// Allocator is a memory.Allocator backed by a BlockAllocator. It is safe for
// concurrent use; calls are serialised before they reach the heap.
type Allocator struct {
	mu    sync.Mutex
	heap  *alloc.BlockAllocator
	arena *mem.Arena
}

// New returns an Arrow allocator drawing from a, whose memory is arena.
func New(a *alloc.BlockAllocator, arena *mem.Arena) *Allocator {
	return &Allocator{heap: a, arena: arena}
}

// Allocate returns a zeroed buffer of size bytes. It panics with an error
// wrapping alloc.ErrOutOfMemory when the region is exhausted.
func (m *Allocator) Allocate(size int) []byte {
	if size <= 0 {
		return []byte{}
	}
	l := layout(size)

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.heap.AllocZeroed(l)
	if err != nil {
		panic(fmt.Errorf("arrowmem: allocate %d bytes: %w", size, err))
	}
	return m.arena.Bytes(p, l.Size)
}

// Reallocate resizes b to size bytes, preserving its contents. The buffer
// grows in place when the heap allows it.
func (m *Allocator) Reallocate(size int, b []byte) []byte {
	if cap(b) == 0 {
		return m.Allocate(size)
	}
	if size <= 0 {
		m.Free(b)
		return []byte{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.addrOf(b)
	old := layout(cap(b))
	q, err := m.heap.Realloc(p, old, layout(size).Size)
	if err != nil {
		panic(fmt.Errorf("arrowmem: reallocate %d to %d bytes: %w", cap(b), size, err))
	}
	out := m.arena.Bytes(q, uint32(size))
	if size > cap(b) {
		clear(out[cap(b):])
	}
	return out
}

// Free returns b to the heap. b must come from Allocate or Reallocate on m.
func (m *Allocator) Free(b []byte) {
	if cap(b) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.heap.Dealloc(m.addrOf(b), layout(cap(b)))
}

func (m *Allocator) addrOf(b []byte) mem.Addr {
	p, ok := m.arena.AddrOf(b[:cap(b)])
	if !ok {
		panic(fmt.Errorf("arrowmem: buffer of %d bytes was not allocated from %s", cap(b), m.arena.Region()))
	}
	return p
}

func layout(size int) alloc.Layout {
	if uint64(size) > math.MaxUint32 {
		panic(fmt.Errorf("arrowmem: %d bytes: %w", size, alloc.ErrOutOfMemory))
	}
	return alloc.Layout{Size: uint32(size), Align: Alignment}
}

var _ memory.Allocator = (*Allocator)(nil)
