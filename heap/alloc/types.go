package alloc

import "github.com/joshuapare/heapkit/heap/mem"

// Allocator is the general-purpose allocation interface.
//
// Implementations:
//   - BlockAllocator: free-list reuse layered over a BumpAllocator
type Allocator interface {
	// Alloc reserves memory for l and returns its address.
	Alloc(l Layout) (mem.Addr, error)

	// Dealloc releases memory previously returned for the same layout.
	// Passing anything else is a fatal invariant violation.
	Dealloc(p mem.Addr, l Layout)

	// Grow extends the allocation at p to newSize bytes. The returned
	// address may differ from p; the first old.Size bytes are preserved.
	Grow(p mem.Addr, old Layout, newSize uint32) (mem.Addr, error)
}

var _ Allocator = (*BlockAllocator)(nil)
