// Package alloc provides a two-layer heap allocator for a fixed memory region
// on a single-core target where interrupt handlers may allocate.
//
// # Overview
//
// The bottom layer, BumpAllocator, hands out never-used memory by advancing a
// tip through the region. The top layer, BlockAllocator, recycles freed
// chunks through a singly linked free list whose nodes are stored inside the
// freed chunks themselves. Both layers share one exclusion guard that masks
// interrupts for the whole of every operation.
//
// # Layouts
//
// Every request is widened to an effective layout before anything else
// happens:
//
//	align = max(req.Align, 4)
//	size  = alignUp(max(req.Size, 8), align)
//	align = max(align, 8)
//	size  = alignUp(size, align)
//
// so every chunk can hold an 8-byte node header and every chunk boundary is
// a multiple of 8. Callers pass the same Layout to Dealloc, Grow and Shrink
// that they passed to Alloc.
//
// # Free List
//
// The list is sorted by address. After every insertion it is normalised:
// byte-adjacent neighbours are merged, so no two free blocks ever touch.
//
//	base                                                  tip          end
//	|  live  | free 32 |  live  | free 64 | live | free 8 |  untouched  |
//	          ^first    -------> ^         -------> ^ Nil
//
// Conservation: the bytes between the base and the tip are exactly the live
// chunks plus the free blocks. Snapshot.Used reports the live part.
//
// # Growing
//
// Grow tries, in order: pushing the tip when the chunk ends there, absorbing
// the free block that starts where the chunk ends, and moving the data to the
// first exact-size free block, the first splittable block, or a fresh chunk.
//
// # Failure Modes
//
// Exhaustion is reported with ErrOutOfMemory and bad requests with
// ErrBadLayout. Corruption and misuse (double free, a pointer outside the
// heap, a re-entrant call from an unmasked interrupt) panic with
// *InvariantError. Verify reports the same problems as an error.
//
// # Debug Logging
//
// Set HEAPKIT_LOG_ALLOC=1 to send allocator debug logs to stderr when no
// logger is configured with WithLogger.
package alloc
