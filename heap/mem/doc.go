// Package mem models the single block of addressable working memory the heap
// lives in.
//
// # Addresses
//
// Addresses are 32-bit (Addr). Arithmetic on them goes through Add, Sub and
// AlignUp, which report overflow instead of wrapping. Address zero is the
// nil link of the free list and is never part of a Region.
//
// # Memory
//
// Memory is the only way the allocator touches raw bytes. Arena implements it
// over a Go byte slice (NewArena) or over an anonymous mapping outside the Go
// heap (MapArena). Any access outside the arena's region is a bus fault and
// panics with *Fault.
//
//	arena, err := mem.NewArena(0x02000000, 256<<10)
//	if err != nil {
//	    return err
//	}
//	arena.SetWord(0x02000000, 0xCAFEF00D)
//
// # Thread Safety
//
// An Arena is not synchronised. Callers serialise access, normally through
// the allocator's interrupt guard.
package mem
