package mem

// Memory is the narrow accessor set the allocator uses to read and write raw
// bytes. Implementations panic with *Fault on any access outside Region.
type Memory interface {
	// Region returns the address range backed by this memory.
	Region() Region

	// Word reads the little-endian word at a.
	Word(a Addr) uint32

	// SetWord writes v as a little-endian word at a.
	SetWord(a Addr, v uint32)

	// Bytes returns an aliasing view of [a, a+n) with capacity n.
	Bytes(a Addr, n uint32) []byte

	// Copy moves n bytes from src to dst. Overlapping ranges are handled.
	Copy(dst, src Addr, n uint32)

	// Zero clears [a, a+n).
	Zero(a Addr, n uint32)
}
