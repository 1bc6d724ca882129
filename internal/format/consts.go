// Package format describes the in-memory layout of free-list block headers.
//
// A freed chunk of the heap doubles as a free-list node. Its first two words
// hold the node header:
//
//	Offset  Size  Description
//	0x00    4     Block size in bytes, including this header.
//	0x04    4     Address of the next free block, or NilAddr.
//
// All words are little-endian. Every chunk the allocator hands out is at
// least BlockHeaderSize bytes long and a multiple of Granularity, so any
// chunk can be turned back into a node when it is freed.
package format

const (
	// WordSize is the width of a machine word and of an address.
	WordSize = 4

	// BlockHeaderSize is the size of a free-list node header.
	BlockHeaderSize = 2 * WordSize

	// BlockHeaderAlign is the natural alignment of a node header.
	BlockHeaderAlign = WordSize

	// BlockSizeOffset is the offset of the size word within a node header.
	BlockSizeOffset = 0

	// BlockNextOffset is the offset of the next-link word within a node header.
	BlockNextOffset = WordSize

	// Granularity is the unit every allocation is padded to. It is the
	// larger of BlockHeaderAlign and the platform's maximum alignment (a
	// doubleword).
	Granularity = 8

	// GranularityMask masks the low bits of a granular size.
	GranularityMask = Granularity - 1

	// NilAddr terminates the free list. Address zero is never part of a region.
	NilAddr = 0
)
