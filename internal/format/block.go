package format

import "github.com/joshuapare/heapkit/internal/buf"

// Block is a decoded free-list node header.
type Block struct {
	Size uint32 // Total size including the header
	Next uint32 // Address of the next free block, NilAddr at the tail
}

// DecodeBlock decodes a node header from the first BlockHeaderSize bytes of b.
func DecodeBlock(b []byte) (Block, error) {
	if !buf.Has(b, 0, BlockHeaderSize) {
		return Block{}, ErrTruncated
	}
	return Block{
		Size: buf.U32LE(b[BlockSizeOffset:]),
		Next: buf.U32LE(b[BlockNextOffset:]),
	}, nil
}

// EncodeBlock writes blk into the first BlockHeaderSize bytes of b.
func EncodeBlock(b []byte, blk Block) error {
	if !buf.Has(b, 0, BlockHeaderSize) {
		return ErrTruncated
	}
	buf.PutU32LE(b[BlockSizeOffset:], blk.Size)
	buf.PutU32LE(b[BlockNextOffset:], blk.Next)
	return nil
}

// Validate checks the structural rules every node header must satisfy.
func (blk Block) Validate() error {
	if blk.Size < BlockHeaderSize {
		return ErrBlockTooSmall
	}
	if !IsGranular(blk.Size) {
		return ErrBlockNotGranular
	}
	return nil
}

// End returns the address one past the block starting at addr.
// ok is false when the block would run past the 32-bit address space.
func (blk Block) End(addr uint32) (uint32, bool) {
	end := addr + blk.Size
	return end, end >= addr
}
