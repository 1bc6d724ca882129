package writer

import (
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Image header layout. All fields are little-endian.
//
//	0x00  magic   "HKIM"
//	0x04  start   region start; Data[0] is the byte at this address
//	0x08  base    first address the allocator hands out
//	0x0C  tip     bump tip; len(Data) == tip - start
//	0x10  digest  xxh3 of Data
const (
	ImageMagic      = "HKIM"
	ImageHeaderSize = 0x18

	offStart  = 0x04
	offBase   = 0x08
	offTip    = 0x0C
	offDigest = 0x10
)

// ErrBadImage is wrapped by every ParseImage error.
var ErrBadImage = errors.New("writer: bad heap image")

// Image is the used part of a heap region together with the addresses
// needed to interpret it.
type Image struct {
	Start uint32
	Base  uint32
	Tip   uint32
	Data  []byte
}

// Digest returns the xxh3 hash of the image data.
func (img Image) Digest() uint64 { return xxh3.Hash(img.Data) }

func (img Image) validate() error {
	if img.Start > img.Base || img.Base > img.Tip {
		return fmt.Errorf("%w: start %#x, base %#x, tip %#x out of order", ErrBadImage, img.Start, img.Base, img.Tip)
	}
	if uint64(len(img.Data)) != uint64(img.Tip-img.Start) {
		return fmt.Errorf("%w: %d data bytes for a %d byte span", ErrBadImage, len(img.Data), img.Tip-img.Start)
	}
	return nil
}

// MarshalBinary encodes the header followed by the data.
func (img Image) MarshalBinary() ([]byte, error) {
	if err := img.validate(); err != nil {
		return nil, err
	}
	out := make([]byte, ImageHeaderSize+len(img.Data))
	copy(out, ImageMagic)
	buf.PutU32LE(out[offStart:], img.Start)
	buf.PutU32LE(out[offBase:], img.Base)
	buf.PutU32LE(out[offTip:], img.Tip)
	buf.PutU64LE(out[offDigest:], img.Digest())
	copy(out[ImageHeaderSize:], img.Data)
	return out, nil
}

// ParseImage decodes an image written by MarshalBinary. Data aliases b.
func ParseImage(b []byte) (Image, error) {
	if !buf.Has(b, 0, ImageHeaderSize) || string(b[:len(ImageMagic)]) != ImageMagic {
		return Image{}, fmt.Errorf("%w: missing header", ErrBadImage)
	}
	img := Image{
		Start: buf.U32LE(b[offStart:]),
		Base:  buf.U32LE(b[offBase:]),
		Tip:   buf.U32LE(b[offTip:]),
		Data:  b[ImageHeaderSize:],
	}
	if err := img.validate(); err != nil {
		return Image{}, err
	}
	if want, got := buf.U64LE(b[offDigest:]), img.Digest(); want != got {
		return Image{}, fmt.Errorf("%w: digest %016x, header says %016x", ErrBadImage, got, want)
	}
	return img, nil
}
