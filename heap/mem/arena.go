package mem

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/mmfile"
)

// Arena is a Memory backed by one contiguous byte slice.
type Arena struct {
	region  Region
	data    []byte
	mapped  bool
	release func() error
}

// NewArena returns an arena of size zeroed bytes addressed from base,
// allocated on the Go heap.
func NewArena(base Addr, size uint32) (*Arena, error) {
	r, err := RegionOf(base, size)
	if err != nil {
		return nil, err
	}
	return &Arena{
		region:  r,
		data:    make([]byte, size),
		release: func() error { return nil },
	}, nil
}

// MapArena returns an arena of size zeroed bytes addressed from base, backed by
// an anonymous mapping where the platform supports one. Call Close to unmap.
func MapArena(base Addr, size uint32) (*Arena, error) {
	r, err := RegionOf(base, size)
	if err != nil {
		return nil, err
	}
	data, cleanup, err := mmfile.Anon(int(size))
	if err != nil {
		return nil, fmt.Errorf("mem: map arena: %w", err)
	}
	return &Arena{
		region:  r,
		data:    data,
		mapped:  mmfile.Mapped(),
		release: cleanup,
	}, nil
}

// Region returns the address range backed by the arena.
func (a *Arena) Region() Region { return a.region }

// Mapped reports whether the arena lives in an anonymous mapping.
func (a *Arena) Mapped() bool { return a.mapped }

// Close releases the backing memory. Later accesses fault with ErrClosed.
func (a *Arena) Close() error {
	if a.data == nil {
		return nil
	}
	a.data = nil
	return a.release()
}

// offset translates [addr, addr+n) into an index into data, faulting when the
// range is not fully inside the arena.
func (a *Arena) offset(op string, addr Addr, n uint32) int {
	if a.data == nil {
		panic(&Fault{Op: op, Addr: addr, Len: n, Region: a.region, Err: ErrClosed})
	}
	if !a.region.Contains(addr, n) {
		panic(&Fault{Op: op, Addr: addr, Len: n, Region: a.region})
	}
	return int(addr - a.region.start)
}

// Word reads the little-endian word at addr.
func (a *Arena) Word(addr Addr) uint32 {
	off := a.offset("read", addr, format.WordSize)
	return buf.U32LE(a.data[off:])
}

// SetWord writes v as a little-endian word at addr.
func (a *Arena) SetWord(addr Addr, v uint32) {
	off := a.offset("write", addr, format.WordSize)
	buf.PutU32LE(a.data[off:], v)
}

// Bytes returns an aliasing view of [addr, addr+n).
func (a *Arena) Bytes(addr Addr, n uint32) []byte {
	off := a.offset("view", addr, n)
	view, _ := buf.Slice(a.data, off, int(n))
	return view
}

// Copy moves n bytes from src to dst with memmove semantics.
func (a *Arena) Copy(dst, src Addr, n uint32) {
	if n == 0 {
		return
	}
	d := a.offset("write", dst, n)
	s := a.offset("read", src, n)
	copy(a.data[d:d+int(n)], a.data[s:s+int(n)])
}

// Zero clears [addr, addr+n).
func (a *Arena) Zero(addr Addr, n uint32) {
	clear(a.Bytes(addr, n))
}

// AddrOf maps a slice obtained from Bytes back to the address of its first
// byte. ok is false for empty slices and slices that do not alias the arena.
func (a *Arena) AddrOf(b []byte) (Addr, bool) {
	if len(b) == 0 || len(a.data) == 0 {
		return Nil, false
	}
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.data)))
	if p < base {
		return Nil, false
	}
	off := p - base
	if off >= uintptr(len(a.data)) || uintptr(len(b)) > uintptr(len(a.data))-off {
		return Nil, false
	}
	return a.region.start + Addr(off), true
}

// Used returns the raw bytes of [Region().Start(), upTo). It is a read-only
// view for diagnostics such as digests.
func (a *Arena) Used(upTo Addr) []byte {
	n, ok := upTo.Sub(a.region.start)
	if !ok {
		return nil
	}
	return a.Bytes(a.region.start, n)
}

var _ Memory = (*Arena)(nil)
