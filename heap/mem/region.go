package mem

import "fmt"

// Region is the immutable descriptor of the usable memory range [start, end).
type Region struct {
	start Addr
	end   Addr
}

// NewRegion validates and returns the region [start, end).
func NewRegion(start, end Addr) (Region, error) {
	if start == Nil {
		return Region{}, fmt.Errorf("%w: region may not contain address zero", ErrBadRegion)
	}
	if start > end {
		return Region{}, fmt.Errorf("%w: start %s after end %s", ErrBadRegion, start, end)
	}
	return Region{start: start, end: end}, nil
}

// RegionOf returns the region of size bytes starting at base.
func RegionOf(base Addr, size uint32) (Region, error) {
	end, ok := base.Add(size)
	if !ok {
		return Region{}, fmt.Errorf("%w: %s+%d overflows the address space", ErrBadRegion, base, size)
	}
	return NewRegion(base, end)
}

// Start returns the first address of the region.
func (r Region) Start() Addr { return r.start }

// End returns the address one past the last byte of the region.
func (r Region) End() Addr { return r.end }

// Size returns the number of bytes in the region.
func (r Region) Size() uint32 { return uint32(r.end - r.start) }

// Contains reports whether [a, a+n) lies entirely inside the region.
func (r Region) Contains(a Addr, n uint32) bool {
	if a < r.start {
		return false
	}
	end, ok := a.Add(n)
	return ok && end <= r.end
}

func (r Region) String() string {
	return fmt.Sprintf("[%s, %s)", r.start, r.end)
}
