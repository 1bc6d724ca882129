package mem

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrArithmetic(t *testing.T) {
	a := Addr(0x02000000)

	sum, ok := a.Add(0x40)
	require.True(t, ok)
	assert.Equal(t, Addr(0x02000040), sum)

	_, ok = Addr(math.MaxUint32 - 3).Add(4)
	assert.False(t, ok, "adding past the top of the address space must fail")

	d, ok := sum.Sub(a)
	require.True(t, ok)
	assert.Equal(t, uint32(0x40), d)

	_, ok = a.Sub(sum)
	assert.False(t, ok, "a negative distance must be reported")

	top, ok := Addr(math.MaxUint32 - 4).Add(4)
	require.True(t, ok, "the last address is reachable")
	assert.Equal(t, Addr(math.MaxUint32), top)

	d, ok = top.Sub(Nil)
	require.True(t, ok)
	assert.Equal(t, uint32(math.MaxUint32), d)
}

func TestAddrAlignUp(t *testing.T) {
	got, ok := Addr(0x02000004).AlignUp(8)
	require.True(t, ok)
	assert.Equal(t, Addr(0x02000008), got)

	got, ok = Addr(0x02000010).AlignUp(16)
	require.True(t, ok)
	assert.Equal(t, Addr(0x02000010), got)

	_, ok = Addr(0x02000004).AlignUp(12)
	assert.False(t, ok, "non power-of-two alignment")

	_, ok = Addr(math.MaxUint32).AlignUp(8)
	assert.False(t, ok)

	assert.Equal(t, "0x02000004", Addr(0x02000004).String())
}

func TestRegion(t *testing.T) {
	r, err := NewRegion(0x100, 0x200)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x100), r.Size())
	assert.True(t, r.Contains(0x100, 0x100))
	assert.True(t, r.Contains(0x1F8, 8))
	assert.False(t, r.Contains(0x1F8, 9))
	assert.False(t, r.Contains(0xF8, 8))

	_, err = NewRegion(0x200, 0x100)
	assert.True(t, errors.Is(err, ErrBadRegion))

	_, err = NewRegion(0, 0x100)
	assert.True(t, errors.Is(err, ErrBadRegion), "address zero is the nil link")

	_, err = RegionOf(0xFFFFFF00, 0x200)
	assert.True(t, errors.Is(err, ErrBadRegion))

	empty, err := NewRegion(0x100, 0x100)
	require.NoError(t, err)
	assert.Zero(t, empty.Size())
	assert.True(t, empty.Contains(0x100, 0))
}
