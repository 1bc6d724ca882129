package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/mem"
)

func newTestBump(t *testing.T, start mem.Addr, size uint32) *BumpAllocator {
	t.Helper()
	r, err := mem.RegionOf(start, size)
	require.NoError(t, err)
	return NewBump(r, nil)
}

func TestBumpAdvancesTip(t *testing.T) {
	b := newTestBump(t, testBase, 64)
	require.Equal(t, testBase, b.Tip())

	p, err := b.Alloc(Layout{Size: 8, Align: 8})
	require.NoError(t, err)
	assert.Equal(t, testBase, p)
	assert.Equal(t, testBase+8, b.Tip())

	p, err = b.Alloc(Layout{Size: 16, Align: 16})
	require.NoError(t, err)
	assert.Equal(t, testBase+16, p, "aligned up past the tip")
	assert.Equal(t, testBase+32, b.Tip())
	assert.Equal(t, uint32(32), b.Remaining())
}

func TestBumpOutOfMemory(t *testing.T) {
	b := newTestBump(t, testBase, 32)

	_, err := b.Alloc(Layout{Size: 24, Align: 8})
	require.NoError(t, err)

	_, err = b.Alloc(Layout{Size: 16, Align: 8})
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, testBase+24, b.Tip(), "a failed allocation leaves the tip alone")

	p, err := b.Alloc(Layout{Size: 8, Align: 8})
	require.NoError(t, err, "the remaining 8 bytes still fit")
	assert.Equal(t, testBase+24, p)
	assert.Zero(t, b.Remaining())
}

func TestBumpRejectsBadLayout(t *testing.T) {
	b := newTestBump(t, testBase, 32)
	_, err := b.Alloc(Layout{Size: 8, Align: 3})
	require.ErrorIs(t, err, ErrBadLayout)
	assert.Equal(t, testBase, b.Tip())
}

func TestBumpBaseIsGranular(t *testing.T) {
	b := newTestBump(t, testBase+4, 64)
	assert.Equal(t, testBase+8, b.Base())
	assert.Equal(t, testBase+8, b.Tip())

	tiny := newTestBump(t, testBase+1, 6)
	assert.Equal(t, tiny.Region().End(), tiny.Base(), "a region without a whole granule is full")
	_, err := tiny.Alloc(Layout{Size: 1, Align: 1})
	require.ErrorIs(t, err, ErrOutOfMemory)
}
