package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase Addr = 0x02000000

func newTestArena(t *testing.T, size uint32) *Arena {
	t.Helper()
	a, err := NewArena(testBase, size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArenaWords(t *testing.T) {
	a := newTestArena(t, 64)

	a.SetWord(testBase, 0xCAFEF00D)
	a.SetWord(testBase+60, 0x12345678)

	assert.Equal(t, uint32(0xCAFEF00D), a.Word(testBase))
	assert.Equal(t, uint32(0x12345678), a.Word(testBase+60))
	assert.Equal(t, []byte{0x0D, 0xF0, 0xFE, 0xCA}, a.Bytes(testBase, 4), "words are little-endian")
}

func TestArenaFaults(t *testing.T) {
	a := newTestArena(t, 64)

	assertFault := func(op string, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "%s should fault", op)
			f, ok := r.(*Fault)
			require.True(t, ok, "panic value should be *Fault, got %T", r)
			assert.Equal(t, op, f.Op)
			assert.NotErrorIs(t, f, ErrClosed)
		}()
		fn()
	}

	assertFault("read", func() { a.Word(testBase + 61) })
	assertFault("write", func() { a.SetWord(testBase-4, 1) })
	assertFault("view", func() { a.Bytes(testBase+32, 33) })
	assertFault("read", func() { a.Copy(testBase, testBase+40, 32) })
}

func TestArenaUseAfterClose(t *testing.T) {
	a := newTestArena(t, 64)
	a.SetWord(testBase, 7)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "Close is idempotent")

	for _, fn := range []func(){
		func() { a.Word(testBase) },
		func() { a.SetWord(testBase, 1) },
		func() { a.Zero(testBase, 8) },
	} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "access after close should fault")
				f, ok := r.(*Fault)
				require.True(t, ok, "panic value should be *Fault, got %T", r)
				assert.ErrorIs(t, f, ErrClosed)
				assert.Contains(t, f.Error(), "arena closed")
			}()
			fn()
		}()
	}
}

func TestArenaCopyOverlapping(t *testing.T) {
	a := newTestArena(t, 32)
	view := a.Bytes(testBase, 32)
	for i := range view {
		view[i] = byte(i)
	}

	a.Copy(testBase+4, testBase, 8)
	assert.Equal(t, []byte{0, 1, 2, 3, 0, 1, 2, 3, 4, 5, 6, 7}, view[:12])

	a.Zero(testBase, 4)
	assert.Equal(t, []byte{0, 0, 0, 0}, view[:4])
}

func TestArenaAddrOf(t *testing.T) {
	a := newTestArena(t, 128)

	view := a.Bytes(testBase+40, 16)
	addr, ok := a.AddrOf(view)
	require.True(t, ok)
	assert.Equal(t, testBase+40, addr)

	_, ok = a.AddrOf(make([]byte, 16))
	assert.False(t, ok, "foreign slices do not map back")

	_, ok = a.AddrOf(nil)
	assert.False(t, ok)
}

func TestArenaUsed(t *testing.T) {
	a := newTestArena(t, 64)
	assert.Len(t, a.Used(testBase+24), 24)
	assert.Empty(t, a.Used(testBase))
	assert.Nil(t, a.Used(testBase-8))
}

func TestMapArena(t *testing.T) {
	a, err := MapArena(testBase, 8192)
	require.NoError(t, err)

	a.SetWord(testBase+8188, 0xA5A5A5A5)
	assert.Equal(t, uint32(0xA5A5A5A5), a.Word(testBase+8188))
	assert.Equal(t, uint32(8192), a.Region().Size())

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "Close is idempotent")

	assert.Panics(t, func() { a.Word(testBase) }, "access after Close faults")
}
