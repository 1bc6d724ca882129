package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/irq"
	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/writer"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Region.Size = 4096
	return cfg
}

func TestOpenDefault(t *testing.T) {
	sys, err := Open(config.Default())
	require.NoError(t, err)
	defer sys.Close()

	assert.Equal(t, mem.Addr(config.DefaultBase), sys.Arena.Region().Start())
	assert.Equal(t, uint32(config.DefaultSize), sys.Arena.Region().Size())
	assert.Equal(t, mem.Addr(config.DefaultBase), sys.Alloc.Tip())
	assert.True(t, sys.IRQ.Enabled())
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Region.Base = 0
	_, err := Open(cfg)
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestOpenMapped(t *testing.T) {
	cfg := smallConfig()
	cfg.Region.Mapped = true
	sys, err := Open(cfg)
	require.NoError(t, err)

	p, err := sys.Alloc.Alloc(alloc.Layout{Size: 64, Align: 8})
	require.NoError(t, err)
	sys.Arena.SetWord(p, 0xDEADBEEF)
	assert.Equal(t, uint32(0xDEADBEEF), sys.Arena.Word(p))

	require.NoError(t, sys.Close())
	require.NoError(t, sys.Close(), "close is idempotent")
}

func TestAllocatorMasksControllerInterrupts(t *testing.T) {
	sys, err := Open(smallConfig())
	require.NoError(t, err)
	defer sys.Close()

	var got mem.Addr
	sys.IRQ.Handle(irq.Timer1, func(irq.Line) {
		p, err := sys.Alloc.Alloc(alloc.Layout{Size: 8, Align: 8})
		require.NoError(t, err)
		got = p
	})
	sys.IRQ.Raise(irq.Timer1)
	assert.Equal(t, mem.Addr(config.DefaultBase), got)
	assert.True(t, sys.IRQ.Enabled())
}

func TestDigestIsDeterministic(t *testing.T) {
	run := func() uint64 {
		sys, err := Open(smallConfig())
		require.NoError(t, err)
		defer sys.Close()

		l := alloc.Layout{Size: 24, Align: 8}
		p, err := sys.Alloc.Alloc(l)
		require.NoError(t, err)
		q, err := sys.Alloc.Alloc(l)
		require.NoError(t, err)
		sys.Arena.SetWord(q, 42)
		sys.Alloc.Dealloc(p, l)
		return sys.Digest()
	}

	first := run()
	assert.Equal(t, first, run())

	sys, err := Open(smallConfig())
	require.NoError(t, err)
	defer sys.Close()
	assert.NotEqual(t, first, sys.Digest(), "an empty heap hashes differently")
}

func TestDump(t *testing.T) {
	sys, err := Open(smallConfig())
	require.NoError(t, err)
	defer sys.Close()

	var w writer.MemWriter
	require.NoError(t, sys.Dump(&w))
	assert.Empty(t, w.Image.Data)
	assert.Equal(t, uint32(config.DefaultBase), w.Image.Start)

	l := alloc.Layout{Size: 16, Align: 8}
	p, err := sys.Alloc.Alloc(l)
	require.NoError(t, err)
	sys.Arena.SetWord(p, 0xCAFEF00D)

	require.NoError(t, sys.Dump(&w))
	require.Len(t, w.Image.Data, 16)
	assert.Equal(t, []byte{0x0D, 0xF0, 0xFE, 0xCA}, w.Image.Data[:4])
	assert.Equal(t, uint32(sys.Alloc.Tip()), w.Image.Tip)
	assert.Equal(t, sys.Digest(), w.Image.Digest())
}

// With a region start that is not granular the image still starts at the
// region start, below the allocator's base.
func TestDumpUnalignedRegion(t *testing.T) {
	cfg := smallConfig()
	cfg.Region.Base = config.DefaultBase + 4
	sys, err := Open(cfg)
	require.NoError(t, err)
	defer sys.Close()

	p, err := sys.Alloc.Alloc(alloc.Layout{Size: 8, Align: 8})
	require.NoError(t, err)
	require.Equal(t, mem.Addr(config.DefaultBase+8), p)
	sys.Arena.SetWord(p, 0x11223344)

	var w writer.MemWriter
	require.NoError(t, sys.Dump(&w))
	img := w.Image
	assert.Equal(t, uint32(config.DefaultBase+4), img.Start)
	assert.Equal(t, uint32(p), img.Base)
	require.Len(t, img.Data, 12)
	off := uint32(p) - img.Start
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, img.Data[off:off+4])
}
