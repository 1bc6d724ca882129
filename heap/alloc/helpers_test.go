package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/mem"
)

// ============================================================================
// Heap Construction
// ============================================================================

const testBase mem.Addr = 0x02000000

// newTestHeap returns a block allocator over a fresh arena of size bytes at
// testBase.
func newTestHeap(t testing.TB, size uint32, opts ...Option) (*BlockAllocator, *mem.Arena) {
	t.Helper()
	arena, err := mem.NewArena(testBase, size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = arena.Close() })

	a, err := New(arena, opts...)
	require.NoError(t, err)
	return a, arena
}

// mustAlloc allocates size bytes aligned to align and fails the test on error.
func mustAlloc(t testing.TB, a *BlockAllocator, size, align uint32) mem.Addr {
	t.Helper()
	p, err := a.Alloc(Layout{Size: size, Align: align})
	require.NoError(t, err, "alloc %d@%d", size, align)
	return p
}

// ============================================================================
// Assertions
// ============================================================================

// freeList returns the free list as address/size pairs.
func freeList(a *BlockAllocator) [][2]uint32 {
	var out [][2]uint32
	a.Walk(func(addr mem.Addr, size uint32) bool {
		out = append(out, [2]uint32{uint32(addr - testBase), size})
		return true
	})
	return out
}

// assertHeap verifies the free list and checks that the bytes below the tip
// are exactly the live chunks plus the free blocks.
func assertHeap(t testing.TB, a *BlockAllocator, live map[mem.Addr]Layout) {
	t.Helper()
	require.NoError(t, a.Verify())

	var used uint32
	for _, l := range live {
		used += l.Effective().Size
	}
	snap := a.Snapshot()
	require.Equal(t, used, snap.Used(), "live bytes plus free bytes must equal the used span")
}

// requireInvariant runs fn and requires it to panic with an *InvariantError.
func requireInvariant(t testing.TB, fn func()) *InvariantError {
	t.Helper()
	var got *InvariantError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected an invariant panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value should be an error, got %T", r)
			require.True(t, errors.As(err, &got), "panic value should be *InvariantError, got %v", err)
			require.ErrorIs(t, err, ErrInvariant)
		}()
		fn()
	}()
	return got
}

// hookMemory calls onAccess before forwarding a read or write.
type hookMemory struct {
	*mem.Arena
	onAccess func()
}

func (h *hookMemory) fire() {
	if fn := h.onAccess; fn != nil {
		h.onAccess = nil
		fn()
	}
}

func (h *hookMemory) Word(a mem.Addr) uint32 {
	h.fire()
	return h.Arena.Word(a)
}

func (h *hookMemory) SetWord(a mem.Addr, v uint32) {
	h.fire()
	h.Arena.SetWord(a, v)
}

func (h *hookMemory) Bytes(a mem.Addr, n uint32) []byte {
	h.fire()
	return h.Arena.Bytes(a, n)
}
