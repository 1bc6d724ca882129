package alloc

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/mem"
)

// Test_Property_RandomOps performs random alloc/free/grow/shrink calls and
// checks after every step that the free list verifies, that live bytes plus
// free bytes cover the used span exactly, and that no live chunk lost data.
func Test_Property_RandomOps(t *testing.T) {
	for _, seed := range []int64{1, 42, 1337, 20240601} {
		t.Run("", func(t *testing.T) {
			runRandomOps(t, seed, 2000)
		})
	}
}

type liveChunk struct {
	layout Layout
	seed   byte
}

func runRandomOps(t *testing.T, seed int64, steps int) {
	a, arena := newTestHeap(t, 16*1024)
	rng := rand.New(rand.NewSource(seed)) // fixed seed for reproducibility
	live := make(map[mem.Addr]liveChunk)
	aligns := []uint32{1, 2, 4, 8, 16, 32}

	pick := func() (mem.Addr, liveChunk) {
		n := rng.Intn(len(live))
		for p, c := range live {
			if n == 0 {
				return p, c
			}
			n--
		}
		panic("unreachable")
	}

	for i := range steps {
		op := rng.Intn(4)
		if len(live) == 0 {
			op = 0
		}

		switch op {
		case 0: // alloc
			l := Layout{Size: uint32(1 + rng.Intn(300)), Align: aligns[rng.Intn(len(aligns))]}
			p, err := a.Alloc(l)
			if errors.Is(err, ErrOutOfMemory) {
				continue
			}
			require.NoError(t, err, "step %d", i)
			require.True(t, p.IsAligned(l.Align), "step %d: %s not aligned to %d", i, p, l.Align)
			_, dup := live[p]
			require.False(t, dup, "step %d: %s handed out twice", i, p)
			c := liveChunk{layout: l, seed: byte(rng.Intn(256))}
			fill(arena, p, l.Size, c.seed)
			live[p] = c

		case 1: // free
			p, c := pick()
			requireFilled(t, arena, p, c.layout.Size, c.seed)
			a.Dealloc(p, c.layout)
			delete(live, p)

		case 2: // grow
			p, c := pick()
			newSize := c.layout.Size + uint32(rng.Intn(200))
			q, err := a.Grow(p, c.layout, newSize)
			if errors.Is(err, ErrOutOfMemory) {
				requireFilled(t, arena, p, c.layout.Size, c.seed)
				continue
			}
			require.NoError(t, err, "step %d", i)
			requireFilled(t, arena, q, c.layout.Size, c.seed)
			delete(live, p)
			c.layout.Size = newSize
			fill(arena, q, newSize, c.seed)
			live[q] = c

		case 3: // shrink
			p, c := pick()
			newSize := uint32(rng.Intn(int(c.layout.Size) + 1))
			q, err := a.Shrink(p, c.layout, newSize)
			require.NoError(t, err, "step %d", i)
			require.Equal(t, p, q, "step %d: shrink never moves", i)
			requireFilled(t, arena, q, newSize, c.seed)
			c.layout.Size = newSize
			live[q] = c
		}

		layouts := make(map[mem.Addr]Layout, len(live))
		for p, c := range live {
			layouts[p] = c.layout
		}
		assertHeap(t, a, layouts)
	}

	// Freeing everything leaves one block spanning the used part of the heap.
	for p, c := range live {
		a.Dealloc(p, c.layout)
	}
	snap := a.Snapshot()
	if snap.Tip > snap.Start {
		require.Equal(t, 1, snap.FreeBlocks)
		require.Equal(t, uint32(snap.Tip-snap.Start), snap.FreeBytes)
	}
}
