package report

import (
	"strings"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/mem"
)

// Block is one free-list entry.
type Block struct {
	Addr mem.Addr
	Size uint32
}

// FreeBlocks collects the free list of a in address order.
func FreeBlocks(a *alloc.BlockAllocator) []Block {
	var out []Block
	a.Walk(func(addr mem.Addr, size uint32) bool {
		out = append(out, Block{Addr: addr, Size: size})
		return true
	})
	return out
}

// Map cells.
const (
	cellUsed      = '#'
	cellFree      = '.'
	cellUntouched = ' '
)

// Map draws the region as width cells. A cell is '#' if any byte it covers
// is in use, '.' if it covers only free-list bytes, and blank above the tip.
func Map(snap alloc.Snapshot, blocks []Block, width int, color bool) string {
	return renderMap(snap, blocks, width, newStyles(color))
}

func renderMap(snap alloc.Snapshot, blocks []Block, width int, st styles) string {
	cells := mapCells(snap, blocks, width)

	var b strings.Builder
	for i := 0; i < len(cells); {
		j := i
		for j < len(cells) && cells[j] == cells[i] {
			j++
		}
		run := strings.Repeat(string(cells[i]), j-i)
		switch cells[i] {
		case cellUsed:
			b.WriteString(st.used.Render(run))
		case cellFree:
			b.WriteString(st.free.Render(run))
		default:
			b.WriteString(st.untouched.Render(run))
		}
		i = j
	}
	return b.String()
}

func mapCells(snap alloc.Snapshot, blocks []Block, width int) []byte {
	span := uint64(snap.End - snap.Start)
	width = int(min(uint64(max(width, 0)), span))
	if width == 0 {
		return nil
	}
	cells := make([]byte, width)

	// Each cell covers [lo, hi) relative to Start. Count the free bytes in
	// each cell; blocks are sorted so one pass suffices.
	tip := uint64(snap.Tip - snap.Start)
	bi := 0
	for i := range cells {
		lo := span * uint64(i) / uint64(width)
		hi := span * uint64(i+1) / uint64(width)
		if lo >= tip {
			cells[i] = cellUntouched
			continue
		}
		hi = min(hi, tip)

		var free uint64
		for bi < len(blocks) && uint64(blocks[bi].Addr-snap.Start)+uint64(blocks[bi].Size) <= lo {
			bi++
		}
		for k := bi; k < len(blocks); k++ {
			bLo := uint64(blocks[k].Addr - snap.Start)
			bHi := bLo + uint64(blocks[k].Size)
			if bLo >= hi {
				break
			}
			free += min(bHi, hi) - max(bLo, lo)
		}

		if free == hi-lo {
			cells[i] = cellFree
		} else {
			cells[i] = cellUsed
		}
	}
	return cells
}
