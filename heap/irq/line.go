package irq

import "fmt"

// Line identifies an interrupt source. The numbering follows the bit order of
// the hardware IE/IF registers.
type Line uint8

const (
	VBlank Line = iota
	HBlank
	VCount
	Timer0
	Timer1
	Timer2
	Timer3
	Serial
	DMA0
	DMA1
	DMA2
	DMA3
	Keypad
	GamePak

	// NumLines is the number of interrupt sources.
	NumLines = int(GamePak) + 1
)

var lineNames = [NumLines]string{
	"vblank", "hblank", "vcount",
	"timer0", "timer1", "timer2", "timer3",
	"serial",
	"dma0", "dma1", "dma2", "dma3",
	"keypad", "gamepak",
}

// Valid reports whether l names an existing interrupt source.
func (l Line) Valid() bool { return int(l) < NumLines }

func (l Line) mask() uint16 { return 1 << l }

func (l Line) String() string {
	if !l.Valid() {
		return fmt.Sprintf("line(%d)", uint8(l))
	}
	return lineNames[l]
}

// ParseLine returns the line with the given name, as printed by String.
func ParseLine(name string) (Line, error) {
	for i, n := range lineNames {
		if n == name {
			return Line(i), nil
		}
	}
	return 0, fmt.Errorf("irq: unknown line %q", name)
}
