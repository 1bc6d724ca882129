package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/format"
)

var layoutJSON bool

func init() {
	cmd := newLayoutCmd()
	cmd.Flags().BoolVar(&layoutJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "layout <size> [align]",
		Short: "Show the effective layout reserved for a request",
		Long: `The layout command shows how many bytes the allocator actually
reserves for a request and at what alignment. Every chunk is at least one
free-list header long and padded to the allocation granularity.

Example:
  heapctl layout 1
  heapctl layout 33 32
  heapctl layout 0x100 16 --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(args)
		},
	}
}

type layoutOutput struct {
	Size           uint32 `json:"size"`
	Align          uint32 `json:"align"`
	EffectiveSize  uint32 `json:"effective_size"`
	EffectiveAlign uint32 `json:"effective_align"`
	Padding        uint32 `json:"padding"`
	SplitThreshold uint32 `json:"split_threshold"`
}

func runLayout(args []string) error {
	size, err := parseU32(args[0])
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}
	align := uint32(format.Granularity)
	if len(args) == 2 {
		if align, err = parseU32(args[1]); err != nil {
			return fmt.Errorf("align: %w", err)
		}
	}

	l, err := alloc.NewLayout(size, align)
	if err != nil {
		return err
	}
	eff := l.Effective()
	out := layoutOutput{
		Size:           l.Size,
		Align:          l.Align,
		EffectiveSize:  eff.Size,
		EffectiveAlign: eff.Align,
		Padding:        eff.Size - l.Size,
		SplitThreshold: eff.Size + format.BlockHeaderSize,
	}

	if layoutJSON {
		return printJSON(out)
	}
	printInfo("request    %s\n", l)
	printInfo("effective  %s (%d bytes padding)\n", eff, out.Padding)
	printVerbose("split      free blocks of %d bytes or more are split\n", out.SplitThreshold)
	return nil
}

// parseU32 accepts decimal, 0x hex, 0o octal and 0b binary.
func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
