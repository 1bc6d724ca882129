// Package report renders workload results for people and for machines.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/workload"
	"github.com/joshuapare/heapkit/internal/logger"
)

// Options controls text rendering.
type Options struct {
	Color    bool
	Verbose  bool // include allocator counters
	MapWidth int  // cells in the heap map; zero disables it
	Lang     language.Tag
}

// DefaultLang returns the user's preferred language from the environment,
// falling back to American English.
func DefaultLang() language.Tag {
	locales, err := locale.GetLocales()
	if err != nil {
		logger.Debug("report: locale", "err", err)
	}
	if len(locales) == 0 {
		locales = []string{"en-US"}
	}
	for _, l := range locales {
		if tag, err := language.Parse(l); err == nil {
			return tag
		}
	}
	return language.AmericanEnglish
}

// Summary is the machine-readable form of a Result.
type Summary struct {
	Name       string  `json:"name"`
	OK         bool    `json:"ok"`
	Failure    string  `json:"failure,omitempty"`
	Digest     string  `json:"digest"`
	Live       int     `json:"live"`
	Start      string  `json:"start"`
	Tip        string  `json:"tip"`
	End        string  `json:"end"`
	UsedBytes  uint32  `json:"used_bytes"`
	FreeBytes  uint32  `json:"free_bytes"`
	FreeBlocks int     `json:"free_blocks"`
	Largest    uint32  `json:"largest_free_block"`
	Fragment   float64 `json:"fragmentation"`

	Counts workload.Counts `json:"counts"`
	Stats  alloc.Stats     `json:"stats"`
}

// Summarise converts res for JSON output.
func Summarise(res workload.Result) Summary {
	snap := res.Snapshot
	return Summary{
		Name:       res.Name,
		OK:         res.Err == nil,
		Failure:    res.Failure,
		Digest:     fmt.Sprintf("%016x", res.Digest),
		Live:       res.Live,
		Start:      snap.Start.String(),
		Tip:        snap.Tip.String(),
		End:        snap.End.String(),
		UsedBytes:  snap.Used(),
		FreeBytes:  snap.FreeBytes,
		FreeBlocks: snap.FreeBlocks,
		Largest:    snap.Largest,
		Fragment:   Fragmentation(snap),
		Counts:     res.Counts,
		Stats:      res.Stats,
	}
}

// Fragmentation is 1 - largest/free over the free list: zero when all free
// bytes form one block, approaching one as they scatter.
func Fragmentation(s alloc.Snapshot) float64 {
	if s.FreeBytes == 0 {
		return 0
	}
	return 1 - float64(s.Largest)/float64(s.FreeBytes)
}

// JSON writes the summaries of results as an indented JSON array.
func JSON(w io.Writer, results []workload.Result) error {
	out := make([]Summary, len(results))
	for i, r := range results {
		out[i] = Summarise(r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type styles struct {
	title, ok, failed, used, free, untouched lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		ok:        lipgloss.NewStyle().Foreground(lipgloss.Color("#00AF00")),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#D70000")).Bold(true),
		used:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")),
		free:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")),
		untouched: lipgloss.NewStyle().Foreground(lipgloss.Color("#585858")),
	}
}

// Text writes a human-readable report of res.
func Text(w io.Writer, res workload.Result, blocks []Block, opts Options) error {
	st := newStyles(opts.Color)
	p := message.NewPrinter(opts.Lang)
	snap := res.Snapshot

	var b strings.Builder
	status := st.ok.Render("ok")
	if res.Err != nil {
		status = st.failed.Render("FAILED")
	}
	fmt.Fprintf(&b, "%s  %s\n", st.title.Render(res.Name), status)
	if res.Failure != "" {
		fmt.Fprintf(&b, "  %s\n", res.Failure)
	}

	b.WriteString(p.Sprintf("  region     %s - %s (%s)\n", snap.Start, snap.End,
		humanize.IBytes(uint64(snap.End-snap.Start))))
	b.WriteString(p.Sprintf("  tip        %s (%s untouched)\n", snap.Tip, humanize.IBytes(uint64(snap.Remaining()))))
	b.WriteString(p.Sprintf("  in use     %s in %d live allocations\n", humanize.IBytes(uint64(snap.Used())), res.Live))
	b.WriteString(p.Sprintf("  free list  %s in %d blocks, largest %s, fragmentation %.1f%%\n",
		humanize.IBytes(uint64(snap.FreeBytes)), snap.FreeBlocks, humanize.IBytes(uint64(snap.Largest)),
		100*Fragmentation(snap)))
	b.WriteString(p.Sprintf("  calls      %d alloc, %d free, %d grow, %d shrink, %d out of memory, %d irq\n",
		res.Counts.Allocs, res.Counts.Frees, res.Counts.Grows, res.Counts.Shrinks,
		res.Counts.OutOfMemory, res.Counts.IRQs))
	if opts.Verbose {
		s := res.Stats
		b.WriteString(p.Sprintf("  allocator  %d exact fits, %d splits, %d bump, %d gaps, %d merges\n",
			s.ExactFits, s.Splits, s.BumpAllocs, s.GapBlocks, s.Merges))
		b.WriteString(p.Sprintf("  grow       %d tip, %d in place, %d moved\n",
			s.GrowTipExtend, s.GrowInPlace, s.GrowMoves))
		fmt.Fprintf(&b, "  digest     %016x\n", res.Digest)
	}
	if opts.MapWidth > 0 {
		fmt.Fprintf(&b, "  [%s]\n", renderMap(snap, blocks, opts.MapWidth, st))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
