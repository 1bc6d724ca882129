// Package heap assembles a complete heap: the memory region, the interrupt
// controller whose masking guards the allocator, and the block allocator.
//
// Most callers only need Open:
//
//	sys, err := heap.Open(config.Default())
//	if err != nil {
//	    return err
//	}
//	defer sys.Close()
//
//	p, err := sys.Alloc.Alloc(alloc.Layout{Size: 64, Align: 8})
package heap

import (
	"fmt"
	"log/slog"

	"github.com/zeebo/xxh3"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/irq"
	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/writer"
)

// System is an open heap.
type System struct {
	Arena *mem.Arena
	IRQ   *irq.Controller
	Alloc *alloc.BlockAllocator

	log *slog.Logger
}

// Option configures Open.
type Option func(*System)

// WithLogger routes the controller's and allocator's logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *System) { s.log = l }
}

// Open validates cfg and builds a heap over a zeroed region.
func Open(cfg config.Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &System{log: logger.L}
	for _, o := range opts {
		o(s)
	}

	base, size := mem.Addr(cfg.Region.Base), cfg.Region.Size
	var err error
	if cfg.Region.Mapped {
		s.Arena, err = mem.MapArena(base, size)
	} else {
		s.Arena, err = mem.NewArena(base, size)
	}
	if err != nil {
		return nil, fmt.Errorf("heap: open: %w", err)
	}

	s.IRQ = irq.NewController(irq.WithLogger(s.log))
	s.Alloc, err = alloc.New(s.Arena, alloc.WithInterrupts(s.IRQ), alloc.WithLogger(s.log))
	if err != nil {
		_ = s.Arena.Close()
		return nil, fmt.Errorf("heap: open: %w", err)
	}

	s.log.Debug("heap open", "region", s.Arena.Region().String(), "mapped", s.Arena.Mapped())
	return s, nil
}

// Close releases the region. The allocator must not be used afterwards.
func (s *System) Close() error {
	return s.Arena.Close()
}

// Digest hashes the used part of the region, from its start to the bump
// tip. Two runs of the same workload produce the same digest.
func (s *System) Digest() uint64 {
	return xxh3.Hash(s.Arena.Used(s.Alloc.Tip()))
}

// Dump writes the used part of the region, from Arena.Region().Start() up to
// the tip, to w. The image header records the region start, so the byte at
// address a is Data[a-Start]; it also records Alloc.Base(), which is above
// the start when the region start is not granular.
func (s *System) Dump(w writer.Sink) error {
	img := writer.Image{
		Start: uint32(s.Arena.Region().Start()),
		Base:  uint32(s.Alloc.Base()),
		Tip:   uint32(s.Alloc.Tip()),
	}
	img.Data = s.Arena.Used(mem.Addr(img.Tip))
	if err := w.WriteImage(img); err != nil {
		return fmt.Errorf("heap: dump: %w", err)
	}
	s.log.Debug("heap dumped", "bytes", len(img.Data), "digest", img.Digest())
	return nil
}
