// Package workload runs allocation scripts against a heap.
//
// Scripts are Starlark programs. They drive the allocator through a small
// set of builtins and may install interrupt handlers that allocate, which is
// how interrupt-safety of the allocator is exercised end to end:
//
//	p = alloc(32)
//	write(p, "hello")
//	def vblank(line):
//	    free(alloc(16), 16)
//	on_irq("vblank", vblank)
//	p = grow(p, 32, 128)
//	raise_irq("vblank")
//	check()
//
// See builtins.go for the full list.
package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/mem"
	"github.com/joshuapare/heapkit/internal/logger"
)

// ErrScript is wrapped by every error a script raises itself, through
// fail() or a failing check().
var ErrScript = errors.New("workload: script failed")

// Result summarises one run.
type Result struct {
	Name     string
	Counts   Counts
	Live     int // allocations the script never freed
	Snapshot alloc.Snapshot
	Stats    alloc.Stats
	Digest   uint64
	Err      error `json:"-"`
	Failure  string
}

// Counts records how often each builtin was called.
type Counts struct {
	Allocs      int
	Frees       int
	Grows       int
	Shrinks     int
	OutOfMemory int
	Writes      int
	Reads       int
	IRQs        int
	Checks      int
}

// Option configures Run.
type Option func(*runner)

// WithOutput sends print() output to w.
func WithOutput(w io.Writer) Option {
	return func(r *runner) { r.out = w }
}

// WithLogger routes run logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) { r.log = l }
}

type runner struct {
	sys    *heap.System
	thread *starlark.Thread
	live   map[mem.Addr]alloc.Layout
	counts Counts

	// irqErr holds the first error raised by a script interrupt handler.
	// Handlers run from inside the controller, which cannot report errors.
	irqErr error

	out io.Writer
	log *slog.Logger
}

// Run executes the script src, named name, against sys. A script error is
// reported in Result.Err as well as returned; the heap state at the point
// of failure is still summarised. Allocator invariant violations and memory
// faults raised by the script also end the run with an error.
func Run(ctx context.Context, sys *heap.System, name string, src []byte, opts ...Option) (Result, error) {
	r := &runner{
		sys:  sys,
		live: make(map[mem.Addr]alloc.Layout),
		log:  logger.L,
	}
	for _, o := range opts {
		o(r)
	}
	r.thread = &starlark.Thread{Name: name, Print: r.print}

	stop := context.AfterFunc(ctx, func() { r.thread.Cancel(context.Cause(ctx).Error()) })
	defer stop()

	err := r.exec(name, src)
	if err == nil && r.irqErr != nil {
		err = r.irqErr
	}

	res := Result{
		Name:   name,
		Counts: r.counts,
		Live:   len(r.live),
		Stats:  sys.Alloc.Stats(),
		Digest: sys.Digest(),
	}
	// A corrupt free list cannot be summarised.
	if verr := sys.Alloc.Verify(); verr != nil {
		res.Snapshot = alloc.Snapshot{Start: sys.Alloc.Base(), Tip: sys.Alloc.Tip(), End: sys.Alloc.Region().End()}
		if err == nil {
			err = fmt.Errorf("workload: %s: %w", name, verr)
		}
	} else {
		res.Snapshot = sys.Alloc.Snapshot()
	}
	res.Err = err
	if err != nil {
		res.Failure = err.Error()
		r.log.Warn("workload failed", "name", name, "err", err)
		return res, err
	}
	r.log.Info("workload done", "name", name, "allocs", r.counts.Allocs, "frees", r.counts.Frees,
		"live", res.Live, "tip", res.Snapshot.Tip.String())
	return res, nil
}

// Workloads are flat scripts: loops and rebinding at the top level are
// allowed.
var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

func (r *runner) exec(name string, src []byte) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		var ie *alloc.InvariantError
		var fault *mem.Fault
		if e, ok := rec.(error); ok && (errors.As(e, &ie) || errors.As(e, &fault)) {
			err = fmt.Errorf("workload: %s: %w", name, e)
			return
		}
		panic(rec)
	}()

	_, err = starlark.ExecFileOptions(fileOptions, r.thread, name, src, r.builtins())
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			r.log.Debug("script backtrace", "name", name, "trace", evalErr.Backtrace())
		}
		return fmt.Errorf("workload: %w", err)
	}
	return nil
}

func (r *runner) print(_ *starlark.Thread, msg string) {
	if r.out != nil {
		fmt.Fprintln(r.out, msg)
		return
	}
	r.log.Info("script", "msg", msg)
}

// liveBytes sums the effective sizes of every tracked allocation.
func (r *runner) liveBytes() uint32 {
	var n uint32
	for _, l := range r.live {
		n += l.Effective().Size
	}
	return n
}
