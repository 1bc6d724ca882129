package workload

import (
	"errors"
	"fmt"
	"math"

	"go.starlark.net/starlark"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/irq"
	"github.com/joshuapare/heapkit/heap/mem"
)

type builtinFn = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

// builtins returns the predeclared names visible to scripts:
//
//	alloc(size, align=8)            -> ptr or None when out of memory
//	alloc_zeroed(size, align=8)     -> ptr or None
//	free(ptr, size, align=8)
//	grow(ptr, old, new, align=8)    -> ptr or None
//	shrink(ptr, old, new, align=8)  -> ptr
//	write(ptr, data)                   data is bytes or string
//	read(ptr, n)                    -> bytes
//	on_irq(line, fn)                   fn(line) runs as the handler; None removes it
//	raise_irq(line)
//	tip()                           -> current bump tip
//	free_blocks()                   -> free list length
//	check()                            verifies the heap against the live set
//	fail(msg)
func (r *runner) builtins() starlark.StringDict {
	fns := map[string]builtinFn{
		"alloc":        r.allocFn(false),
		"alloc_zeroed": r.allocFn(true),
		"free":         r.free,
		"grow":         r.grow,
		"shrink":       r.shrink,
		"write":        r.write,
		"read":         r.read,
		"on_irq":       r.onIRQ,
		"raise_irq":    r.raiseIRQ,
		"tip":          r.tip,
		"free_blocks":  r.freeBlocks,
		"check":        r.check,
		"fail":         r.fail,
	}
	d := make(starlark.StringDict, len(fns))
	for name, fn := range fns {
		d[name] = starlark.NewBuiltin(name, fn)
	}
	return d
}

// critical runs fn with interrupts masked so that handlers raised during an
// allocator call see the script's bookkeeping already updated.
func (r *runner) critical(fn func()) error {
	r.sys.IRQ.Free(fn)
	err := r.irqErr
	r.irqErr = nil
	return err
}

func (r *runner) allocFn(zeroed bool) builtinFn {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		size, align := 0, 8
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "size", &size, "align?", &align); err != nil {
			return nil, err
		}
		l, err := layout(b.Name(), size, align)
		if err != nil {
			return nil, err
		}

		var p mem.Addr
		irqErr := r.critical(func() {
			if zeroed {
				p, err = r.sys.Alloc.AllocZeroed(l)
			} else {
				p, err = r.sys.Alloc.Alloc(l)
			}
			r.counts.Allocs++
			if err == nil {
				r.live[p] = l
			}
		})
		if irqErr != nil {
			return nil, irqErr
		}
		if errors.Is(err, alloc.ErrOutOfMemory) {
			r.counts.OutOfMemory++
			return starlark.None, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return addrValue(p), nil
	}
}

func (r *runner) free(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ptr, size, align := 0, 0, 8
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ptr", &ptr, "size", &size, "align?", &align); err != nil {
		return nil, err
	}
	p, err := addr(b.Name(), ptr)
	if err != nil {
		return nil, err
	}
	l, err := layout(b.Name(), size, align)
	if err != nil {
		return nil, err
	}

	if err := r.critical(func() {
		r.sys.Alloc.Dealloc(p, l)
		r.counts.Frees++
		delete(r.live, p)
	}); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

func (r *runner) grow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return r.resize(b, args, kwargs, true)
}

func (r *runner) shrink(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return r.resize(b, args, kwargs, false)
}

func (r *runner) resize(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, grow bool) (starlark.Value, error) {
	ptr, oldSize, newSize, align := 0, 0, 0, 8
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"ptr", &ptr, "old", &oldSize, "new", &newSize, "align?", &align); err != nil {
		return nil, err
	}
	p, err := addr(b.Name(), ptr)
	if err != nil {
		return nil, err
	}
	old, err := layout(b.Name(), oldSize, align)
	if err != nil {
		return nil, err
	}
	next, err := layout(b.Name(), newSize, align)
	if err != nil {
		return nil, err
	}

	var q mem.Addr
	irqErr := r.critical(func() {
		if grow {
			q, err = r.sys.Alloc.Grow(p, old, next.Size)
			r.counts.Grows++
		} else {
			q, err = r.sys.Alloc.Shrink(p, old, next.Size)
			r.counts.Shrinks++
		}
		if err == nil {
			delete(r.live, p)
			r.live[q] = next
		}
	})
	if irqErr != nil {
		return nil, irqErr
	}
	if errors.Is(err, alloc.ErrOutOfMemory) {
		r.counts.OutOfMemory++
		return starlark.None, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return addrValue(q), nil
}

func (r *runner) write(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		ptr  int
		data starlark.Value
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ptr", &ptr, "data", &data); err != nil {
		return nil, err
	}
	p, err := addr(b.Name(), ptr)
	if err != nil {
		return nil, err
	}

	var raw string
	switch v := data.(type) {
	case starlark.Bytes:
		raw = string(v)
	case starlark.String:
		raw = string(v)
	default:
		return nil, fmt.Errorf("%s: data must be bytes or string, got %s", b.Name(), data.Type())
	}

	copy(r.sys.Arena.Bytes(p, uint32(len(raw))), raw)
	r.counts.Writes++
	return starlark.None, nil
}

func (r *runner) read(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	ptr, n := 0, 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "ptr", &ptr, "n", &n); err != nil {
		return nil, err
	}
	p, err := addr(b.Name(), ptr)
	if err != nil {
		return nil, err
	}
	size, err := u32(b.Name(), "n", n)
	if err != nil {
		return nil, err
	}

	r.counts.Reads++
	return starlark.Bytes(r.sys.Arena.Bytes(p, size)), nil
}

func (r *runner) onIRQ(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name string
		fn   starlark.Value
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "line", &name, "fn", &fn); err != nil {
		return nil, err
	}
	line, err := irq.ParseLine(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	switch fn := fn.(type) {
	case starlark.NoneType:
		r.sys.IRQ.Handle(line, nil)
	case starlark.Callable:
		r.sys.IRQ.Handle(line, r.handler(fn))
	default:
		return nil, fmt.Errorf("%s: fn must be callable or None, got %s", b.Name(), fn.Type())
	}
	return starlark.None, nil
}

// handler adapts a script function to an interrupt handler. Errors are kept
// until the builtin that triggered the interrupt returns.
func (r *runner) handler(fn starlark.Callable) irq.Handler {
	return func(line irq.Line) {
		r.counts.IRQs++
		_, err := starlark.Call(r.thread, fn, starlark.Tuple{starlark.String(line.String())}, nil)
		if err != nil && r.irqErr == nil {
			r.irqErr = fmt.Errorf("irq %s handler: %w", line, err)
		}
	}
}

func (r *runner) raiseIRQ(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "line", &name); err != nil {
		return nil, err
	}
	line, err := irq.ParseLine(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	r.sys.IRQ.Raise(line)
	err = r.irqErr
	r.irqErr = nil
	return starlark.None, err
}

func (r *runner) tip(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return addrValue(r.sys.Alloc.Tip()), nil
}

func (r *runner) freeBlocks(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return starlark.MakeInt(r.sys.Alloc.FreeBlocks()), nil
}

func (r *runner) check(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	r.counts.Checks++

	if err := r.sys.Alloc.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScript, err)
	}
	snap := r.sys.Alloc.Snapshot()
	if used, live := snap.Used(), r.liveBytes(); used != live {
		return nil, fmt.Errorf("%w: %d bytes in use below the tip but %d bytes live", ErrScript, used, live)
	}
	return starlark.None, nil
}

func (r *runner) fail(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "msg", &msg); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s", ErrScript, msg)
}

func layout(fn string, size, align int) (alloc.Layout, error) {
	s, err := u32(fn, "size", size)
	if err != nil {
		return alloc.Layout{}, err
	}
	a, err := u32(fn, "align", align)
	if err != nil {
		return alloc.Layout{}, err
	}
	l, err := alloc.NewLayout(s, a)
	if err != nil {
		return alloc.Layout{}, fmt.Errorf("%s: %w", fn, err)
	}
	return l, nil
}

func addr(fn string, v int) (mem.Addr, error) {
	a, err := u32(fn, "ptr", v)
	return mem.Addr(a), err
}

func u32(fn, arg string, v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%s: %s %d out of range", fn, arg, v)
	}
	return uint32(v), nil
}

func addrValue(p mem.Addr) starlark.Value {
	return starlark.MakeUint64(uint64(p))
}
