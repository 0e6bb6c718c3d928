package compiler

import (
	"go.uber.org/zap"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/arena"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/layout"
)

// Unit is one compilation: an arena and the layout table allocated from it.
type Unit struct {
	ts     jitlayout.TypeSystem
	arena  *arena.Arena
	table  *layout.Table
	outer  *Unit
	root   *Unit
	depth  int
	failed bool
	closed bool
}

// NewUnit creates a unit for ts.
func NewUnit(ts jitlayout.TypeSystem, cfg Config) *Unit {
	opts := cfg.Arena
	if cfg.Target.PointerSize != 0 {
		opts.PointerSize = uintptr(cfg.Target.PointerSize)
	}

	a := arena.New(cfg.Host, opts)
	u := &Unit{
		ts:    ts,
		arena: a,
		table: layout.NewTable(a, ts, cfg.Target),
	}
	u.root = u
	return u
}

// Inline returns a unit for a callee inlined into u. It shares u's table and
// arena and must be used on the same goroutine.
func (u *Unit) Inline() *Unit {
	return &Unit{
		ts:    u.ts,
		arena: u.arena,
		table: u.table,
		outer: u,
		root:  u.root,
		depth: u.depth + 1,
	}
}

// Layouts returns the unit's layout table.
func (u *Unit) Layouts() *layout.Table {
	return u.table
}

func (u *Unit) Arena() *arena.Arena {
	return u.arena
}

func (u *Unit) TypeSystem() jitlayout.TypeSystem {
	return u.ts
}

// Outer returns the unit u was inlined into, or nil.
func (u *Unit) Outer() *Unit {
	return u.outer
}

func (u *Unit) IsInlinee() bool {
	return u.outer != nil
}

// Depth is the inlining depth; 0 for a root unit.
func (u *Unit) Depth() int {
	return u.depth
}

// Failed reports whether a fatal error aborted this compilation.
func (u *Unit) Failed() bool {
	return u.root.failed
}

// Run executes one step of the compilation. A fatal engine error raised by
// fn is returned and fails the whole compilation; any other panic
// propagates. A failed or closed unit runs nothing.
func (u *Unit) Run(fn func(*Unit) error) (err error) {
	if u.root.closed {
		return errors.NotInitialized(errors.PhaseCompile, "closed unit")
	}
	if u.root.failed {
		return errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Detail("unit already failed").
			Build()
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fatal, ok := errors.IsFatal(r)
		if !ok {
			panic(r)
		}
		u.root.failed = true
		Logger().Debug("compilation aborted",
			zap.Int("depth", u.depth),
			zap.String("phase", string(fatal.Phase)),
			zap.String("kind", string(fatal.Kind)),
			zap.Error(fatal))
		err = fatal
	}()

	return fn(u)
}

// Close releases the arena. Everything the unit allocated, every layout
// included, is invalid afterwards. Closing an inlinee does nothing; closing
// twice is harmless.
func (u *Unit) Close() {
	if u.IsInlinee() || u.closed {
		return
	}
	u.closed = true

	Logger().Debug("unit closed",
		zap.Int("layouts", u.table.Len()),
		zap.Uint64("bytes_allocated", uint64(u.arena.TotalBytesAllocated())),
		zap.Uint64("bytes_used", uint64(u.arena.TotalBytesUsed())),
		zap.Bool("failed", u.failed))

	u.arena.Destroy()
}
