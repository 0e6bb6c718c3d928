package main

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/wippyai/jit-layout/compiler"
	"github.com/wippyai/jit-layout/layout"
	"github.com/wippyai/jit-layout/types"
)

// session owns the compilation unit whose table the tool displays. A request
// that aborts the unit discards it; the requests that succeeded so far are
// replayed into a fresh one.
type session struct {
	src    *source
	unit   *compiler.Unit
	logger *zap.Logger
	done   []request
	cfg    compiler.Config
}

func newSession(src *source, cfg compiler.Config, logger *zap.Logger) *session {
	cfg.Target = src.target
	return &session{
		src:    src,
		cfg:    cfg,
		unit:   compiler.NewUnit(src.ts, cfg),
		logger: logger,
	}
}

func (s *session) apply(r request) (*layout.ClassLayout, error) {
	var l *layout.ClassLayout
	err := s.unit.Run(func(u *compiler.Unit) error {
		var err error
		l, err = r.resolve(u, s.src.ts)
		return err
	})
	if err != nil {
		if s.unit.Failed() {
			s.restart()
		}
		return nil, fmt.Errorf("%s: %w", r, err)
	}
	s.done = append(s.done, r)
	return l, nil
}

func (s *session) restart() {
	s.logger.Debug("unit aborted, replaying requests", zap.Int("requests", len(s.done)))
	s.unit.Close()
	s.unit = compiler.NewUnit(s.src.ts, s.cfg)
	for _, r := range s.done {
		if err := s.unit.Run(func(u *compiler.Unit) error {
			_, err := r.resolve(u, s.src.ts)
			return err
		}); err != nil {
			s.logger.Warn("replay failed", zap.Stringer("request", r), zap.Error(err))
		}
	}
}

func (s *session) close() {
	s.unit.Close()
}

// entries describes every layout in the table. Describing computes
// non-padding ranges, so it runs inside the unit like any other request.
func (s *session) entries() ([]entry, error) {
	var out []entry
	err := s.unit.Run(func(u *compiler.Unit) error {
		t := u.Layouts()
		out = make([]entry, 0, t.Len())
		for n, l := range t.All() {
			out = append(out, describe(s, n, l))
		}
		return nil
	})
	if err != nil && s.unit.Failed() {
		s.restart()
	}
	return out, err
}

func (s *session) stats() string {
	a := s.unit.Arena()
	return fmt.Sprintf("%d layouts, %d pages, %s allocated, %s used",
		s.unit.Layouts().Len(),
		a.PageCount(),
		units.BytesSize(float64(a.TotalBytesAllocated())),
		units.BytesSize(float64(a.TotalBytesUsed())))
}

// entry is the printable view of one table layout.
type entry struct {
	layout     *layout.ClassLayout
	gc         []compiler.GCSlot
	nonPadding string
	kind       string
	copyPlan   compiler.BlockCopyPlan
	num        uint32
	stackOnly  bool
}

func describe(s *session, n uint32, l *layout.ClassLayout) entry {
	e := entry{layout: l, num: n}
	t := s.unit.Layouts()

	switch {
	case l.IsArrayLayout():
		e.kind = "array"
	case l.IsBlockLayout():
		e.kind = "block"
	default:
		e.kind = s.src.ts.Kind(l.ClassHandle())
		e.stackOnly = l.IsStackOnly(s.src.ts)
	}

	if l.Size() == 0 {
		e.nonPadding = "{}"
		return e
	}
	e.nonPadding = l.NonPadding(t).String()
	e.gc = compiler.GCInfo(l)
	e.copyPlan = compiler.PlanBlockCopy(t, l, 0, l.Size())
	return e
}

func (e entry) summary() string {
	return fmt.Sprintf("#%-3d %-24s %6d bytes  %s", e.num, e.layout.Name(), e.layout.Size(), e.kind)
}

func (e entry) details() []string {
	l := e.layout
	lines := []string{
		fmt.Sprintf("name:        %s (%s)", l.Name(), l.ShortName()),
		fmt.Sprintf("kind:        %s", e.kind),
		fmt.Sprintf("size:        %d bytes, %d slots", l.Size(), l.SlotCount()),
		fmt.Sprintf("register:    %s", l.RegisterType()),
		fmt.Sprintf("gc map:      %s", gcMap(l)),
		fmt.Sprintf("non-padding: %s", e.nonPadding),
	}
	if len(e.gc) > 0 {
		slots := make([]string, len(e.gc))
		for i, g := range e.gc {
			slots[i] = fmt.Sprintf("%d:%s", g.Offset, g.Kind)
		}
		lines = append(lines, "gc slots:    "+strings.Join(slots, " "))
	}
	if len(e.copyPlan.Ranges) > 0 {
		lines = append(lines, fmt.Sprintf("copy:        %s (%d bytes, %d skipped)",
			e.copyPlan, e.copyPlan.Bytes, e.copyPlan.Skipped))
	}
	if e.stackOnly {
		lines = append(lines, "stack-only")
	}
	return lines
}

func gcMap(l *layout.ClassLayout) string {
	if l.SlotCount() == 0 {
		return "-"
	}
	var sb strings.Builder
	for i := range l.SlotCount() {
		switch l.GCKind(i) {
		case types.GCRef:
			sb.WriteByte('R')
		case types.GCByRef:
			sb.WriteByte('B')
		default:
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
