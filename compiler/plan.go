package compiler

import (
	"fmt"
	"strings"

	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/layout"
	"github.com/wippyai/jit-layout/types"
)

// CopyRange is a contiguous run of significant bytes. GC is set when the run
// holds GC-tracked slots and must be copied with write barriers.
type CopyRange struct {
	Offset uint32
	Size   uint32
	GC     bool
}

// BlockCopyPlan is a block copy split into the ranges that need copying.
type BlockCopyPlan struct {
	Ranges  []CopyRange
	Bytes   uint32 // significant bytes copied
	Skipped uint32 // padding bytes left alone
}

// PlanBlockCopy decomposes a copy of [offset, offset+size) within l into
// significant ranges. Adjacent ranges merge when they agree on GC; a range
// touching a GC slot is split at slot boundaries.
func PlanBlockCopy(t *layout.Table, l *layout.ClassLayout, offset, size uint32) BlockCopyPlan {
	end := offset + size
	errors.Assert(size != 0 && end > offset && end <= l.Size(), func() *errors.Error {
		return errors.OutOfBounds(errors.PhaseCompile, []string{l.Name()}, int(offset)+int(size), int(l.Size()))
	})

	var plan BlockCopyPlan
	ptr := l.PointerSize()
	for seg := range l.NonPadding(t).All() {
		start, stop := max(seg.Start, offset), min(seg.End, end)
		if start >= stop {
			continue
		}
		if !l.IntersectsGCPtr(start, stop-start) {
			plan.add(start, stop-start, false)
			continue
		}
		for cur := start; cur < stop; {
			slot := cur / ptr
			next := min((slot+1)*ptr, stop)
			plan.add(cur, next-cur, l.IsGCPtr(slot))
			cur = next
		}
	}
	plan.Skipped = size - plan.Bytes
	return plan
}

func (p *BlockCopyPlan) add(offset, size uint32, gc bool) {
	p.Bytes += size
	if n := len(p.Ranges); n > 0 {
		last := &p.Ranges[n-1]
		if last.GC == gc && last.Offset+last.Size == offset {
			last.Size += size
			return
		}
	}
	p.Ranges = append(p.Ranges, CopyRange{Offset: offset, Size: size, GC: gc})
}

// GCRanges returns the number of ranges needing write barriers.
func (p BlockCopyPlan) GCRanges() int {
	n := 0
	for _, r := range p.Ranges {
		if r.GC {
			n++
		}
	}
	return n
}

func (p BlockCopyPlan) String() string {
	var sb strings.Builder
	for i, r := range p.Ranges {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "[%d,%d)", r.Offset, r.Offset+r.Size)
		if r.GC {
			sb.WriteString("gc")
		}
	}
	return sb.String()
}

// GCSlot is a tracked slot as the collector sees it.
type GCSlot struct {
	Offset uint32
	Kind   types.GCKind
}

// GCInfo lists l's tracked slots in offset order.
func GCInfo(l *layout.ClassLayout) []GCSlot {
	if !l.HasGCPtr() {
		return nil
	}
	slots := make([]GCSlot, 0, l.GCPtrCount())
	ptr := l.PointerSize()
	for i := range l.SlotCount() {
		if kind := l.GCKind(i); kind != types.GCNone {
			slots = append(slots, GCSlot{Offset: i * ptr, Kind: kind})
		}
	}
	return slots
}
