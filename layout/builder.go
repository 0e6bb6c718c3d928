package layout

import (
	"fmt"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/arena"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/internal/abi"
	"github.com/wippyai/jit-layout/segment"
	"github.com/wippyai/jit-layout/types"
)

// Builder accumulates the shape of a custom layout before it is frozen by
// Table.CustomLayout. Its size is fixed at construction.
type Builder struct {
	table      *Table
	gcPtrs     []byte
	nonPadding *SegmentList
	name       string
	shortName  string
	size       uint32
	gcPtrCount uint32
	array      bool
}

// NewBuilder starts a layout of size bytes. Storage comes from t's arena.
func NewBuilder(t *Table, size uint32) *Builder {
	return &Builder{table: t, size: size}
}

func (b *Builder) Size() uint32 {
	return b.size
}

func (b *Builder) GCPtrCount() uint32 {
	return b.gcPtrCount
}

func (b *Builder) slotCount() uint32 {
	return b.table.target.slotCount(b.size)
}

// SetGCPtrType tags slot with the GC kind of typ. Ref and ByRef are tracked;
// any other scalar clears the slot.
func (b *Builder) SetGCPtrType(slot uint32, typ types.Scalar) {
	b.setGCPtr(slot, types.GCKindOf(typ))
}

func (b *Builder) setGCPtr(slot uint32, kind types.GCKind) {
	errors.Assert(uint64(slot)*uint64(b.table.target.PointerSize) < uint64(b.size), func() *errors.Error {
		return errors.OutOfBounds(errors.PhaseBuild, []string{b.displayName()}, int(slot), int(b.slotCount()))
	})

	if b.gcPtrs == nil {
		if kind == types.GCNone {
			return
		}
		b.gcPtrs = arena.Make[byte](b.table.arena, int(b.slotCount()))
		clear(b.gcPtrs)
	}

	prev := types.GCKind(b.gcPtrs[slot])
	switch {
	case prev == types.GCNone && kind != types.GCNone:
		b.gcPtrCount++
	case prev != types.GCNone && kind == types.GCNone:
		b.gcPtrCount--
	}
	b.gcPtrs[slot] = byte(kind)
}

// CopyInfoFrom copies the GC map of src into the builder at offset. When
// copyPadding is set, src's padding is copied too.
func (b *Builder) CopyInfoFrom(offset uint32, src *ClassLayout, copyPadding bool) {
	errors.Assert(uint64(offset)+uint64(src.Size()) <= uint64(b.size), func() *errors.Error {
		return errors.New(errors.PhaseBuild, errors.KindOutOfBounds).
			Path(b.displayName(), src.Name()).
			Detail("%d bytes at offset %d exceed size %d", src.Size(), offset, b.size).
			Build()
	})

	if src.HasGCPtr() {
		ptr := b.table.target.PointerSize
		errors.Assert(offset%ptr == 0, func() *errors.Error {
			return errors.Misaligned(errors.PhaseBuild, []string{b.displayName(), src.Name()}, offset, ptr)
		})

		startSlot := offset / ptr
		for slot := range src.SlotCount() {
			b.setGCPtr(startSlot+slot, src.GCKind(slot))
		}
	}

	if copyPadding {
		b.AddPadding(Segment{Start: offset, End: offset + src.Size()})
		for seg := range src.NonPadding(b.table).All() {
			b.RemovePadding(Segment{Start: offset + seg.Start, End: offset + seg.End})
		}
	}
}

// AddPadding marks seg as padding. Until the first call the whole builder
// counts as non-padding.
func (b *Builder) AddPadding(seg Segment) {
	b.checkPadding(seg)
	if b.nonPadding == nil {
		b.nonPadding = segment.NewList(b.table.segmentAllocator())
		if b.size > 0 {
			b.nonPadding.Add(Segment{Start: 0, End: b.size})
		}
	}
	b.nonPadding.Subtract(seg)
}

// RemovePadding marks seg as significant.
func (b *Builder) RemovePadding(seg Segment) {
	b.checkPadding(seg)
	if b.nonPadding == nil {
		return
	}
	b.nonPadding.Add(seg)
}

func (b *Builder) checkPadding(seg Segment) {
	errors.Assert(seg.End <= b.size, func() *errors.Error {
		return errors.New(errors.PhaseBuild, errors.KindOutOfBounds).
			Path(b.displayName()).
			Detail("padding [%d, %d) outside %d bytes", seg.Start, seg.End, b.size).
			Build()
	})
}

func (b *Builder) SetName(name, shortName string) {
	b.name = name
	b.shortName = shortName
}

func (b *Builder) displayName() string {
	if b.name != "" {
		return b.name
	}
	return fmt.Sprintf("block<%d>", b.size)
}

// BuildArray builds the layout of an array object of class arrayHandle with
// length elements: the array header followed by the elements, rounded up to
// a whole slot.
func BuildArray(t *Table, arrayHandle jitlayout.ClassHandle, length uint32) *Builder {
	errors.Assert(length <= t.target.MaxArrayLength, func() *errors.Error {
		return errors.New(errors.PhaseBuild, errors.KindInvalidInput).
			Path(t.ts.ClassName(arrayHandle)).
			Value(length).
			Detail("array length %d exceeds maximum %d", length, t.target.MaxArrayLength).
			Build()
	})

	elemType, elemHandle := t.ts.ChildType(arrayHandle)

	var elem *ClassLayout
	var elemSize uint32
	if elemType == types.Struct {
		elem = t.ObjLayout(elemHandle)
		elemSize = elem.Size()
	} else {
		elemSize = elemType.SizeFor(t.target.PointerSize)
	}

	total, ok := abi.SafeMulU32(elemSize, length)
	if ok {
		total, ok = abi.AlignToChecked(total, t.target.PointerSize)
	}
	if ok {
		total, ok = abi.SafeAddU32(total, t.target.ArrayHeaderSize)
	}
	if !ok {
		errors.Fatal(errors.Overflow(errors.PhaseBuild, "array size", uint64(elemSize)*uint64(length)))
	}

	b := NewBuilder(t, total)

	header := t.target.ArrayHeaderSize
	switch {
	case elem != nil && elem.HasGCPtr():
		for i := range length {
			b.CopyInfoFrom(header+i*elemSize, elem, false)
		}
	case elemType.IsGC():
		for i := range length {
			b.SetGCPtrType((header+i*elemSize)/t.target.PointerSize, elemType)
		}
	}

	elemName := elemType.String()
	if elem != nil {
		elemName = elem.ShortName()
	}
	b.array = true
	b.SetName(fmt.Sprintf("%s[%d]", t.ts.ClassName(arrayHandle), length),
		fmt.Sprintf("%s[%d]", elemName, length))
	return b
}
