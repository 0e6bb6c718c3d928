package layout

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/segment"
	"github.com/wippyai/jit-layout/types"
)

// Segment is a byte range within a layout.
type Segment = segment.Segment[uint32]

// SegmentList is a set of byte ranges within a layout.
type SegmentList = segment.List[uint32]

// ClassLayout is an immutable description of a chunk of memory. Layouts with
// a class handle come from the type system; custom layouts (no handle)
// describe blocks and arrays and are identified by size and GC pattern.
type ClassLayout struct {
	table       *Table
	nonPadding  *SegmentList
	name        string
	shortName   string
	classHandle jitlayout.ClassHandle
	size        uint32
	gcPtrCount  uint32
	pointerSize uint32
	gc          gcSlots
	scalar      types.Scalar
	valueClass  bool
	simd        bool
	array       bool
}

// createObj builds the layout of a class from the type system.
func createObj(t *Table, h jitlayout.ClassHandle) *ClassLayout {
	ts := t.ts
	isValue := ts.IsValueType(h)

	var size uint32
	if isValue {
		size = ts.StackSize(h)
	} else {
		size = ts.HeapSize(h)
	}

	name := ts.ClassName(h)
	if size == 0 {
		errors.Fatal(errors.New(errors.PhaseTypeSys, errors.KindInvalidData).
			Path(name).
			Detail("class reports zero size").
			Build())
	}

	scalar, ok := ts.NormalizedScalar(h)
	if !ok {
		scalar = types.Struct
	}

	l := &ClassLayout{
		table:       t,
		classHandle: h,
		valueClass:  isValue,
		size:        size,
		scalar:      scalar,
		pointerSize: t.target.PointerSize,
		simd:        t.target.SIMD,
		name:        name,
		shortName:   name,
	}

	gcPtrs := l.gc.init(t.arena, l.SlotCount())
	if size < t.target.PointerSize {
		// A value smaller than a pointer cannot hold one, whatever the type
		// system says.
		gcPtrs[0] = byte(types.GCNone)
	} else {
		l.gcPtrCount = ts.GCLayout(h, gcPtrs)
	}

	Logger().Debug("class layout created",
		zap.String("class", name),
		zap.Uint32("size", size),
		zap.Uint32("gc_ptrs", l.gcPtrCount),
		zap.Bool("inline_gc", l.gc.isInline()))

	return l
}

// createCustom freezes a builder into a custom layout.
func createCustom(t *Table, b *Builder) *ClassLayout {
	l := &ClassLayout{
		table:       t,
		size:        b.size,
		gcPtrCount:  b.gcPtrCount,
		scalar:      types.Blk,
		pointerSize: t.target.PointerSize,
		simd:        t.target.SIMD,
		name:        b.name,
		shortName:   b.shortName,
		array:       b.array,
	}
	if l.name == "" {
		l.name = fmt.Sprintf("block<%d>", b.size)
		l.shortName = l.name
	}

	if b.nonPadding != nil {
		l.nonPadding = b.nonPadding.Clone(t.segmentAllocator())
	}

	if b.size > 0 {
		gcPtrs := l.gc.init(t.arena, l.SlotCount())
		if b.gcPtrCount > 0 {
			copy(gcPtrs, b.gcPtrs)
		}
	}

	return l
}

// ClassHandle returns the backing class, or jitlayout.NoClass.
func (l *ClassLayout) ClassHandle() jitlayout.ClassHandle {
	return l.classHandle
}

// IsCustomLayout reports whether the layout has no backing class.
func (l *ClassLayout) IsCustomLayout() bool {
	return l.classHandle == jitlayout.NoClass
}

// IsBlockLayout is IsCustomLayout.
func (l *ClassLayout) IsBlockLayout() bool {
	return l.IsCustomLayout()
}

// IsArrayLayout reports whether the layout was frozen from BuildArray.
// A deduplicated array may come back as the block registered first.
func (l *ClassLayout) IsArrayLayout() bool {
	return l.array
}

func (l *ClassLayout) IsValueClass() bool {
	return l.valueClass
}

func (l *ClassLayout) Size() uint32 {
	return l.size
}

// Type returns the normalized scalar for wrapper classes, Struct for other
// classes, and Blk for custom layouts.
func (l *ClassLayout) Type() types.Scalar {
	return l.scalar
}

func (l *ClassLayout) Name() string {
	return l.name
}

func (l *ClassLayout) ShortName() string {
	return l.shortName
}

// PointerSize returns the slot width the layout was computed for.
func (l *ClassLayout) PointerSize() uint32 {
	return l.pointerSize
}

// SlotCount returns the number of pointer-sized slots, rounding up.
func (l *ClassLayout) SlotCount() uint32 {
	return (l.size + l.pointerSize - 1) / l.pointerSize
}

func (l *ClassLayout) GCPtrCount() uint32 {
	return l.gcPtrCount
}

func (l *ClassLayout) HasGCPtr() bool {
	return l.gcPtrCount != 0
}

// GCKind returns the tag of a slot.
func (l *ClassLayout) GCKind(slot uint32) types.GCKind {
	errors.Assert(slot < l.SlotCount(), func() *errors.Error {
		return errors.OutOfBounds(errors.PhaseLayout, []string{l.name}, int(slot), int(l.SlotCount()))
	})
	if l.gcPtrCount == 0 {
		return types.GCNone
	}
	return types.GCKind(l.gc.bytes()[slot])
}

func (l *ClassLayout) IsGCPtr(slot uint32) bool {
	return l.GCKind(slot) != types.GCNone
}

func (l *ClassLayout) IsGCRef(slot uint32) bool {
	return l.GCKind(slot) == types.GCRef
}

func (l *ClassLayout) IsGCByRef(slot uint32) bool {
	return l.GCKind(slot) == types.GCByRef
}

// GCPtrType maps a slot to Ref, ByRef, or the native int type.
func (l *ClassLayout) GCPtrType(slot uint32) types.Scalar {
	return l.GCKind(slot).Scalar(l.pointerSize)
}

// RegisterType returns the scalar a value of this layout can live in, or
// types.Undef when it needs memory.
func (l *ClassLayout) RegisterType() types.Scalar {
	if l.HasGCPtr() {
		if l.SlotCount() == 1 {
			return l.GCPtrType(0)
		}
		return types.Undef
	}

	switch l.size {
	case 1:
		return types.UByte
	case 2:
		return types.UShort
	case 4:
		return types.Int
	case 8:
		return types.Long
	case 16:
		if l.simd {
			return types.Simd16
		}
	}
	return types.Undef
}

// IntersectsGCPtr reports whether any slot overlapping [offset, offset+size)
// holds a GC pointer.
func (l *ClassLayout) IntersectsGCPtr(offset, size uint32) bool {
	errors.Assert(size > 0 && offset+size > offset && offset+size <= l.SlotCount()*l.pointerSize,
		func() *errors.Error {
			return errors.New(errors.PhaseLayout, errors.KindOutOfBounds).
				Path(l.name).
				Detail("range [%d, %d+%d) outside %d slots", offset, offset, size, l.SlotCount()).
				Build()
		})

	if !l.HasGCPtr() {
		return false
	}

	startSlot := offset / l.pointerSize
	endSlot := (offset + size - 1) / l.pointerSize
	for slot := startSlot; slot <= endSlot; slot++ {
		if l.IsGCPtr(slot) {
			return true
		}
	}
	return false
}

// NonPadding returns the byte ranges covered by real fields. It is computed
// on first use from t's type system and cached; callers must not mutate it.
// t must be the table l was created in.
func (l *ClassLayout) NonPadding(t *Table) *SegmentList {
	errors.Assert(t == l.table, func() *errors.Error {
		return errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Path(l.name).
			Detail("non-padding requested through a foreign table").
			Build()
	})
	if l.nonPadding != nil {
		return l.nonPadding
	}

	list := segment.NewList(t.segmentAllocator())
	l.nonPadding = list

	if l.IsCustomLayout() {
		if l.size > 0 {
			list.Add(Segment{Start: 0, End: l.size})
		}
		return list
	}

	nodes := t.fieldNodes()
	n, result := t.ts.TypeLayout(l.classHandle, nodes)
	if result != jitlayout.TypeLayoutSuccess {
		Logger().Debug("field layout unavailable, treating class as fully significant",
			zap.String("class", l.name),
			zap.Uint8("result", uint8(result)))
		list.Add(Segment{Start: 0, End: l.size})
		return list
	}

	for _, node := range nodes[:n] {
		if node.Type != types.Struct || node.SIMD || node.SignificantPadding {
			list.Add(Segment{Start: node.Offset, End: node.Offset + node.Size})
		}
	}
	return list
}

// IsStackOnly reports whether the class is byref-like and may never live on
// the heap. Custom layouts are not.
func (l *ClassLayout) IsStackOnly(ts jitlayout.TypeSystem) bool {
	if l.IsCustomLayout() {
		return false
	}
	return ts.IsByRefLike(l.classHandle)
}

// AreCompatible reports whether values of the two layouts can be copied into
// each other.
func AreCompatible(a, b *ClassLayout) bool {
	if a == nil || b == nil {
		return false
	}

	if a.classHandle != jitlayout.NoClass && a.classHandle == b.classHandle {
		return true
	}

	if a.IsCustomLayout() || b.IsCustomLayout() {
		return a == b
	}

	if a.size != b.size {
		return false
	}
	if a.HasGCPtr() != b.HasGCPtr() {
		return false
	}
	if a.RegisterType() != b.RegisterType() {
		return false
	}

	if a.HasGCPtr() {
		if a.gcPtrCount != b.gcPtrCount {
			return false
		}
		for slot := uint32(0); slot < a.SlotCount(); slot++ {
			if a.GCKind(slot) != b.GCKind(slot) {
				return false
			}
		}
	}
	return true
}

// key returns the deduplication key of a custom layout.
func (l *ClassLayout) key() customKey {
	k := customKey{size: l.size}
	if l.gcPtrCount > 0 {
		k.gcPtrs = string(l.gc.bytes())
	}
	return k
}

func (l *ClassLayout) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s size=%d slots=%d", l.name, l.size, l.SlotCount())
	if l.HasGCPtr() {
		b.WriteString(" gc=[")
		for slot := uint32(0); slot < l.SlotCount(); slot++ {
			if slot > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(l.GCKind(slot).String())
		}
		b.WriteByte(']')
	}
	return b.String()
}
