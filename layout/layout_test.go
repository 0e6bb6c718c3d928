package layout

import (
	"testing"

	jitlayout "github.com/wippyai/jit-layout"
	jlerrors "github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/types"
)

func TestObjLayoutShape(t *testing.T) {
	table, _ := newTestTable(t)

	tests := []struct {
		name     string
		handle   jitlayout.ClassHandle
		size     uint32
		slots    uint32
		gcPtrs   uint32
		typ      types.Scalar
		register types.Scalar
	}{
		{"plain struct", hPoint, 8, 1, 0, types.Struct, types.Long},
		{"struct with ref", hPair, 16, 2, 1, types.Struct, types.Undef},
		{"smaller than a pointer", hTiny, 4, 1, 0, types.Struct, types.Int},
		{"wrapper", hWrapper, 8, 1, 0, types.Double, types.Long},
		{"many slots", hBig, 80, 10, 2, types.Struct, types.Undef},
		{"span", hSpan, 16, 2, 1, types.Struct, types.Undef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := table.ObjLayout(tt.handle)
			if l.IsCustomLayout() {
				t.Fatal("class layout reported as custom")
			}
			if l.ClassHandle() != tt.handle {
				t.Errorf("ClassHandle() = %d, want %d", l.ClassHandle(), tt.handle)
			}
			if !l.IsValueClass() {
				t.Error("IsValueClass() = false")
			}
			if l.Size() != tt.size {
				t.Errorf("Size() = %d, want %d", l.Size(), tt.size)
			}
			if l.SlotCount() != tt.slots {
				t.Errorf("SlotCount() = %d, want %d", l.SlotCount(), tt.slots)
			}
			if l.GCPtrCount() != tt.gcPtrs {
				t.Errorf("GCPtrCount() = %d, want %d", l.GCPtrCount(), tt.gcPtrs)
			}
			if l.HasGCPtr() != (tt.gcPtrs > 0) {
				t.Errorf("HasGCPtr() = %v", l.HasGCPtr())
			}
			if l.Type() != tt.typ {
				t.Errorf("Type() = %s, want %s", l.Type(), tt.typ)
			}
			if l.RegisterType() != tt.register {
				t.Errorf("RegisterType() = %s, want %s", l.RegisterType(), tt.register)
			}
		})
	}
}

func TestGCSlots(t *testing.T) {
	table, _ := newTestTable(t)

	big := table.ObjLayout(hBig)
	if big.gc.isInline() {
		t.Error("10 slots stored inline")
	}
	if !big.IsGCRef(1) || big.IsGCByRef(1) {
		t.Error("slot 1 should be a ref")
	}
	if !big.IsGCByRef(9) || big.IsGCRef(9) {
		t.Error("slot 9 should be a byref")
	}
	if big.IsGCPtr(0) {
		t.Error("slot 0 should not be tracked")
	}
	if got := big.GCPtrType(0); got != types.Long {
		t.Errorf("GCPtrType(0) = %s, want long", got)
	}
	if got := big.GCPtrType(9); got != types.ByRef {
		t.Errorf("GCPtrType(9) = %s, want byref", got)
	}

	pair := table.ObjLayout(hPair)
	if !pair.gc.isInline() {
		t.Error("2 slots stored out of line")
	}

	tiny := table.ObjLayout(hTiny)
	if tiny.IsGCPtr(0) {
		t.Error("sub-pointer class kept its GC slot")
	}

	expectFatal(t, jlerrors.KindOutOfBounds, func() { pair.IsGCPtr(2) })
}

func TestRegisterTypeBySize(t *testing.T) {
	tests := []struct {
		size uint32
		simd bool
		want types.Scalar
	}{
		{1, true, types.UByte},
		{2, true, types.UShort},
		{3, true, types.Undef},
		{4, true, types.Int},
		{8, true, types.Long},
		{12, true, types.Undef},
		{16, true, types.Simd16},
		{16, false, types.Undef},
		{32, true, types.Undef},
	}

	for _, tt := range tests {
		table, _ := newTestTable(t)
		table.target.SIMD = tt.simd
		if got := table.BlockLayout(tt.size).RegisterType(); got != tt.want {
			t.Errorf("block<%d> simd=%v: RegisterType() = %s, want %s", tt.size, tt.simd, got, tt.want)
		}
	}
}

func TestSingleRefRegisterType(t *testing.T) {
	table, _ := newTestTable(t)

	b := NewBuilder(table, 8)
	b.SetGCPtrType(0, types.Ref)
	l := table.CustomLayout(b)

	if l.SlotCount() != 1 {
		t.Errorf("SlotCount() = %d, want 1", l.SlotCount())
	}
	if !l.HasGCPtr() {
		t.Error("HasGCPtr() = false")
	}
	if l.RegisterType() != types.Ref {
		t.Errorf("RegisterType() = %s, want ref", l.RegisterType())
	}
	if l.Type() != types.Blk {
		t.Errorf("Type() = %s, want blk", l.Type())
	}
}

func TestIntersectsGCPtr(t *testing.T) {
	table, _ := newTestTable(t)
	pair := table.ObjLayout(hPair)

	tests := []struct {
		offset, size uint32
		want         bool
	}{
		{0, 8, true},
		{0, 1, true},
		{7, 1, true},
		{4, 8, true},
		{8, 8, false},
		{12, 4, false},
	}
	for _, tt := range tests {
		if got := pair.IntersectsGCPtr(tt.offset, tt.size); got != tt.want {
			t.Errorf("IntersectsGCPtr(%d, %d) = %v, want %v", tt.offset, tt.size, got, tt.want)
		}
	}

	if table.ObjLayout(hPoint).IntersectsGCPtr(0, 8) {
		t.Error("Point has no GC pointers")
	}

	expectFatal(t, jlerrors.KindOutOfBounds, func() { pair.IntersectsGCPtr(8, 16) })
	expectFatal(t, jlerrors.KindOutOfBounds, func() { pair.IntersectsGCPtr(0, 0) })
}

func TestNonPadding(t *testing.T) {
	t.Run("custom layout covers everything", func(t *testing.T) {
		table, _ := newTestTable(t)
		checkSegments(t, table.BlockLayout(16).NonPadding(table), Segment{Start: 0, End: 16})
	})

	t.Run("zero sized block is empty", func(t *testing.T) {
		table, _ := newTestTable(t)
		if !table.BlockLayout(0).NonPadding(table).IsEmpty() {
			t.Error("zero sized block has significant bytes")
		}
	})

	t.Run("primitive fields", func(t *testing.T) {
		table, _ := newTestTable(t)
		checkSegments(t, table.ObjLayout(hPair).NonPadding(table), Segment{Start: 0, End: 12})
	})

	t.Run("nested structs are all or nothing", func(t *testing.T) {
		table, _ := newTestTable(t)
		checkSegments(t, table.ObjLayout(hNested).NonPadding(table),
			Segment{Start: 0, End: 1}, Segment{Start: 4, End: 12}, Segment{Start: 16, End: 40})
	})

	t.Run("type system overflow", func(t *testing.T) {
		table, _ := newTestTable(t)
		checkSegments(t, table.ObjLayout(hOverflow).NonPadding(table), Segment{Start: 0, End: 24})
	})

	t.Run("node budget exceeded", func(t *testing.T) {
		table, _ := newTestTable(t)
		table.target.MaxFieldNodes = 3
		checkSegments(t, table.ObjLayout(hNested).NonPadding(table), Segment{Start: 0, End: 48})
	})

	t.Run("cached", func(t *testing.T) {
		table, _ := newTestTable(t)
		l := table.ObjLayout(hPoint)
		if l.NonPadding(table) != l.NonPadding(table) {
			t.Error("non-padding recomputed")
		}
	})

	t.Run("foreign table is fatal", func(t *testing.T) {
		table, _ := newTestTable(t)
		other, _ := newTestTable(t)
		for _, l := range []*ClassLayout{table.ObjLayout(hPoint), table.BlockLayout(16), table.ZeroSizedBlock()} {
			expectFatal(t, jlerrors.KindInvalidInput, func() { l.NonPadding(other) })
		}
	})
}

func TestIsStackOnly(t *testing.T) {
	table, ts := newTestTable(t)

	if !table.ObjLayout(hSpan).IsStackOnly(ts) {
		t.Error("Span should be stack only")
	}
	if table.ObjLayout(hPair).IsStackOnly(ts) {
		t.Error("Pair is not stack only")
	}
	if table.BlockLayout(16).IsStackOnly(ts) {
		t.Error("custom layouts are never stack only")
	}
}

func TestAreCompatible(t *testing.T) {
	table, _ := newTestTable(t)

	padded := NewBuilder(table, 8)
	padded.AddPadding(Segment{Start: 4, End: 8})

	refBlock := NewBuilder(table, 16)
	refBlock.SetGCPtrType(0, types.Ref)

	point := table.ObjLayout(hPoint)
	block8 := table.BlockLayout(8)

	tests := []struct {
		name string
		a, b *ClassLayout
		want bool
	}{
		{"both nil", nil, nil, false},
		{"one nil", point, nil, false},
		{"same class", point, table.ObjLayout(hPoint), true},
		{"same block", block8, table.BlockLayout(8), true},
		{"class and block of same shape", point, block8, false},
		{"block and class of same shape", block8, point, false},
		{"padded block shares shape", block8, table.CustomLayout(padded), true},
		{"distinct blocks", table.BlockLayout(16), table.CustomLayout(refBlock), false},
		{"same shape classes", point, table.ObjLayout(hWrapper), true},
		{"different size", point, table.ObjLayout(hTiny), false},
		{"ref versus byref", table.ObjLayout(hPair), table.ObjLayout(hSpan), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AreCompatible(tt.a, tt.b); got != tt.want {
				t.Errorf("AreCompatible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayoutString(t *testing.T) {
	table, _ := newTestTable(t)

	if got, want := table.ObjLayout(hPair).String(), "Pair size=16 slots=2 gc=[ref none]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := table.BlockLayout(12).String(), "block<12> size=12 slots=2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestEmptyClassIsFatal(t *testing.T) {
	table, _ := newTestTable(t)
	expectFatal(t, jlerrors.KindInvalidData, func() { table.ObjLayout(hEmpty) })
}
