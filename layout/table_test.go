package layout

import (
	"testing"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/arena"
	jlerrors "github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/types"
)

func TestZeroSizedBlock(t *testing.T) {
	table, _ := newTestTable(t)

	z := table.BlockLayout(0)
	if z != table.ZeroSizedBlock() {
		t.Fatal("BlockLayout(0) is not the shared zero-sized block")
	}
	if z != table.CustomLayout(NewBuilder(table, 0)) {
		t.Error("empty builder not mapped to the zero-sized block")
	}
	if n := table.LayoutNum(z); n != ZeroSizedBlockLayoutNum {
		t.Errorf("LayoutNum() = %d, want %d", n, ZeroSizedBlockLayoutNum)
	}
	if table.LayoutByNum(ZeroSizedBlockLayoutNum) != z {
		t.Error("LayoutByNum(zero) mismatch")
	}
	if table.Len() != 0 {
		t.Errorf("Len() = %d, want 0", table.Len())
	}
	if z.SlotCount() != 0 || z.HasGCPtr() {
		t.Errorf("zero-sized block = %s", z)
	}
}

func TestLayoutNumbersAboveScalars(t *testing.T) {
	if ZeroSizedBlockLayoutNum != uint32(types.Count) {
		t.Errorf("ZeroSizedBlockLayoutNum = %d", ZeroSizedBlockLayoutNum)
	}
	if FirstLayoutNum != ZeroSizedBlockLayoutNum+1 {
		t.Errorf("FirstLayoutNum = %d", FirstLayoutNum)
	}
}

func TestDeduplication(t *testing.T) {
	table, ts := newTestTable(t)

	if table.BlockLayout(16) != table.BlockLayout(16) {
		t.Error("block layouts not deduplicated")
	}
	if table.ObjLayout(hPair) != table.ObjLayout(hPair) {
		t.Error("class layouts not deduplicated")
	}
	if ts.gcCalls != 1 {
		t.Errorf("GCLayout called %d times, want 1", ts.gcCalls)
	}

	b := NewBuilder(table, 16)
	b.SetGCPtrType(0, types.Ref)
	withRef := table.CustomLayout(b)
	if withRef == table.BlockLayout(16) {
		t.Error("GC pattern ignored by the custom key")
	}

	b2 := NewBuilder(table, 16)
	b2.SetGCPtrType(0, types.Ref)
	if table.CustomLayout(b2) != withRef {
		t.Error("equal builders produced distinct layouts")
	}

	// Structurally equal arrays of different classes share a layout.
	if table.ArrayLayout(hInts, 3) != table.ArrayLayout(hIntArray, 3) {
		t.Error("equal array shapes not deduplicated")
	}
	if table.ArrayLayout(hInts, 3) != table.ArrayLayout(hPoints, 2) {
		t.Error("int[3] and Point[2] should share block<32>")
	}

	if table.Len() != 4 {
		t.Errorf("Len() = %d, want 4", table.Len())
	}
}

func TestPromotion(t *testing.T) {
	table, _ := newTestTable(t)

	var layouts []*ClassLayout
	register := func(l *ClassLayout) {
		t.Helper()
		layouts = append(layouts, l)
		if table.Len() != len(layouts) {
			t.Fatalf("Len() = %d, want %d", table.Len(), len(layouts))
		}
		for i, prev := range layouts {
			n := table.LayoutNum(prev)
			if n != FirstLayoutNum+uint32(i) {
				t.Fatalf("LayoutNum(%s) = %d, want %d", prev.Name(), n, FirstLayoutNum+uint32(i))
			}
			if table.LayoutByNum(n) != prev {
				t.Fatalf("LayoutByNum(%d) mismatch", n)
			}
		}
	}

	register(table.BlockLayout(8))
	register(table.ObjLayout(hPoint))
	register(table.BlockLayout(24))
	if table.large != nil {
		t.Fatal("promoted before exceeding the small tier")
	}

	register(table.ObjLayout(hPair))
	if table.large == nil {
		t.Fatal("not promoted on the fourth layout")
	}
	if cap(table.large) != 2*smallCapacity {
		t.Errorf("cap = %d, want %d", cap(table.large), 2*smallCapacity)
	}

	for size := uint32(32); size <= 256; size += 8 {
		register(table.BlockLayout(size))
	}
	register(table.ObjLayout(hSpan))
	register(table.ArrayLayout(hRefs, 7))

	// Lookups after promotion find entries registered before it.
	if table.BlockLayout(8) != layouts[0] || table.ObjLayout(hPoint) != layouts[1] {
		t.Error("small tier entries lost in promotion")
	}
	if table.Len() != len(layouts) {
		t.Errorf("lookups registered new layouts: Len() = %d", table.Len())
	}

	var i int
	for n, l := range table.All() {
		if n != FirstLayoutNum+uint32(i) || l != layouts[i] {
			t.Fatalf("All() entry %d = (%d, %s)", i, n, l.Name())
		}
		i++
	}
	if i != len(layouts) {
		t.Errorf("All() yielded %d layouts, want %d", i, len(layouts))
	}
}

func TestForeignLayoutIsFatal(t *testing.T) {
	for _, n := range []int{1, 8} {
		table, _ := newTestTable(t)
		other, _ := newTestTable(t)

		for size := range uint32(n) {
			table.BlockLayout(8 * (size + 1))
		}
		foreignBlock := other.BlockLayout(8)
		foreignObj := other.ObjLayout(hPair)

		expectFatal(t, jlerrors.KindNotFound, func() { table.LayoutNum(foreignBlock) })
		expectFatal(t, jlerrors.KindNotFound, func() { table.LayoutNum(foreignObj) })
	}
}

func TestLayoutByNumOutOfRange(t *testing.T) {
	table, _ := newTestTable(t)
	table.BlockLayout(8)

	for _, n := range []uint32{0, uint32(types.Int), FirstLayoutNum + 1, 1 << 20} {
		expectFatal(t, jlerrors.KindNotFound, func() { table.LayoutByNum(n) })
	}
}

func TestObjLayoutNoClass(t *testing.T) {
	table, _ := newTestTable(t)
	expectFatal(t, jlerrors.KindInvalidInput, func() { table.ObjLayout(0) })
}

func BenchmarkObjLayoutLookup(b *testing.B) {
	a := arena.New(nil, arena.DefaultOptions())
	defer a.Destroy()

	table := NewTable(a, newFakeTypeSystem(testClasses()), Target64())
	for _, h := range []jitlayout.ClassHandle{hPoint, hPair, hTiny, hBig, hSpan} {
		table.ObjLayout(h)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table.ObjLayout(hSpan)
	}
}

func BenchmarkBlockLayoutLookup(b *testing.B) {
	a := arena.New(nil, arena.DefaultOptions())
	defer a.Destroy()

	table := NewTable(a, newFakeTypeSystem(testClasses()), Target64())
	for size := uint32(8); size <= 128; size += 8 {
		table.BlockLayout(size)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		table.BlockLayout(64)
	}
}
