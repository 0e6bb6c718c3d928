package layout

import (
	"testing"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/arena"
	jlerrors "github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/types"
)

type fakeClass struct {
	name       string
	size       uint32
	value      bool
	byRefLike  bool
	normalized types.Scalar
	gc         []types.GCKind
	nodes      []jitlayout.FieldNode
	result     jitlayout.TypeLayoutResult
	elem       types.Scalar
	elemClass  jitlayout.ClassHandle
}

type fakeTypeSystem struct {
	classes map[jitlayout.ClassHandle]*fakeClass
	gcCalls int
}

func newFakeTypeSystem(classes map[jitlayout.ClassHandle]*fakeClass) *fakeTypeSystem {
	return &fakeTypeSystem{classes: classes}
}

func (f *fakeTypeSystem) class(h jitlayout.ClassHandle) *fakeClass {
	c, ok := f.classes[h]
	if !ok {
		panic("unknown class handle")
	}
	return c
}

func (f *fakeTypeSystem) IsValueType(h jitlayout.ClassHandle) bool { return f.class(h).value }
func (f *fakeTypeSystem) StackSize(h jitlayout.ClassHandle) uint32 { return f.class(h).size }
func (f *fakeTypeSystem) HeapSize(h jitlayout.ClassHandle) uint32  { return f.class(h).size }
func (f *fakeTypeSystem) IsByRefLike(h jitlayout.ClassHandle) bool { return f.class(h).byRefLike }
func (f *fakeTypeSystem) ClassName(h jitlayout.ClassHandle) string { return f.class(h).name }

func (f *fakeTypeSystem) NormalizedScalar(h jitlayout.ClassHandle) (types.Scalar, bool) {
	s := f.class(h).normalized
	return s, s != types.Undef
}

func (f *fakeTypeSystem) GCLayout(h jitlayout.ClassHandle, out []byte) uint32 {
	f.gcCalls++
	var n uint32
	for i, k := range f.class(h).gc {
		out[i] = byte(k)
		if k != types.GCNone {
			n++
		}
	}
	return n
}

func (f *fakeTypeSystem) TypeLayout(h jitlayout.ClassHandle, nodes []jitlayout.FieldNode) (int, jitlayout.TypeLayoutResult) {
	c := f.class(h)
	if c.result != jitlayout.TypeLayoutSuccess {
		return 0, c.result
	}
	if len(c.nodes) > len(nodes) {
		return copy(nodes, c.nodes), jitlayout.TypeLayoutOverflow
	}
	return copy(nodes, c.nodes), jitlayout.TypeLayoutSuccess
}

func (f *fakeTypeSystem) ChildType(h jitlayout.ClassHandle) (types.Scalar, jitlayout.ClassHandle) {
	c := f.class(h)
	return c.elem, c.elemClass
}

// Class handles used across the layout tests.
const (
	hPoint jitlayout.ClassHandle = iota + 1
	hPair
	hTiny
	hInts
	hRefs
	hPairs
	hPoints
	hBig
	hSpan
	hNested
	hOverflow
	hWrapper
	hIntArray
	hEmpty
)

func testClasses() map[jitlayout.ClassHandle]*fakeClass {
	return map[jitlayout.ClassHandle]*fakeClass{
		// struct Point { int X; int Y; }
		hPoint: {
			name: "Point", size: 8, value: true,
			gc: []types.GCKind{types.GCNone},
			nodes: []jitlayout.FieldNode{
				{Offset: 0, Size: 8, Type: types.Struct},
				{Offset: 0, Size: 4, Type: types.Int},
				{Offset: 4, Size: 4, Type: types.Int},
			},
		},
		// struct Pair { object Key; int Value; }
		hPair: {
			name: "Pair", size: 16, value: true,
			gc: []types.GCKind{types.GCRef, types.GCNone},
			nodes: []jitlayout.FieldNode{
				{Offset: 0, Size: 16, Type: types.Struct},
				{Offset: 0, Size: 8, Type: types.Ref},
				{Offset: 8, Size: 4, Type: types.Int},
			},
		},
		// Claims a pointer it cannot hold.
		hTiny: {
			name: "Tiny", size: 4, value: true,
			gc: []types.GCKind{types.GCRef},
		},
		hInts:   {name: "int[]", size: 16, elem: types.Int},
		hRefs:   {name: "object[]", size: 16, elem: types.Ref},
		hPairs:  {name: "Pair[]", size: 16, elem: types.Struct, elemClass: hPair},
		hPoints: {name: "Point[]", size: 16, elem: types.Struct, elemClass: hPoint},
		hBig: {
			name: "Big", size: 80, value: true,
			gc: []types.GCKind{
				types.GCNone, types.GCRef, types.GCNone, types.GCNone, types.GCNone,
				types.GCNone, types.GCNone, types.GCNone, types.GCNone, types.GCByRef,
			},
		},
		// ref struct Span { byref Ptr; int Len; }
		hSpan: {
			name: "Span", size: 16, value: true, byRefLike: true,
			gc: []types.GCKind{types.GCByRef, types.GCNone},
			nodes: []jitlayout.FieldNode{
				{Offset: 0, Size: 16, Type: types.Struct},
				{Offset: 0, Size: 8, Type: types.ByRef},
				{Offset: 8, Size: 4, Type: types.Int},
			},
		},
		// struct Nested { byte Tag; Point P; Vector4 V; Union U; }
		hNested: {
			name: "Nested", size: 48, value: true,
			gc: make([]types.GCKind, 6),
			nodes: []jitlayout.FieldNode{
				{Offset: 0, Size: 48, Type: types.Struct},
				{Offset: 0, Size: 1, Type: types.Byte},
				{Offset: 4, Size: 8, Type: types.Struct},
				{Offset: 4, Size: 4, Type: types.Int},
				{Offset: 8, Size: 4, Type: types.Int},
				{Offset: 16, Size: 16, Type: types.Struct, SIMD: true},
				{Offset: 32, Size: 8, Type: types.Struct, SignificantPadding: true},
			},
		},
		hOverflow: {
			name: "Overflow", size: 24, value: true,
			gc:     make([]types.GCKind, 3),
			result: jitlayout.TypeLayoutOverflow,
		},
		hWrapper: {
			name: "Wrapper", size: 8, value: true, normalized: types.Double,
			gc: []types.GCKind{types.GCNone},
		},
		hIntArray: {name: "Int32[]", size: 16, elem: types.Int},
		hEmpty:    {name: "Empty", value: true},
	}
}

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	a := arena.New(nil, arena.DefaultOptions())
	t.Cleanup(a.Destroy)
	return a
}

func newTestTable(t *testing.T) (*Table, *fakeTypeSystem) {
	t.Helper()
	ts := newFakeTypeSystem(testClasses())
	return NewTable(newTestArena(t), ts, Target64()), ts
}

func expectFatal(t *testing.T, kind jlerrors.Kind, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		e, ok := jlerrors.IsFatal(recover())
		if !ok {
			t.Fatalf("expected fatal %s error", kind)
		}
		if e.Kind != kind {
			t.Fatalf("kind = %s, want %s", e.Kind, kind)
		}
	}()
	fn()
}

func checkSegments(t *testing.T, l *SegmentList, want ...Segment) {
	t.Helper()
	got := l.Segments()
	if len(got) != len(want) {
		t.Fatalf("segments = %v, want %v", l, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("segments = %v, want %v", l, want)
		}
	}
}
