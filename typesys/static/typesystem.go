package static

import (
	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/internal/abi"
	"github.com/wippyai/jit-layout/types"
)

func (ts *TypeSystem) class(h jitlayout.ClassHandle) *class {
	if h == jitlayout.NoClass || int(h) > len(ts.classes) {
		errors.Fatal(errors.New(errors.PhaseTypeSys, errors.KindNotFound).
			Value(h).
			Detail("no class with handle %d", h).
			Build())
	}
	return ts.classes[h-1]
}

// Lookup returns the handle of the class called name.
func (ts *TypeSystem) Lookup(name string) (jitlayout.ClassHandle, bool) {
	c, ok := ts.byName[name]
	if !ok {
		return jitlayout.NoClass, false
	}
	return c.handle, true
}

// MustLookup is Lookup for names known to exist. A missing class is fatal.
func (ts *TypeSystem) MustLookup(name string) jitlayout.ClassHandle {
	h, ok := ts.Lookup(name)
	if !ok {
		errors.Fatal(errors.NotFound(errors.PhaseTypeSys, "class", name))
	}
	return h
}

// Names returns class names in declaration order.
func (ts *TypeSystem) Names() []string {
	names := make([]string, len(ts.classes))
	for i, c := range ts.classes {
		names[i] = c.name
	}
	return names
}

func (ts *TypeSystem) PointerSize() uint32 {
	return ts.pointerSize
}

func (ts *TypeSystem) IsArray(h jitlayout.ClassHandle) bool {
	return ts.class(h).kind == kindArray
}

// Kind returns "struct", "class", or "array".
func (ts *TypeSystem) Kind(h jitlayout.ClassHandle) string {
	return ts.class(h).kind.String()
}

func (ts *TypeSystem) IsValueType(h jitlayout.ClassHandle) bool {
	return ts.class(h).kind == kindStruct
}

func (ts *TypeSystem) StackSize(h jitlayout.ClassHandle) uint32 {
	c := ts.class(h)
	if c.kind != kindStruct {
		return ts.pointerSize
	}
	return c.size
}

// HeapSize is the instance size of classes, the base size of arrays, and the
// boxed size of structs.
func (ts *TypeSystem) HeapSize(h jitlayout.ClassHandle) uint32 {
	c := ts.class(h)
	if c.kind == kindStruct {
		return abi.AlignTo(ts.pointerSize+c.size, ts.pointerSize)
	}
	return c.size
}

func (ts *TypeSystem) NormalizedScalar(h jitlayout.ClassHandle) (types.Scalar, bool) {
	c := ts.class(h)
	return c.normalized, c.normalized != types.Undef
}

func (ts *TypeSystem) GCLayout(h jitlayout.ClassHandle, out []byte) uint32 {
	c := ts.class(h)
	n := min(len(out), len(c.gc))
	for i := range n {
		out[i] = byte(c.gc[i])
	}
	return c.gcCount
}

// TypeLayout dumps the fields of a struct depth first: the struct itself,
// then each field, with nested structs followed by their own fields.
// Offsets are relative to the outer struct. Only structs have a dump.
func (ts *TypeSystem) TypeLayout(h jitlayout.ClassHandle, nodes []jitlayout.FieldNode) (int, jitlayout.TypeLayoutResult) {
	c := ts.class(h)
	if c.kind != kindStruct {
		return 0, jitlayout.TypeLayoutFailure
	}

	w := nodeWriter{nodes: nodes}
	w.structNode(c, 0, c.size)
	if w.overflow {
		return w.n, jitlayout.TypeLayoutOverflow
	}
	return w.n, jitlayout.TypeLayoutSuccess
}

type nodeWriter struct {
	nodes    []jitlayout.FieldNode
	n        int
	overflow bool
}

func (w *nodeWriter) put(node jitlayout.FieldNode) bool {
	if w.n == len(w.nodes) {
		w.overflow = true
		return false
	}
	w.nodes[w.n] = node
	w.n++
	return true
}

func (w *nodeWriter) structNode(c *class, offset, size uint32) {
	ok := w.put(jitlayout.FieldNode{
		Offset:             offset,
		Size:               size,
		Type:               types.Struct,
		SIMD:               c.simd,
		SignificantPadding: c.significantPadding,
	})
	if !ok {
		return
	}

	for _, f := range c.fields {
		if f.scalar == types.Struct {
			w.structNode(f.nested, offset+f.offset, f.size)
		} else {
			w.put(jitlayout.FieldNode{Offset: offset + f.offset, Size: f.size, Type: f.scalar})
		}
		if w.overflow {
			return
		}
	}
}

func (ts *TypeSystem) IsByRefLike(h jitlayout.ClassHandle) bool {
	return ts.class(h).byRefLike
}

// ChildType returns the element type of an array class. Calling it on any
// other class is fatal.
func (ts *TypeSystem) ChildType(h jitlayout.ClassHandle) (types.Scalar, jitlayout.ClassHandle) {
	c := ts.class(h)
	if c.kind != kindArray {
		errors.Fatal(errors.New(errors.PhaseTypeSys, errors.KindInvalidInput).
			Path(c.name).
			Detail("%s is not an array", c.kind).
			Build())
	}
	if c.elemClass != nil {
		return types.Struct, c.elemClass.handle
	}
	return c.elem, jitlayout.NoClass
}

func (ts *TypeSystem) ClassName(h jitlayout.ClassHandle) string {
	return ts.class(h).name
}
