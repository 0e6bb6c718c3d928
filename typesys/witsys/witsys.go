package witsys

import (
	"io"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/internal/abi"
	"github.com/wippyai/jit-layout/layout"
	"github.com/wippyai/jit-layout/types"
	"github.com/wippyai/jit-layout/typesys/witsys/internal/calc"
)

// PointerSize is the Canonical ABI pointer width.
const PointerSize = 4

// Target returns the layout target for WIT types.
func Target() layout.Target {
	t := layout.Target32()
	t.SIMD = false
	return t
}

type classKind uint8

const (
	kindValue classKind = iota
	kindList
	kindResource
)

func (k classKind) String() string {
	switch k {
	case kindValue:
		return "value"
	case kindList:
		return "list"
	case kindResource:
		return "resource"
	default:
		return "unknown"
	}
}

// pairKey registers the (pointer, length) value of a list used as a list
// element.
type pairKey struct{}

type class struct {
	typ        wit.Type
	name       string
	gc         []types.GCKind
	nodes      []jitlayout.FieldNode
	elemHandle jitlayout.ClassHandle
	size       uint32
	gcCount    uint32
	kind       classKind
	elem       types.Scalar
	normalized types.Scalar
	byRefLike  bool
}

// TypeSystem serves layouts for a set of WIT type definitions.
type TypeSystem struct {
	handles map[any]jitlayout.ClassHandle
	byName  map[string]jitlayout.ClassHandle
	classes []*class
}

var _ jitlayout.TypeSystem = (*TypeSystem)(nil)

// LoadJSON decodes a WIT resolve in wasm-tools JSON form.
func LoadJSON(r io.Reader) (*TypeSystem, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.ParseFailed("WIT JSON", err)
	}
	return FromResolve(res), nil
}

// FromResolve builds a type system from every type definition in res.
func FromResolve(res *wit.Resolve) *TypeSystem {
	return New(res.TypeDefs...)
}

// New builds a type system from defs and every type they reference.
// Definitions using types without a memory layout (futures, streams) are
// skipped.
func New(defs ...*wit.TypeDef) *TypeSystem {
	ts := &TypeSystem{
		handles: make(map[any]jitlayout.ClassHandle),
		byName:  make(map[string]jitlayout.ClassHandle),
	}

	skipped := 0
	for _, d := range defs {
		if _, ok := ts.register(d); !ok {
			skipped++
			Logger().Debug("skipping type without a memory layout", zap.String("type", typeName(d)))
		}
	}

	c := calc.NewCalculator()
	for _, cl := range ts.classes {
		ts.shape(cl, c)
	}

	Logger().Debug("WIT type system built",
		zap.Int("classes", len(ts.classes)),
		zap.Int("skipped", skipped))
	return ts
}

// register assigns handles to t and the types it contains. Primitives other
// than string have no class.
func (ts *TypeSystem) register(t wit.Type) (jitlayout.ClassHandle, bool) {
	if h, ok := ts.handles[t]; ok {
		return h, true
	}
	if !supported(t) {
		return jitlayout.NoClass, false
	}

	switch t.(type) {
	case *wit.TypeDef, wit.String:
	default:
		return jitlayout.NoClass, true
	}

	h := ts.add(&class{typ: t, name: typeName(t)}, t)
	if d, ok := t.(*wit.TypeDef); ok && d.Name != nil {
		if _, dup := ts.byName[*d.Name]; !dup {
			ts.byName[*d.Name] = h
		}
	}

	for _, m := range members(t) {
		ts.register(m)
	}
	return h, true
}

func (ts *TypeSystem) add(c *class, key any) jitlayout.ClassHandle {
	ts.classes = append(ts.classes, c)
	h := jitlayout.ClassHandle(len(ts.classes))
	ts.handles[key] = h
	return h
}

// pairHandle returns the class of a bare (pointer, length) value.
func (ts *TypeSystem) pairHandle(c *calc.Calculator) jitlayout.ClassHandle {
	if h, ok := ts.handles[pairKey{}]; ok {
		return h
	}
	pair := &class{typ: wit.String{}, name: "list-pair"}
	h := ts.add(pair, pairKey{})
	ts.shape(pair, c)
	return h
}

func (ts *TypeSystem) shape(cl *class, c *calc.Calculator) {
	if cl.gc != nil {
		return
	}

	under := underlying(cl.typ)
	if d, ok := under.(*wit.TypeDef); ok {
		switch k := d.Kind.(type) {
		case *wit.List:
			cl.kind = kindList
			cl.size = 2 * PointerSize
			cl.gc = make([]types.GCKind, 2)
			cl.elem, cl.elemHandle = ts.element(k.Type, c)
			return
		case *wit.Resource:
			cl.kind = kindResource
			cl.size = PointerSize
			cl.gc = make([]types.GCKind, 1)
			return
		}
	}

	info := c.Calculate(cl.typ)
	// Empty records still occupy a byte.
	cl.size = max(info.Size, 1)
	cl.gc = make([]types.GCKind, (cl.size+PointerSize-1)/PointerSize)

	s := shaper{calc: c, gc: cl.gc}
	if isAggregate(under) {
		s.value(cl.typ, 0)
	} else {
		s.aggregate(0, cl.size, false)
		s.value(cl.typ, 0)
		cl.normalized = normalizedScalar(under, info.Size)
	}

	cl.nodes = s.nodes
	cl.byRefLike = s.byRef
	for _, k := range cl.gc {
		if k != types.GCNone {
			cl.gcCount++
		}
	}
}

// element resolves a list element to a scalar or a value class.
func (ts *TypeSystem) element(t wit.Type, c *calc.Calculator) (types.Scalar, jitlayout.ClassHandle) {
	if s, ok := primitiveScalar(t); ok {
		return s, jitlayout.NoClass
	}

	if d, ok := underlying(t).(*wit.TypeDef); ok {
		switch d.Kind.(type) {
		case *wit.List:
			return types.Struct, ts.pairHandle(c)
		case *wit.Resource:
			return types.Ref, jitlayout.NoClass
		}
	}

	h := ts.handles[t]
	ts.shape(ts.classes[h-1], c)
	return types.Struct, h
}

// Lookup returns the handle of the named type definition.
func (ts *TypeSystem) Lookup(name string) (jitlayout.ClassHandle, bool) {
	h, ok := ts.byName[name]
	return h, ok
}

// MustLookup is Lookup for names known to exist. A missing type is fatal.
func (ts *TypeSystem) MustLookup(name string) jitlayout.ClassHandle {
	h, ok := ts.byName[name]
	if !ok {
		errors.Fatal(errors.NotFound(errors.PhaseTypeSys, "WIT type", name))
	}
	return h
}

// Handle returns the class of a registered type.
func (ts *TypeSystem) Handle(t wit.Type) (jitlayout.ClassHandle, bool) {
	h, ok := ts.handles[t]
	return h, ok
}

// Names returns the names of all classes in registration order.
func (ts *TypeSystem) Names() []string {
	names := make([]string, len(ts.classes))
	for i, c := range ts.classes {
		names[i] = c.name
	}
	return names
}

func (ts *TypeSystem) IsArray(h jitlayout.ClassHandle) bool {
	return ts.class(h).kind == kindList
}

// Kind returns "value", "list", or "resource".
func (ts *TypeSystem) Kind(h jitlayout.ClassHandle) string {
	return ts.class(h).kind.String()
}

func (ts *TypeSystem) class(h jitlayout.ClassHandle) *class {
	if h == jitlayout.NoClass || int(h) > len(ts.classes) {
		errors.Fatal(errors.New(errors.PhaseTypeSys, errors.KindNotFound).
			Value(h).
			Detail("no WIT class with handle %d", h).
			Build())
	}
	return ts.classes[h-1]
}

func (ts *TypeSystem) IsValueType(h jitlayout.ClassHandle) bool {
	return ts.class(h).kind == kindValue
}

func (ts *TypeSystem) StackSize(h jitlayout.ClassHandle) uint32 {
	c := ts.class(h)
	if c.kind == kindList {
		return 2 * PointerSize
	}
	return c.size
}

func (ts *TypeSystem) HeapSize(h jitlayout.ClassHandle) uint32 {
	c := ts.class(h)
	if c.kind == kindValue {
		return abi.AlignTo(PointerSize+c.size, PointerSize)
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

func (ts *TypeSystem) TypeLayout(h jitlayout.ClassHandle, nodes []jitlayout.FieldNode) (int, jitlayout.TypeLayoutResult) {
	c := ts.class(h)
	if c.kind != kindValue {
		return 0, jitlayout.TypeLayoutFailure
	}
	n := copy(nodes, c.nodes)
	if n < len(c.nodes) {
		return n, jitlayout.TypeLayoutOverflow
	}
	return n, jitlayout.TypeLayoutSuccess
}

func (ts *TypeSystem) IsByRefLike(h jitlayout.ClassHandle) bool {
	return ts.class(h).byRefLike
}

// ChildType returns the element of a list class. Calling it on any other
// class is fatal.
func (ts *TypeSystem) ChildType(h jitlayout.ClassHandle) (types.Scalar, jitlayout.ClassHandle) {
	c := ts.class(h)
	if c.kind != kindList {
		errors.Fatal(errors.New(errors.PhaseTypeSys, errors.KindInvalidInput).
			Path(c.name).
			Detail("%s is not a list", c.kind).
			Build())
	}
	return c.elem, c.elemHandle
}

func (ts *TypeSystem) ClassName(h jitlayout.ClassHandle) string {
	return ts.class(h).name
}
