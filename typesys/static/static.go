package static

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v2"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/internal/abi"
	"github.com/wippyai/jit-layout/types"
)

// DefaultPointerSize is used when a document does not set pointerSize.
const DefaultPointerSize = 8

type resolveState uint8

const (
	unresolved resolveState = iota
	resolving
	resolved
)

type field struct {
	nested *class
	name   string
	offset uint32
	size   uint32
	align  uint32
	scalar types.Scalar
}

type class struct {
	doc                *classDoc
	elemClass          *class
	name               string
	fields             []field
	gc                 []types.GCKind
	handle             jitlayout.ClassHandle
	size               uint32
	align              uint32
	gcCount            uint32
	kind               classKind
	elem               types.Scalar
	normalized         types.Scalar
	state              resolveState
	byRefLike          bool
	simd               bool
	significantPadding bool
}

// TypeSystem serves layouts for the classes of one document. It is immutable
// after Load and safe for concurrent use.
type TypeSystem struct {
	byName      map[string]*class
	classes     []*class
	pointerSize uint32
}

var _ jitlayout.TypeSystem = (*TypeSystem)(nil)

// Load parses a YAML class description.
func Load(data []byte) (*TypeSystem, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, errors.ParseFailed("type description", err)
	}
	return build(&doc)
}

// LoadFile reads and parses a YAML class description.
func LoadFile(path string) (*TypeSystem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	return Load(data)
}

func build(doc *document) (*TypeSystem, error) {
	ptr := doc.PointerSize
	if ptr == 0 {
		ptr = DefaultPointerSize
	}
	if ptr != 4 && ptr != 8 {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Value(ptr).
			Detail("pointer size %d", ptr).
			Build()
	}

	ts := &TypeSystem{
		byName:      make(map[string]*class, len(doc.Classes)),
		classes:     make([]*class, 0, len(doc.Classes)),
		pointerSize: ptr,
	}

	for i := range doc.Classes {
		cd := &doc.Classes[i]
		if cd.Name == "" {
			return nil, errors.InvalidData(errors.PhaseLoad, []string{"classes", strconv.Itoa(i)}, "class without a name")
		}
		if _, dup := ts.byName[cd.Name]; dup {
			return nil, errors.InvalidData(errors.PhaseLoad, []string{cd.Name}, "duplicate class")
		}
		kind, ok := parseKind(cd.Kind)
		if !ok {
			return nil, errors.InvalidData(errors.PhaseLoad, []string{cd.Name}, "unknown kind "+strconv.Quote(cd.Kind))
		}

		c := &class{
			doc:    cd,
			name:   cd.Name,
			kind:   kind,
			handle: jitlayout.ClassHandle(i + 1),
		}
		ts.classes = append(ts.classes, c)
		ts.byName[c.name] = c
	}

	for _, c := range ts.classes {
		if err := ts.resolve(c); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

func (ts *TypeSystem) resolve(c *class) error {
	switch c.state {
	case resolved:
		return nil
	case resolving:
		return errors.InvalidData(errors.PhaseLoad, []string{c.name}, "struct contains itself")
	}

	c.state = resolving
	var err error
	if c.kind == kindArray {
		err = ts.resolveArray(c)
	} else {
		err = ts.resolveFields(c)
	}
	if err != nil {
		return err
	}
	c.state = resolved
	return nil
}

// fieldType resolves a field or element type name. Structs are resolved
// first so their size is known; classes and arrays are references.
func (ts *TypeSystem) fieldType(path []string, name string) (types.Scalar, *class, error) {
	if s, ok := types.Parse(name); ok && (s.IsPrimitive() || s.IsSIMD()) {
		return s, nil, nil
	}

	target, ok := ts.byName[name]
	if !ok {
		return types.Undef, nil, errors.New(errors.PhaseLoad, errors.KindNotFound).
			Path(path...).
			Detail("unknown type %q", name).
			Build()
	}
	if target.kind != kindStruct {
		return types.Ref, nil, nil
	}
	if err := ts.resolve(target); err != nil {
		return types.Undef, nil, err
	}
	return types.Struct, target, nil
}

func (ts *TypeSystem) resolveArray(c *class) error {
	if c.doc.Element == "" {
		return errors.InvalidData(errors.PhaseLoad, []string{c.name}, "array without an element type")
	}

	elem, elemClass, err := ts.fieldType([]string{c.name, "element"}, c.doc.Element)
	if err != nil {
		return err
	}
	if elem == types.ByRef || (elemClass != nil && elemClass.byRefLike) {
		return errors.InvalidData(errors.PhaseLoad, []string{c.name}, "array of stack-only elements")
	}

	c.elem = elem
	c.elemClass = elemClass
	c.size = 2 * ts.pointerSize
	c.align = ts.pointerSize
	c.gc = make([]types.GCKind, 2)
	return nil
}

func (ts *TypeSystem) resolveFields(c *class) error {
	ptr := ts.pointerSize

	var base uint32
	if c.kind == kindClass {
		// Object header.
		base = ptr
	}

	cursor := base
	align := uint32(1)
	byRef := false

	for _, fd := range c.doc.Fields {
		path := []string{c.name, fd.Name}
		s, nested, err := ts.fieldType(path, fd.Type)
		if err != nil {
			return err
		}

		f := field{name: fd.Name, scalar: s, nested: nested}
		switch {
		case s == types.Struct:
			f.size, f.align = nested.size, nested.align
			byRef = byRef || nested.byRefLike
		case s.IsGC():
			f.size, f.align = ptr, ptr
			byRef = byRef || s == types.ByRef
		default:
			f.size = s.Size()
			f.align = scalarAlign(s, ptr)
		}

		if fd.Offset != nil {
			f.offset = base + *fd.Offset
		} else {
			f.offset = abi.AlignTo(cursor, f.align)
		}

		end, ok := abi.SafeAddU32(f.offset, f.size)
		if !ok {
			return errors.Overflow(errors.PhaseLoad, c.name+"."+fd.Name+" end", uint64(f.offset)+uint64(f.size))
		}
		cursor = max(cursor, end)
		align = max(align, f.align)
		c.fields = append(c.fields, f)
	}

	var size uint32
	if c.kind == kindStruct {
		size = abi.AlignTo(cursor, align)
		if size == 0 {
			size = 1
		}
	} else {
		if byRef {
			return errors.InvalidData(errors.PhaseLoad, []string{c.name}, "stack-only field in a heap class")
		}
		size = abi.AlignTo(cursor, ptr)
		align = ptr
	}

	if c.doc.Size != 0 {
		if c.doc.Size < size {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Path(c.name).
				Value(c.doc.Size).
				Detail("declared size %d smaller than fields (%d)", c.doc.Size, size).
				Build()
		}
		size = c.doc.Size
	}

	c.size = size
	c.align = align
	c.byRefLike = c.kind == kindStruct && (c.doc.ByRefLike || byRef)
	c.simd = c.doc.SIMD
	c.significantPadding = c.doc.Explicit

	if c.doc.Normalize {
		if c.kind != kindStruct || len(c.fields) != 1 || !c.fields[0].scalar.IsPrimitive() || c.fields[0].scalar.IsGC() {
			return errors.InvalidData(errors.PhaseLoad, []string{c.name}, "normalize needs a struct with a single primitive field")
		}
		c.normalized = c.fields[0].scalar
	}

	c.gc = make([]types.GCKind, (size+ptr-1)/ptr)
	if err := ts.markGC(c, c.gc, c, 0); err != nil {
		return err
	}
	for _, k := range c.gc {
		if k != types.GCNone {
			c.gcCount++
		}
	}
	return nil
}

func (ts *TypeSystem) markGC(owner *class, gc []types.GCKind, c *class, base uint32) error {
	ptr := ts.pointerSize
	for _, f := range c.fields {
		off := base + f.offset
		switch {
		case f.scalar.IsGC():
			if off%ptr != 0 {
				return errors.Misaligned(errors.PhaseLoad, []string{owner.name, f.name}, off, ptr)
			}
			kind := types.GCKindOf(f.scalar)
			slot := off / ptr
			if gc[slot] != types.GCNone && gc[slot] != kind {
				return errors.InvalidData(errors.PhaseLoad, []string{owner.name, f.name}, "overlapping ref and byref")
			}
			gc[slot] = kind
		case f.scalar == types.Struct && f.nested.gcCount > 0:
			if off%ptr != 0 {
				return errors.Misaligned(errors.PhaseLoad, []string{owner.name, f.name}, off, ptr)
			}
			if err := ts.markGC(owner, gc, f.nested, off); err != nil {
				return err
			}
		}
	}
	return nil
}

// scalarAlign is the natural alignment of s: its largest power-of-two
// divisor, capped at the pointer size (16 for vectors).
func scalarAlign(s types.Scalar, ptr uint32) uint32 {
	size := s.Size()
	if size == 0 {
		return 1
	}
	limit := ptr
	if s.IsSIMD() {
		limit = 16
	}
	return min(size&-size, limit)
}
