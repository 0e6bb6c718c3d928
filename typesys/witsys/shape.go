package witsys

import (
	"strings"

	"go.bytecodealliance.org/wit"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/types"
	"github.com/wippyai/jit-layout/typesys/witsys/internal/calc"
)

// shaper walks a value and records its GC slots and field nodes.
type shaper struct {
	calc  *calc.Calculator
	gc    []types.GCKind
	nodes []jitlayout.FieldNode
	byRef bool
}

func (s *shaper) node(offset, size uint32, typ types.Scalar) {
	s.nodes = append(s.nodes, jitlayout.FieldNode{Offset: offset, Size: size, Type: typ})
}

func (s *shaper) aggregate(offset, size uint32, significantPadding bool) {
	s.nodes = append(s.nodes, jitlayout.FieldNode{
		Offset:             offset,
		Size:               size,
		Type:               types.Struct,
		SignificantPadding: significantPadding,
	})
}

// pointerPair is the (pointer, length) of a string or list.
func (s *shaper) pointerPair(offset uint32) {
	s.gc[offset/PointerSize] = types.GCByRef
	s.node(offset, PointerSize, types.ByRef)
	s.node(offset+PointerSize, 4, types.UInt)
}

func (s *shaper) handle(offset uint32, borrow bool) {
	s.gc[offset/PointerSize] = types.GCRef
	s.node(offset, PointerSize, types.Ref)
	s.byRef = s.byRef || borrow
}

func (s *shaper) value(t wit.Type, offset uint32) {
	switch t := t.(type) {
	case wit.String:
		s.pointerPair(offset)
	case *wit.TypeDef:
		s.typeDef(t, offset)
	default:
		if scalar, ok := primitiveScalar(t); ok {
			s.node(offset, scalar.Size(), scalar)
		}
	}
}

func (s *shaper) typeDef(d *wit.TypeDef, offset uint32) {
	info := s.calc.Calculate(d)

	switch k := d.Kind.(type) {
	case *wit.Record:
		s.aggregate(offset, info.Size, false)
		for i, f := range k.Fields {
			s.value(f.Type, offset+info.Offsets[i])
		}
	case *wit.Tuple:
		s.aggregate(offset, info.Size, false)
		for i, typ := range k.Types {
			s.value(typ, offset+info.Offsets[i])
		}
	case *wit.Variant, *wit.Option, *wit.Result:
		// Payloads overlap; the discriminant decides which bytes mean
		// anything, so none of them are tracked.
		s.aggregate(offset, info.Size, true)
		s.byRef = s.byRef || containsBorrow(d)
	case *wit.List:
		s.pointerPair(offset)
	case *wit.Own:
		s.handle(offset, false)
	case *wit.Borrow:
		s.handle(offset, true)
	case *wit.Enum:
		s.node(offset, info.Size, intScalar(info.Size))
	case *wit.Flags:
		if info.Size <= 4 {
			s.node(offset, info.Size, intScalar(info.Size))
			return
		}
		for off := uint32(0); off < info.Size; off += 4 {
			s.node(offset+off, 4, types.UInt)
		}
	case wit.Type:
		s.value(k, offset)
	}
}

// underlying follows type aliases.
func underlying(t wit.Type) wit.Type {
	for {
		d, ok := t.(*wit.TypeDef)
		if !ok {
			return t
		}
		alias, ok := d.Kind.(wit.Type)
		if !ok {
			return d
		}
		t = alias
	}
}

// isAggregate reports whether t emits its own struct node.
func isAggregate(t wit.Type) bool {
	d, ok := t.(*wit.TypeDef)
	if !ok {
		return false
	}
	switch d.Kind.(type) {
	case *wit.Record, *wit.Tuple, *wit.Variant, *wit.Option, *wit.Result:
		return true
	}
	return false
}

func normalizedScalar(t wit.Type, size uint32) types.Scalar {
	if s, ok := primitiveScalar(t); ok {
		return s
	}
	d, ok := t.(*wit.TypeDef)
	if !ok {
		return types.Undef
	}
	switch d.Kind.(type) {
	case *wit.Enum:
		return intScalar(size)
	case *wit.Flags:
		if size <= 4 {
			return intScalar(size)
		}
	case *wit.Own, *wit.Borrow:
		return types.Ref
	}
	return types.Undef
}

func intScalar(size uint32) types.Scalar {
	switch size {
	case 1:
		return types.UByte
	case 2:
		return types.UShort
	case 4:
		return types.UInt
	case 8:
		return types.ULong
	}
	return types.Undef
}

func primitiveScalar(t wit.Type) (types.Scalar, bool) {
	switch t.(type) {
	case wit.Bool:
		return types.Bool, true
	case wit.S8:
		return types.Byte, true
	case wit.U8:
		return types.UByte, true
	case wit.S16:
		return types.Short, true
	case wit.U16:
		return types.UShort, true
	case wit.S32:
		return types.Int, true
	case wit.U32, wit.Char:
		return types.UInt, true
	case wit.S64:
		return types.Long, true
	case wit.U64:
		return types.ULong, true
	case wit.F32:
		return types.Float, true
	case wit.F64:
		return types.Double, true
	}
	return types.Undef, false
}

// members returns the types directly contained in t.
func members(t wit.Type) []wit.Type {
	d, ok := t.(*wit.TypeDef)
	if !ok {
		return nil
	}

	var out []wit.Type
	switch k := d.Kind.(type) {
	case *wit.Record:
		for _, f := range k.Fields {
			out = append(out, f.Type)
		}
	case *wit.Tuple:
		out = append(out, k.Types...)
	case *wit.Variant:
		for _, c := range k.Cases {
			if c.Type != nil {
				out = append(out, c.Type)
			}
		}
	case *wit.Option:
		out = append(out, k.Type)
	case *wit.Result:
		if k.OK != nil {
			out = append(out, k.OK)
		}
		if k.Err != nil {
			out = append(out, k.Err)
		}
	case *wit.List:
		out = append(out, k.Type)
	case *wit.Own:
		if k.Type != nil {
			out = append(out, k.Type)
		}
	case *wit.Borrow:
		if k.Type != nil {
			out = append(out, k.Type)
		}
	case wit.Type:
		out = append(out, k)
	}
	return out
}

// supported reports whether t and everything it contains has a memory
// layout.
func supported(t wit.Type) bool {
	if t == nil {
		return false
	}
	if _, ok := primitiveScalar(t); ok {
		return true
	}

	switch t := t.(type) {
	case wit.String:
		return true
	case *wit.TypeDef:
		switch t.Kind.(type) {
		case *wit.Record, *wit.Tuple, *wit.Variant, *wit.Option, *wit.Result,
			*wit.Enum, *wit.Flags, *wit.List, *wit.Resource, wit.Type:
		case *wit.Own, *wit.Borrow:
			// Handles are indices; the resource itself is not walked.
			return true
		default:
			return false
		}
		for _, m := range members(t) {
			if !supported(m) {
				return false
			}
		}
		return true
	}
	return false
}

func containsBorrow(t wit.Type) bool {
	d, ok := t.(*wit.TypeDef)
	if !ok {
		return false
	}
	switch d.Kind.(type) {
	case *wit.Borrow:
		return true
	case *wit.Own, *wit.List:
		return false
	}
	for _, m := range members(d) {
		if containsBorrow(m) {
			return true
		}
	}
	return false
}

func typeName(t wit.Type) string {
	if t == nil {
		return "_"
	}

	switch t := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S8:
		return "s8"
	case wit.U8:
		return "u8"
	case wit.S16:
		return "s16"
	case wit.U16:
		return "u16"
	case wit.S32:
		return "s32"
	case wit.U32:
		return "u32"
	case wit.S64:
		return "s64"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if t.Name != nil {
			return *t.Name
		}
		return kindName(t)
	}
	return "unknown"
}

func kindName(d *wit.TypeDef) string {
	switch k := d.Kind.(type) {
	case *wit.Record:
		return "record"
	case *wit.Tuple:
		names := make([]string, len(k.Types))
		for i, typ := range k.Types {
			names[i] = typeName(typ)
		}
		return "tuple<" + strings.Join(names, ", ") + ">"
	case *wit.Variant:
		return "variant"
	case *wit.Enum:
		return "enum"
	case *wit.Flags:
		return "flags"
	case *wit.Option:
		return "option<" + typeName(k.Type) + ">"
	case *wit.Result:
		if k.OK == nil && k.Err == nil {
			return "result"
		}
		return "result<" + typeName(k.OK) + ", " + typeName(k.Err) + ">"
	case *wit.List:
		return "list<" + typeName(k.Type) + ">"
	case *wit.Own:
		return "own<" + handleTarget(k.Type) + ">"
	case *wit.Borrow:
		return "borrow<" + handleTarget(k.Type) + ">"
	case *wit.Resource:
		return "resource"
	case wit.Type:
		return typeName(k)
	}
	return "unknown"
}

func handleTarget(d *wit.TypeDef) string {
	if d == nil {
		return "_"
	}
	return typeName(d)
}
