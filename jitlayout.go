package jitlayout

import "github.com/wippyai/jit-layout/types"

// ClassHandle identifies a class in the type system. It is opaque to the
// layout engine; NoClass marks custom (block) layouts.
type ClassHandle uint64

const NoClass ClassHandle = 0

// TypeLayoutResult reports the outcome of a field-layout dump.
type TypeLayoutResult uint8

const (
	TypeLayoutSuccess TypeLayoutResult = iota
	TypeLayoutOverflow
	TypeLayoutFailure
)

// FieldNode is one entry of a field-layout dump. The first node describes
// the class itself; nested value-class fields are followed by their own
// fields.
type FieldNode struct {
	Offset uint32
	Size   uint32
	// Type is the scalar kind of the field, or types.Struct for a nested
	// value class.
	Type types.Scalar
	// SIMD marks a value class the code generator treats as a vector.
	SIMD bool
	// SignificantPadding marks a value class whose padding must be preserved
	// (explicit layouts, unions).
	SignificantPadding bool
}

// TypeSystem is the metadata provider the layout engine consumes.
type TypeSystem interface {
	IsValueType(h ClassHandle) bool
	// StackSize is the size of an unboxed value of h.
	StackSize(h ClassHandle) uint32
	// HeapSize is the size of an instance of h on the heap.
	HeapSize(h ClassHandle) uint32
	// NormalizedScalar reports the primitive a single-field wrapper behaves as.
	NormalizedScalar(h ClassHandle) (types.Scalar, bool)
	// GCLayout fills out with one types.GCKind byte per pointer-sized slot and
	// returns the number of GC-tracked slots.
	GCLayout(h ClassHandle, out []byte) uint32
	// TypeLayout writes up to len(nodes) field nodes and returns how many were
	// written.
	TypeLayout(h ClassHandle, nodes []FieldNode) (int, TypeLayoutResult)
	IsByRefLike(h ClassHandle) bool
	// ChildType returns the element type of an array class. For struct
	// elements the element class handle is returned as well.
	ChildType(h ClassHandle) (types.Scalar, ClassHandle)
	ClassName(h ClassHandle) string
}

// SlabHost supplies backing memory to an arena. Slabs are returned in bulk
// when the arena is destroyed.
type SlabHost interface {
	// AllocateSlab returns at least size bytes, 8-byte aligned.
	AllocateSlab(size uintptr) ([]byte, error)
	FreeSlab(slab []byte)
}
