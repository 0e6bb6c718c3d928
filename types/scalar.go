package types

type Scalar uint8

const (
	Undef Scalar = iota
	Void
	Bool
	Byte
	UByte
	Short
	UShort
	Int
	UInt
	Long
	ULong
	Float
	Double
	Ref
	ByRef
	Struct
	Blk
	Simd8
	Simd12
	Simd16
	Simd32
	Simd64
	Unknown

	// Count is the size of the scalar range. Layout numbers start above it.
	Count
)

var scalarNames = [...]string{
	Undef:   "undef",
	Void:    "void",
	Bool:    "bool",
	Byte:    "byte",
	UByte:   "ubyte",
	Short:   "short",
	UShort:  "ushort",
	Int:     "int",
	UInt:    "uint",
	Long:    "long",
	ULong:   "ulong",
	Float:   "float",
	Double:  "double",
	Ref:     "ref",
	ByRef:   "byref",
	Struct:  "struct",
	Blk:     "blk",
	Simd8:   "simd8",
	Simd12:  "simd12",
	Simd16:  "simd16",
	Simd32:  "simd32",
	Simd64:  "simd64",
	Unknown: "unknown",
}

var scalarSizes = [...]uint32{
	Bool:   1,
	Byte:   1,
	UByte:  1,
	Short:  2,
	UShort: 2,
	Int:    4,
	UInt:   4,
	Long:   8,
	ULong:  8,
	Float:  4,
	Double: 8,
	Simd8:  8,
	Simd12: 12,
	Simd16: 16,
	Simd32: 32,
	Simd64: 64,
}

func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return "unknown"
}

// Size returns the size in bytes of s. Pointer-sized scalars (Ref, ByRef)
// depend on the target and report 0; use SizeFor.
func (s Scalar) Size() uint32 {
	if int(s) < len(scalarSizes) {
		return scalarSizes[s]
	}
	return 0
}

// SizeFor is Size with Ref and ByRef resolved against pointerSize.
func (s Scalar) SizeFor(pointerSize uint32) uint32 {
	if s.IsGC() {
		return pointerSize
	}
	return s.Size()
}

func (s Scalar) IsGC() bool {
	return s == Ref || s == ByRef
}

func (s Scalar) IsSIMD() bool {
	return s >= Simd8 && s <= Simd64
}

func (s Scalar) IsPrimitive() bool {
	return s >= Bool && s <= ByRef
}

// NativeInt returns the pointer-sized integer type for a target.
func NativeInt(pointerSize uint32) Scalar {
	if pointerSize == 4 {
		return Int
	}
	return Long
}

// Parse maps a scalar name back to its value.
func Parse(name string) (Scalar, bool) {
	for i, n := range scalarNames {
		if n == name {
			return Scalar(i), true
		}
	}
	return Undef, false
}
