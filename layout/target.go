package layout

// MaxArrayLength is the largest array length a layout can describe.
const MaxArrayLength = 0x7FFFFFC7

// DefaultMaxFieldNodes bounds the field-layout dump requested from the type
// system when computing non-padding ranges.
const DefaultMaxFieldNodes = 256

// Target describes the machine layouts are computed for.
type Target struct {
	// PointerSize is the slot granularity for GC tracking (4 or 8).
	PointerSize uint32

	// ArrayHeaderSize is the offset of element 0 in an array object.
	ArrayHeaderSize uint32

	// MaxArrayLength bounds ArrayLayout requests. 0 means MaxArrayLength.
	MaxArrayLength uint32

	// MaxFieldNodes bounds field-layout dumps. 0 means DefaultMaxFieldNodes.
	MaxFieldNodes int

	// SIMD enables the 16-byte vector register type.
	SIMD bool
}

// Target64 returns a 64-bit target.
func Target64() Target {
	return Target{
		PointerSize:     8,
		ArrayHeaderSize: 16,
		MaxArrayLength:  MaxArrayLength,
		MaxFieldNodes:   DefaultMaxFieldNodes,
		SIMD:            true,
	}
}

// Target32 returns a 32-bit target.
func Target32() Target {
	return Target{
		PointerSize:     4,
		ArrayHeaderSize: 8,
		MaxArrayLength:  MaxArrayLength,
		MaxFieldNodes:   DefaultMaxFieldNodes,
		SIMD:            true,
	}
}

func (t Target) normalized() Target {
	if t.PointerSize == 0 {
		t.PointerSize = 8
	}
	if t.ArrayHeaderSize == 0 {
		t.ArrayHeaderSize = 2 * t.PointerSize
	}
	if t.MaxArrayLength == 0 {
		t.MaxArrayLength = MaxArrayLength
	}
	if t.MaxFieldNodes == 0 {
		t.MaxFieldNodes = DefaultMaxFieldNodes
	}
	return t
}

// slotCount returns ceil(size / PointerSize).
func (t Target) slotCount(size uint32) uint32 {
	return (size + t.PointerSize - 1) / t.PointerSize
}
