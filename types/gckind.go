package types

// GCKind tags one pointer-sized slot of a layout. The numeric values are the
// bytes stored in GC-pointer maps.
type GCKind uint8

const (
	GCNone GCKind = iota
	GCRef
	GCByRef
)

func (k GCKind) String() string {
	switch k {
	case GCNone:
		return "none"
	case GCRef:
		return "ref"
	case GCByRef:
		return "byref"
	default:
		return "unknown"
	}
}

// GCKindOf maps a scalar to the tag it occupies in a slot.
func GCKindOf(s Scalar) GCKind {
	switch s {
	case Ref:
		return GCRef
	case ByRef:
		return GCByRef
	default:
		return GCNone
	}
}

// Scalar maps the tag back to a pointer-flavored scalar.
func (k GCKind) Scalar(pointerSize uint32) Scalar {
	switch k {
	case GCRef:
		return Ref
	case GCByRef:
		return ByRef
	default:
		return NativeInt(pointerSize)
	}
}
