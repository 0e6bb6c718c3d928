package calc

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/jit-layout/internal/abi"
)

// Info is the memory shape of a WIT type.
type Info struct {
	// Offsets holds member offsets of records and tuples in declaration
	// order.
	Offsets []uint32
	Size    uint32
	Align   uint32
	// PayloadOffset is where the payload of a variant, option, or result
	// starts.
	PayloadOffset uint32
}

type Calculator struct {
	cache map[*wit.TypeDef]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[*wit.TypeDef]Info),
	}
}

func (c *Calculator) Calculate(t wit.Type) Info {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	case wit.String:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	case *wit.TypeDef:
		return c.calculateTypeDef(typ)
	default:
		return Info{Size: 0, Align: 1}
	}
}

func (c *Calculator) calculateTypeDef(t *wit.TypeDef) Info {
	if cached, ok := c.cache[t]; ok {
		return cached
	}

	var info Info

	switch kind := t.Kind.(type) {
	case *wit.Record:
		types := make([]wit.Type, len(kind.Fields))
		for i, f := range kind.Fields {
			types[i] = f.Type
		}
		info = c.sequence(types)
	case *wit.Tuple:
		info = c.sequence(kind.Types)
	case *wit.Variant:
		info = c.calculateVariant(kind)
	case *wit.Enum:
		size := abi.DiscriminantSize(len(kind.Cases))
		info = Info{Size: size, Align: size}
	case *wit.List:
		info = Info{Size: 8, Align: 4}
	case *wit.Own, *wit.Borrow:
		info = Info{Size: 4, Align: 4}
	case *wit.Option:
		info = c.union(1, c.Calculate(kind.Type))
	case *wit.Result:
		info = c.calculateResult(kind)
	case *wit.Flags:
		info = calculateFlags(len(kind.Flags))
	case wit.Type:
		info = c.Calculate(kind)
	default:
		info = Info{Size: 0, Align: 1}
	}

	c.cache[t] = info
	return info
}

// sequence lays out members one after another.
func (c *Calculator) sequence(members []wit.Type) Info {
	if len(members) == 0 {
		return Info{Size: 0, Align: 1}
	}

	offsets := make([]uint32, len(members))
	maxAlign := uint32(1)
	offset := uint32(0)

	for i, typ := range members {
		member := c.Calculate(typ)

		offset = abi.AlignTo(offset, member.Align)
		offsets[i] = offset

		if member.Align > maxAlign {
			maxAlign = member.Align
		}

		offset += member.Size
	}

	return Info{
		Size:    abi.AlignTo(offset, maxAlign),
		Align:   maxAlign,
		Offsets: offsets,
	}
}

func (c *Calculator) calculateVariant(v *wit.Variant) Info {
	if len(v.Cases) == 0 {
		return Info{Size: 0, Align: 1}
	}

	payloads := make([]Info, 0, len(v.Cases))
	for _, cs := range v.Cases {
		if cs.Type != nil {
			payloads = append(payloads, c.Calculate(cs.Type))
		}
	}
	return c.union(abi.DiscriminantSize(len(v.Cases)), payloads...)
}

func (c *Calculator) calculateResult(r *wit.Result) Info {
	var payloads []Info
	if r.OK != nil {
		payloads = append(payloads, c.Calculate(r.OK))
	}
	if r.Err != nil {
		payloads = append(payloads, c.Calculate(r.Err))
	}
	return c.union(1, payloads...)
}

// union places a discriminant of discSize bytes before the largest payload.
func (c *Calculator) union(discSize uint32, payloads ...Info) Info {
	maxAlign := discSize
	maxSize := uint32(0)

	for _, p := range payloads {
		if p.Align > maxAlign {
			maxAlign = p.Align
		}
		if p.Size > maxSize {
			maxSize = p.Size
		}
	}

	payloadOffset := abi.AlignTo(discSize, maxAlign)
	return Info{
		Size:          abi.AlignTo(payloadOffset+maxSize, maxAlign),
		Align:         maxAlign,
		PayloadOffset: payloadOffset,
	}
}

func calculateFlags(numFlags int) Info {
	switch {
	case numFlags == 0:
		return Info{Size: 0, Align: 1}
	case numFlags <= 8:
		return Info{Size: 1, Align: 1}
	case numFlags <= 16:
		return Info{Size: 2, Align: 2}
	}

	// one u32 per 32 flags
	numU32s := (numFlags + 31) / 32
	return Info{Size: uint32(numU32s * 4), Align: 4}
}
