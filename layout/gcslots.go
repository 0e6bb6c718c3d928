package layout

import (
	"github.com/wippyai/jit-layout/arena"
)

// inlineGCSlots is how many slot kinds fit inline: one machine word of bytes.
const inlineGCSlots = 8

// gcSlots stores one types.GCKind byte per slot, inline when the slot count
// fits and in an arena-allocated array otherwise.
type gcSlots struct {
	heap   []byte
	inline [inlineGCSlots]byte
	n      uint32
}

// init sizes the storage for n slots, all GCNone.
func (g *gcSlots) init(a *arena.Arena, n uint32) []byte {
	g.n = n
	if n <= inlineGCSlots {
		return g.inline[:n:n]
	}
	g.heap = arena.Make[byte](a, int(n))
	clear(g.heap)
	return g.heap
}

func (g *gcSlots) bytes() []byte {
	if g.heap != nil {
		return g.heap
	}
	return g.inline[:g.n:g.n]
}

func (g *gcSlots) isInline() bool {
	return g.heap == nil
}
