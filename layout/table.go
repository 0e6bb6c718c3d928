package layout

import (
	"iter"

	"go.uber.org/zap"

	jitlayout "github.com/wippyai/jit-layout"
	"github.com/wippyai/jit-layout/arena"
	"github.com/wippyai/jit-layout/errors"
	"github.com/wippyai/jit-layout/segment"
	"github.com/wippyai/jit-layout/types"
)

const (
	// ZeroSizedBlockLayoutNum is the number of the shared empty block layout.
	ZeroSizedBlockLayoutNum = uint32(types.Count)

	// FirstLayoutNum is the number of the first registered layout.
	FirstLayoutNum = ZeroSizedBlockLayoutNum + 1
)

// smallCapacity is how many layouts are kept before the table builds its
// hash indices.
const smallCapacity = 3

// Table deduplicates layouts for one compilation and numbers them densely.
// It is not safe for concurrent use.
type Table struct {
	arena     *arena.Arena
	ts        jitlayout.TypeSystem
	zeroSized *ClassLayout

	small [smallCapacity]*ClassLayout
	large []*ClassLayout
	count int

	customIndex map[customKey]int
	objIndex    map[jitlayout.ClassHandle]int

	nodes  []jitlayout.FieldNode
	target Target
}

// NewTable creates an empty table allocating from a and querying ts.
func NewTable(a *arena.Arena, ts jitlayout.TypeSystem, target Target) *Table {
	target = target.normalized()
	t := &Table{
		arena:  a,
		ts:     ts,
		target: target,
	}
	t.zeroSized = &ClassLayout{
		table:       t,
		scalar:      types.Blk,
		pointerSize: target.PointerSize,
		simd:        target.SIMD,
		name:        "block<0>",
		shortName:   "block<0>",
	}
	return t
}

func (t *Table) Arena() *arena.Arena {
	return t.arena
}

func (t *Table) TypeSystem() jitlayout.TypeSystem {
	return t.ts
}

func (t *Table) Target() Target {
	return t.target
}

// Len returns the number of registered layouts, excluding the zero-sized
// block.
func (t *Table) Len() int {
	return t.count
}

// ZeroSizedBlock returns the shared empty block layout.
func (t *Table) ZeroSizedBlock() *ClassLayout {
	return t.zeroSized
}

// BlockLayout returns the custom layout of size bytes with no GC pointers.
func (t *Table) BlockLayout(size uint32) *ClassLayout {
	if size == 0 {
		return t.zeroSized
	}
	return t.CustomLayout(NewBuilder(t, size))
}

// CustomLayout returns the registered layout matching b, freezing b into a
// new one on a miss.
func (t *Table) CustomLayout(b *Builder) *ClassLayout {
	if b.size == 0 {
		return t.zeroSized
	}

	key := builderKey(b)
	if t.large == nil {
		for _, l := range t.small[:t.count] {
			if l.IsCustomLayout() && l.key() == key {
				return l
			}
		}
	} else if i, ok := t.customIndex[key]; ok {
		return t.large[i]
	}

	l := createCustom(t, b)
	t.add(l)
	return l
}

// ObjLayout returns the layout of class h.
func (t *Table) ObjLayout(h jitlayout.ClassHandle) *ClassLayout {
	errors.Assert(h != jitlayout.NoClass, func() *errors.Error {
		return errors.InvalidInput(errors.PhaseLookup, "object layout requested for NoClass")
	})

	if t.large == nil {
		for _, l := range t.small[:t.count] {
			if l.classHandle == h {
				return l
			}
		}
	} else if i, ok := t.objIndex[h]; ok {
		return t.large[i]
	}

	l := createObj(t, h)
	t.add(l)
	return l
}

// ArrayLayout returns the layout of an array of class h with length elements.
func (t *Table) ArrayLayout(h jitlayout.ClassHandle, length uint32) *ClassLayout {
	return t.CustomLayout(BuildArray(t, h, length))
}

// LayoutNum returns the dense number of l. l must come from this table.
func (t *Table) LayoutNum(l *ClassLayout) uint32 {
	if l == t.zeroSized {
		return ZeroSizedBlockLayoutNum
	}
	return uint32(t.index(l)) + FirstLayoutNum
}

// LayoutByNum returns the layout numbered n.
func (t *Table) LayoutByNum(n uint32) *ClassLayout {
	if n == ZeroSizedBlockLayoutNum {
		return t.zeroSized
	}
	errors.Assert(n >= FirstLayoutNum && int(n-FirstLayoutNum) < t.count, func() *errors.Error {
		return errors.New(errors.PhaseLookup, errors.KindNotFound).
			Value(n).
			Detail("no layout numbered %d", n).
			Build()
	})
	return t.at(int(n - FirstLayoutNum))
}

// All iterates registered layouts with their numbers in registration order.
func (t *Table) All() iter.Seq2[uint32, *ClassLayout] {
	return func(yield func(uint32, *ClassLayout) bool) {
		for i := range t.count {
			if !yield(uint32(i)+FirstLayoutNum, t.at(i)) {
				return
			}
		}
	}
}

func (t *Table) at(i int) *ClassLayout {
	if t.large == nil {
		return t.small[i]
	}
	return t.large[i]
}

func (t *Table) index(l *ClassLayout) int {
	i, ok := -1, false
	if t.large == nil {
		for j, s := range t.small[:t.count] {
			if s == l {
				i, ok = j, true
				break
			}
		}
	} else if l.IsCustomLayout() {
		i, ok = t.customIndex[l.key()]
	} else {
		i, ok = t.objIndex[l.classHandle]
	}

	if !ok || t.at(i) != l {
		errors.Fatal(errors.NotFound(errors.PhaseLookup, "layout", l.Name()))
	}
	return i
}

func (t *Table) add(l *ClassLayout) {
	if t.large == nil && t.count < smallCapacity {
		t.small[t.count] = l
		t.count++
		return
	}

	if t.large == nil {
		t.promote()
	}

	if len(t.large) == cap(t.large) {
		grown := make([]*ClassLayout, len(t.large), 2*cap(t.large))
		copy(grown, t.large)
		t.large = grown
	}

	t.large = append(t.large, l)
	t.indexLayout(l, t.count)
	t.count++
}

// promote moves the small tier into the dynamic array and builds the hash
// indices. It happens once.
func (t *Table) promote() {
	t.large = make([]*ClassLayout, 0, 2*smallCapacity)
	t.customIndex = make(map[customKey]int)
	t.objIndex = make(map[jitlayout.ClassHandle]int)

	for i, l := range t.small[:t.count] {
		t.large = append(t.large, l)
		t.indexLayout(l, i)
	}
	t.small = [smallCapacity]*ClassLayout{}

	Logger().Debug("layout table promoted",
		zap.Int("layouts", t.count),
		zap.Int("capacity", cap(t.large)))
}

func (t *Table) indexLayout(l *ClassLayout, i int) {
	if l.IsCustomLayout() {
		t.customIndex[l.key()] = i
	} else {
		t.objIndex[l.classHandle] = i
	}
}

func (t *Table) fieldNodes() []jitlayout.FieldNode {
	if t.nodes == nil {
		t.nodes = make([]jitlayout.FieldNode, t.target.MaxFieldNodes)
	}
	return t.nodes
}

func (t *Table) segmentAllocator() segment.Allocator[uint32] {
	return func(n int) []Segment {
		return arena.Make[Segment](t.arena, n)
	}
}
