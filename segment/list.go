package segment

import (
	"iter"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"

	"github.com/wippyai/jit-layout/errors"
)

// Allocator supplies backing storage for a List. It returns a slice with
// length and capacity n.
type Allocator[T constraints.Unsigned] func(n int) []Segment[T]

const initialCapacity = 4

// List is a sorted set of disjoint, non-adjacent segments.
// The zero value is an empty list backed by the Go heap.
type List[T constraints.Unsigned] struct {
	alloc    Allocator[T]
	segments []Segment[T]
}

// NewList creates an empty list. A nil alloc uses the Go heap.
func NewList[T constraints.Unsigned](alloc Allocator[T]) *List[T] {
	return &List[T]{alloc: alloc}
}

// SearchResult is the outcome of BinarySearchEnd: either the index of a
// segment whose End matched exactly, or the insertion point.
type SearchResult struct {
	Index int
	Found bool
}

// BinarySearchEnd finds the segment whose End equals offset. When there is
// none, Index is the position of the first segment with End > offset.
func (l *List[T]) BinarySearchEnd(offset T) SearchResult {
	lo, hi := 0, len(l.segments)
	for lo < hi {
		mid := lo + (hi-lo)/2
		end := l.segments[mid].End
		if end == offset {
			return SearchResult{Index: mid, Found: true}
		}
		if end < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return SearchResult{Index: lo}
}

// Add unions seg into the list.
func (l *List[T]) Add(seg Segment[T]) {
	seg.validate()
	if seg.IsEmpty() {
		return
	}

	index := l.BinarySearchEnd(seg.Start).Index

	l.reserve(len(l.segments) + 1)
	l.segments = slices.Insert(l.segments, index, seg)

	end := index + 1
	for ; end < len(l.segments); end++ {
		if !l.segments[index].IntersectsOrAdjacent(l.segments[end]) {
			break
		}
		l.segments[index] = l.segments[index].Merge(l.segments[end])
	}
	l.segments = slices.Delete(l.segments, index+1, end)
}

// Subtract removes seg from the list.
func (l *List[T]) Subtract(seg Segment[T]) {
	seg.validate()
	if seg.IsEmpty() {
		return
	}

	index, ok := l.firstCandidate(seg)
	if !ok {
		return
	}

	cur := l.segments[index]
	if cur.Contains(seg) {
		switch {
		case seg.Start > cur.Start && seg.End < cur.End:
			// Carve a hole: [cur.Start, seg.Start) and [seg.End, cur.End).
			l.reserve(len(l.segments) + 1)
			l.segments = slices.Insert(l.segments, index, Segment[T]{Start: cur.Start, End: seg.Start})
			l.segments[index+1].Start = seg.End
		case seg.Start > cur.Start:
			l.segments[index].End = seg.Start
		case seg.End < cur.End:
			l.segments[index].Start = seg.End
		default:
			l.segments = slices.Delete(l.segments, index, index+1)
		}
		return
	}

	if cur.Start < seg.Start {
		l.segments[index].End = seg.Start
		index++
	}

	r := l.BinarySearchEnd(seg.End)
	if r.Found {
		l.segments = slices.Delete(l.segments, index, r.Index+1)
		return
	}

	endIndex := r.Index
	if endIndex == len(l.segments) {
		l.segments = slices.Delete(l.segments, index, endIndex)
		return
	}
	if seg.End > l.segments[endIndex].Start {
		l.segments[endIndex].Start = seg.End
	}
	l.segments = slices.Delete(l.segments, index, endIndex)
}

// Intersects reports whether any stored segment overlaps seg.
func (l *List[T]) Intersects(seg Segment[T]) bool {
	seg.validate()
	if seg.IsEmpty() {
		return false
	}
	_, ok := l.firstCandidate(seg)
	return ok
}

// firstCandidate returns the first stored segment that intersects seg, if
// any. Only the candidate is checked: later segments start after it ends.
func (l *List[T]) firstCandidate(seg Segment[T]) (int, bool) {
	r := l.BinarySearchEnd(seg.Start)
	index := r.Index
	if r.Found {
		// A segment ending exactly at seg.Start does not intersect it.
		index++
	}
	if index >= len(l.segments) || l.segments[index].Start >= seg.End {
		return index, false
	}
	return index, true
}

func (l *List[T]) IsEmpty() bool {
	return len(l.segments) == 0
}

func (l *List[T]) Len() int {
	return len(l.segments)
}

func (l *List[T]) At(i int) Segment[T] {
	return l.segments[i]
}

// CoveringSegment returns the bounding range of all stored segments.
func (l *List[T]) CoveringSegment() (Segment[T], bool) {
	if len(l.segments) == 0 {
		return Segment[T]{}, false
	}
	return Segment[T]{Start: l.segments[0].Start, End: l.segments[len(l.segments)-1].End}, true
}

// All iterates the segments in ascending order.
func (l *List[T]) All() iter.Seq[Segment[T]] {
	return func(yield func(Segment[T]) bool) {
		for _, s := range l.segments {
			if !yield(s) {
				return
			}
		}
	}
}

// Segments returns a copy of the stored segments.
func (l *List[T]) Segments() []Segment[T] {
	return slices.Clone(l.segments)
}

// Clone copies the list into storage from alloc.
func (l *List[T]) Clone(alloc Allocator[T]) *List[T] {
	c := NewList(alloc)
	if len(l.segments) > 0 {
		c.reserve(len(l.segments))
		c.segments = append(c.segments, l.segments...)
	}
	return c
}

// Equal reports whether both lists hold the same segments.
func (l *List[T]) Equal(other *List[T]) bool {
	return slices.Equal(l.segments, other.segments)
}

func (l *List[T]) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range l.segments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.String())
	}
	b.WriteByte('}')
	return b.String()
}

// reserve makes room for n segments without letting append reallocate
// outside the allocator.
func (l *List[T]) reserve(n int) {
	if n <= cap(l.segments) {
		return
	}
	newCap := max(initialCapacity, cap(l.segments)*2, n)
	var buf []Segment[T]
	if l.alloc != nil {
		buf = l.alloc(newCap)[:0]
	} else {
		buf = make([]Segment[T], 0, newCap)
	}
	l.segments = append(buf, l.segments...)
}

func (s Segment[T]) validate() {
	if s.Start > s.End {
		errors.Fatal(errors.New(errors.PhaseSegment, errors.KindInvalidInput).
			Value(s).
			Detail("segment start %d after end %d", s.Start, s.End).
			Build())
	}
}
