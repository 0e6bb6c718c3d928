package segment

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Segment is the half-open range [Start, End).
type Segment[T constraints.Unsigned] struct {
	Start T
	End   T
}

// New returns [start, end). It panics if start > end.
func New[T constraints.Unsigned](start, end T) Segment[T] {
	s := Segment[T]{Start: start, End: end}
	s.validate()
	return s
}

func (s Segment[T]) Len() T {
	return s.End - s.Start
}

func (s Segment[T]) IsEmpty() bool {
	return s.Start >= s.End
}

// Contains reports whether other lies entirely within s.
func (s Segment[T]) Contains(other Segment[T]) bool {
	return s.Start <= other.Start && other.End <= s.End
}

// Intersects reports whether s and other share at least one element.
func (s Segment[T]) Intersects(other Segment[T]) bool {
	return s.End > other.Start && other.End > s.Start
}

// IntersectsOrAdjacent is Intersects extended to ranges that touch.
func (s Segment[T]) IntersectsOrAdjacent(other Segment[T]) bool {
	return s.End >= other.Start && other.End >= s.Start
}

// Merge returns the smallest segment covering s and other.
func (s Segment[T]) Merge(other Segment[T]) Segment[T] {
	return Segment[T]{Start: min(s.Start, other.Start), End: max(s.End, other.End)}
}

func (s Segment[T]) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}
