// Package segment implements a sorted set of disjoint half-open ranges.
//
// A List keeps its segments ordered by End (and therefore by Start) with no
// two segments overlapping or touching: adjacent ranges are merged on Add.
// Add and Subtract locate their position with a binary search over the End
// fields, so both are O(log n) plus the number of segments they merge or
// remove.
//
// Layouts use a List[uint32] to record which bytes are covered by a real
// field; block-copy planning subtracts and intersects against it.
package segment
