// Package types defines the scalar type enumeration shared by the layout
// engine and its consumers.
//
// Scalar values double as the low range of the dense layout numbering: a
// layout number is either a Scalar or an offset above Count, so the two never
// collide in compact encodings such as GC-info tables.
//
// # Key Types
//
//   - Scalar: primitive machine type (int, long, ref, byref, simd16, ...)
//   - GCKind: per-slot GC tracking tag (none, ref, byref)
package types
