// Package calc computes Canonical ABI size, alignment, and member offsets
// for WIT types.
//
// # Layout Rules
//
//   - Primitives: size equals alignment (u8=1, u32=4, u64=8, etc.)
//   - Records and tuples: members laid out in order, each at its alignment
//   - Variants, options, results: discriminant, then the largest payload at
//     the payload alignment
//   - Lists and strings: a (pointer, length) pair of u32
//   - Handles (own, borrow): a u32 index
//
// Results are cached per type definition. A Calculator is not safe for
// concurrent use.
package calc
