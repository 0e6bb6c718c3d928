// Package witsys implements jitlayout.TypeSystem over WebAssembly Interface
// Types, laid out by the Canonical ABI on a 32-bit linear memory.
//
// Every type definition becomes a class:
//
//   - records, tuples, variants, options, results, enums, and flags are
//     value classes
//   - list<T> is an array class whose elements are T
//   - a resource is a reference class with a pointer-sized header
//   - own<R> and borrow<R> are single-slot value classes holding a GC
//     reference; a value containing a borrow is stack-only
//
// The pointer word of a string or list is a byref slot. Variant, option, and
// result payloads overlap, so their padding is significant and their payload
// slots are not GC-tracked.
//
// Use Target for the matching layout.Target. A TypeSystem is immutable after
// construction and safe for concurrent use.
package witsys
