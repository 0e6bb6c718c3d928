// Package static implements jitlayout.TypeSystem over classes described in a
// YAML document.
//
// # Document Format
//
//	pointerSize: 8
//	classes:
//	  - name: Point
//	    fields:
//	      - {name: X, type: int}
//	      - {name: Y, type: int}
//	  - name: Node
//	    kind: class
//	    fields:
//	      - {name: Next, type: Node}
//	      - {name: Value, type: Point}
//	  - name: Point[]
//	    kind: array
//	    element: Point
//
// Kinds are struct (the default, a value class), class (a reference type
// whose instances start with a pointer-sized header), and array. A field type
// is either a scalar name (int, long, ref, byref, double, ...) or the name of
// another class: structs are embedded, classes and arrays become references.
//
// Fields without an offset are laid out sequentially at their natural
// alignment. Explicit offsets may overlap; such structs should set explicit
// so their padding counts as significant. Struct flags:
//
//	byrefLike   stack-only (implied by a byref field or a byref-like field)
//	simd        treated as a vector by the code generator
//	explicit    padding is significant
//	normalize   a single-field wrapper that behaves as its field's scalar
package static
