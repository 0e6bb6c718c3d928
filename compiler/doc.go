// Package compiler drives layout computation the way a JIT does: one Unit
// per compiled method, each owning its arena and layout table.
//
// # Units
//
// A Unit is single-threaded. Inline returns a unit for an inlined callee that
// shares the outer unit's table and arena, so layouts obtained while
// inlining are the same instances the caller sees. Run executes one
// compilation step and turns fatal engine errors (out of memory, malformed
// type metadata, contract violations) into a returned error; the unit, and
// every unit inlined into it, is failed from then on.
//
// # Parallel Compilation
//
// Compile runs independent jobs on a bounded pool of goroutines. Every job
// gets a fresh Unit. Nothing is shared between jobs except the type system
// and, if configured, the slab host, both of which must be safe for
// concurrent use.
//
// # Consumers
//
// PlanBlockCopy and GCInfo show how code generation uses a frozen layout:
// copying only significant bytes with GC-tracked slots flagged, and emitting
// the offsets the collector has to scan.
package compiler
