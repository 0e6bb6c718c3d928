// Package jitlayout provides the class-layout engine of a JIT compiler:
// a bump-pointer arena, an interval set for significant byte ranges, and a
// deduplicating table of frozen struct, array, and block layouts.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	jitlayout/           Root package with the TypeSystem and SlabHost interfaces
//	├── arena/           Page-based bump allocator, bulk free only
//	│   └── wasmhost/    Slab host backed by a wazero linear memory
//	├── segment/         Sorted set of disjoint half-open ranges
//	├── layout/          Builder, frozen ClassLayout, and the layout Table
//	├── types/           Scalar type enumeration and GC slot kinds
//	├── typesys/         TypeSystem implementations (static YAML, WIT)
//	├── compiler/        Per-unit ownership, inlinee sharing, copy planning
//	├── errors/          Structured error types and fatal-error handling
//	└── cmd/layoutdump/  Command line and interactive layout browser
//
// # Quick Start
//
//	ts, err := static.Load(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	unit := compiler.NewUnit(ts, compiler.DefaultConfig())
//	defer unit.Close()
//
//	err = unit.Run(func(u *compiler.Unit) error {
//	    l := u.Layouts().ObjLayout(ts.MustLookup("Point"))
//	    fmt.Println(l.Size(), l.RegisterType(), l.NonPadding(u.Layouts()))
//	    return nil
//	})
//
// # Memory Model
//
// Everything a unit allocates lives exactly as long as the unit. Layouts are
// never freed individually; Unit.Close releases the whole arena at once.
//
// # Thread Safety
//
// Arena, Table, and Builder are single-threaded. Compile runs independent
// units in parallel, each with its own arena and table. An inlinee shares the
// outer unit's table on the same goroutine.
package jitlayout
