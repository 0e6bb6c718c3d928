// Package layout assigns stable, deduplicated identity to the memory layouts
// of structs, arrays, and raw blocks used during code generation.
//
// # Key Types
//
//   - ClassLayout: frozen description of a chunk of memory (size, one GC kind
//     per pointer-sized slot, significant byte ranges, register type)
//   - Builder: mutable staging object for custom and array layouts
//   - Table: per-compilation registry mapping class handles and
//     size+GC-pattern keys to canonical layouts and dense layout numbers
//
// Layout numbers live above the scalar range (types.Count), so a single
// integer can encode either a primitive type or a layout.
//
// Contract violations (slot out of range, misaligned GC copy, unknown layout
// number) are fatal and panic with *errors.Error.
package layout
