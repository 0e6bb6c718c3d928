// Package errors provides structured error types for the layout engine.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a path (layout name, slot, field), a detail message,
// the offending value, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseBuild, errors.KindOutOfBounds).
//		Path("Point", "slot 3").
//		Detail("slot %d beyond size %d", 3, 16).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Overflow(errors.PhaseAlloc, "page size", size)
//	err := errors.OutOfBounds(errors.PhaseLayout, path, 10, 5)
//
// Failures inside a compilation unit are fatal: they are raised with Fatal and
// surface as a panic carrying *Error. The compilation driver converts them back
// into returned errors with Recover; nothing else is expected to catch them.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
