// Package errors provides structured error types for the spectest harness.
//
// Errors are categorized by Phase (where in a script run the error occurred)
// and Kind (the harness error taxonomy). The Error type carries the test set,
// source line and export field the failure belongs to, plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLookup, errors.KindLookup).
//		At("i32", 42).
//		Field("add").
//		Detail("export not found").
//		Build()
//
// Or use convenience constructors for the taxonomy:
//
//	err := errors.UnknownModule("M")
//	err := errors.EngineFault("div_s", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
