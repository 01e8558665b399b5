// Package errors provides structured error types for the zigpkg loader.
//
// Errors are categorized by Phase (init, load or call) and Kind (error
// category). Load errors carry the Module that failed (native, guest, or any
// when neither was found); call errors carry the operation name.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindOverflow).
//		Module(errors.ModuleNative).
//		Op("compute").
//		Value(uint64(1 << 40)).
//		Detail("result overflow").
//		Build()
//
// Or use the convenience constructors:
//
//	err := errors.NotInitialized("compute")
//	err := errors.ModuleNotFound(errors.ModuleAny, path, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Match categories with the sentinels:
//
//	if errors.Is(err, zerrors.ErrResultOverflow) { ... }
package errors
