// Package loader binds a program to whichever zigpkg module is available:
// the native shared library when it can be opened, the WASM guest module
// otherwise.
//
// # Lifecycle
//
//	Uninitialized --Initialize--> Loading --ok--> Ready
//	                                      --err-> Failed
//	any state --Deinitialize--> Uninitialized
//
// Only one Initialize ever proceeds past the guard per loader lifetime. A
// second call while loading, after success, or after failure returns an
// already-initializing error; retrying requires Deinitialize, which exists
// for tests.
//
// # Variants
//
//	VariantUnspecified  native, then guest on not-found
//	VariantNative       native only
//	VariantGuest        guest only
//
// A guest module that is present but malformed is reported as an
// instantiation error even in VariantUnspecified.
//
// # Calls
//
//	l := loader.New()
//	if err := l.Initialize(ctx, loader.VariantUnspecified); err != nil {
//	    return err
//	}
//	v, err := l.Compute(6) // 8
//
// Compute, Add and Call read an immutable snapshot and are safe for
// concurrent use. Missing entry points are reported per call, so a module
// exporting add but not addFoo is still Ready.
package loader
