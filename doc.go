// Package zigpkg binds Go programs to the precompiled zigpkg computation
// module, using the native shared library when it is installed and the
// portable WASM build otherwise.
//
// # Architecture Overview
//
//	zigpkg/          Process-wide loader and package-level API
//	├── loader/      Initialization state machine and computation facade
//	├── resolve/     Artifact paths for source and installed layouts
//	├── native/      Shared library loading via purego (no cgo)
//	├── guest/       WASM loading via wazero, env.overflow trap
//	├── entrypoint/  Captured operation set and WIT signatures
//	├── errors/      Structured error taxonomy
//	├── config/      Configuration from file and ZIGPKG_* environment
//	└── cmd/zigpkg/  Command-line example
//
// # Quick Start
//
//	if err := zigpkg.Initialize(ctx, zigpkg.Auto); err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := zigpkg.Compute(6)
//	fmt.Println(v) // 8
//
// # Artifact Layout
//
// Running from the source tree (cmd/<name>, internal/<name>, ...), modules
// are read from build/lib at the repository root. An installed binary in
// <prefix>/bin reads them from <prefix>/lib/zigpkg. Set ZIGPKG_LIB_DIR or
// use loader.WithLibDir to point elsewhere.
//
// # Errors
//
// Failures are *errors.Error values; match categories with errors.Is:
//
//	errors.ErrNotInitialized       compute called before Initialize finished
//	errors.ErrAlreadyInitializing  Initialize called twice
//	errors.ErrModuleNotFound       no usable module installed
//	errors.ErrInstantiation        guest module present but invalid
//	errors.ErrMissingEntryPoint    module lacks the requested operation
//	errors.ErrResultOverflow       input or result outside u32
//
// # Thread Safety
//
// Compute and Add are safe for concurrent use once Initialize has returned.
// Only one Initialize call proceeds per process; Deinitialize exists for
// tests.
package zigpkg
