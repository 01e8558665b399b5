// Package guest loads the portable zigpkg WASM module with wazero.
//
// The guest module imports a single host namespace:
//
//	(import "env" "overflow" (func))
//
// and exports its operations as (i32) -> i32 functions:
//
//	compute, add, add_foo
//
// The guest calls env.overflow when a result does not fit in 32 bits. The
// host implementation aborts the in-flight call, and the entry point reports
// it as a result overflow, the same error the native loader returns when the
// C entry point fails.
//
// # Loading
//
//	mod, err := guest.Load(ctx, "build/lib/zigpkg.wasm", &guest.Config{
//	    MemoryLimitPages: 16,
//	})
//	if err != nil {
//	    return err // not found or instantiation error
//	}
//	defer mod.Close(ctx)
//
//	ep, ok := mod.Entries().Lookup(entrypoint.OpCompute)
//
// # Thread Safety
//
// Captured entry points are safe for concurrent use. Each call resolves its
// own wazero function handle and carries its own trap slot in the call
// context.
package guest
