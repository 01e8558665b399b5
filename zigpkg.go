package zigpkg

import (
	"context"
	"sync"

	"github.com/wippyai/zigpkg/loader"
)

// Variant aliases for callers that only use the root package.
const (
	Auto   = loader.VariantUnspecified
	Native = loader.VariantNative
	Guest  = loader.VariantGuest
)

var (
	defaultMu     sync.Mutex
	defaultLoader *loader.Loader
	defaultOpts   []loader.Option
)

// Configure sets the options the process-wide loader is created with. It
// reports false when the loader already exists.
func Configure(opts ...loader.Option) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader != nil {
		return false
	}
	defaultOpts = opts
	return true
}

// Default returns the process-wide loader, creating it on first use.
func Default() *loader.Loader {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLoader == nil {
		defaultLoader = loader.New(defaultOpts...)
	}
	return defaultLoader
}

// Initialize loads a module into the process-wide loader and waits for it.
func Initialize(ctx context.Context, variant loader.Variant) error {
	return Default().Initialize(ctx, variant)
}

// InitializeAsync starts loading into the process-wide loader. The channel
// receives the outcome.
func InitializeAsync(ctx context.Context, variant loader.Variant) <-chan error {
	return Default().InitializeAsync(ctx, variant)
}

// Compute runs compute(n) on the loaded module.
func Compute(n uint64) (uint64, error) {
	return Default().Compute(n)
}

// Add runs add(n), or addFoo(n) when foo is set.
func Add(n uint64, foo bool) (uint64, error) {
	return Default().Add(n, foo)
}

// Info describes the process-wide loader.
func Info() loader.Info {
	return Default().Info()
}

// Deinitialize resets the process-wide loader. For tests only.
func Deinitialize(ctx context.Context) error {
	return Default().Deinitialize(ctx)
}
