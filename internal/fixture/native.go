package fixture

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/zigpkg/native"
	"github.com/wippyai/zigpkg/resolve"
)

// NativeLibrary is a fake shared library backed by Go functions.
type NativeLibrary struct {
	symbols map[string]native.CFunc
	options *native.Options
	closed  atomic.Bool
}

// Lookup implements native.Library.
func (l *NativeLibrary) Lookup(symbol string) (native.CFunc, bool) {
	fn, ok := l.symbols[symbol]
	return fn, ok
}

// Options implements native.OptionsReader.
func (l *NativeLibrary) Options() (native.Options, bool) {
	if l.options == nil {
		return native.Options{}, false
	}
	return *l.options, true
}

// Close implements native.Library.
func (l *NativeLibrary) Close() error {
	l.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (l *NativeLibrary) Closed() bool { return l.closed.Load() }

// NativeOpener opens a NativeLibrary for any path that exists on disk,
// mimicking dlopen. It exports the given C symbols, or all three when none
// are given.
type NativeOpener struct {
	symbols []string
	options *native.Options
	mu      sync.Mutex
	opened  []*NativeLibrary
}

// NewNativeOpener creates an opener exporting symbols.
func NewNativeOpener(symbols ...string) *NativeOpener {
	if len(symbols) == 0 {
		symbols = []string{"zigpkg_compute", "zigpkg_add", "zigpkg_add_foo"}
	}
	return &NativeOpener{symbols: symbols}
}

// WithOptions makes opened libraries export a ZIGPKG_OPTIONS record.
func (o *NativeOpener) WithOptions(opts native.Options) *NativeOpener {
	o.options = &opts
	return o
}

// Open implements native.Opener.
func (o *NativeOpener) Open(path string) (native.Library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: cannot open shared object file: %w", path, err)
	}
	lib := &NativeLibrary{symbols: make(map[string]native.CFunc), options: o.options}
	for _, sym := range o.symbols {
		switch sym {
		case "zigpkg_compute", "zigpkg_add":
			lib.symbols[sym] = addC(2)
		case "zigpkg_add_foo":
			lib.symbols[sym] = addC(1)
		}
	}
	o.mu.Lock()
	o.opened = append(o.opened, lib)
	o.mu.Unlock()
	return lib, nil
}

// Opened returns every library opened so far.
func (o *NativeOpener) Opened() []*NativeLibrary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*NativeLibrary(nil), o.opened...)
}

func addC(k uint64) native.CFunc {
	return func(n *uint32) bool {
		r := uint64(*n) + k
		if r > math.MaxUint32 {
			return false
		}
		*n = uint32(r)
		return true
	}
}

// Tree lays out a source-layout repository under t.TempDir() and returns the
// package directory to resolve from. Artifacts are written to build/lib only
// when requested.
func Tree(t testing.TB, withNative bool, guest []byte) string {
	t.Helper()

	root := t.TempDir()
	base := filepath.Join(root, "cmd", "zigpkg")
	lib := filepath.Join(root, "build", "lib")
	for _, dir := range []string{base, lib} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	if withNative {
		path := filepath.Join(lib, resolve.FileName(resolve.ArtifactNative, runtime.GOOS))
		if err := os.WriteFile(path, []byte("\x7fELF"), 0o644); err != nil {
			t.Fatalf("write native: %v", err)
		}
	}
	if guest != nil {
		path := filepath.Join(lib, resolve.FileName(resolve.ArtifactGuest, runtime.GOOS))
		if err := os.WriteFile(path, guest, 0o644); err != nil {
			t.Fatalf("write guest: %v", err)
		}
	}
	return base
}
