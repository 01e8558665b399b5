// Package native loads the precompiled zigpkg shared library and captures its
// C entry points.
//
// Every entry point follows the C ABI
//
//	bool zigpkg_<op>(uint32_t *n);
//
// which transforms *n in place and returns false when the result does not fit
// in 32 bits. Symbols the library does not export are left out of the
// captured set; the loader reports them lazily when an operation needs one.
package native

import (
	"fmt"
	"math"

	"github.com/wippyai/zigpkg/entrypoint"
	"github.com/wippyai/zigpkg/errors"
)

// Symbols maps operation names to exported C symbols.
var Symbols = map[string]string{
	entrypoint.OpCompute: "zigpkg_compute",
	entrypoint.OpAdd:     "zigpkg_add",
	entrypoint.OpAddFoo:  "zigpkg_add_foo",
}

// OptionsSymbol is the exported const record of build options.
const OptionsSymbol = "ZIGPKG_OPTIONS"

// Options mirrors zigpkg_options, the compile time options the library
// was built with.
type Options struct {
	Add      bool
	Subtract bool
}

func (o Options) String() string {
	return fmt.Sprintf("add=%t subtract=%t", o.Add, o.Subtract)
}

// OptionsReader is implemented by libraries that can read the
// ZIGPKG_OPTIONS record. ok is false when the library does not export it.
type OptionsReader interface {
	Options() (opts Options, ok bool)
}

// CFunc is the Go binding of a zigpkg C entry point.
type CFunc func(n *uint32) bool

// Library is an opened shared library.
type Library interface {
	// Lookup binds symbol, reporting false when it is not exported.
	Lookup(symbol string) (CFunc, bool)
	Close() error
}

// Opener opens a shared library at a path. Any error means the library is
// unavailable at that path.
type Opener interface {
	Open(path string) (Library, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Library, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Library, error) { return f(path) }

// Module is a loaded native library and the entry points captured from it.
type Module struct {
	lib     Library
	set     *entrypoint.Set
	options *Options
	path    string
}

// Load opens the library at path and captures every known entry point.
// A nil opener uses the platform dynamic loader.
func Load(path string, opener Opener) (*Module, error) {
	if opener == nil {
		opener = DefaultOpener()
	}

	lib, err := opener.Open(path)
	if err != nil {
		return nil, errors.ModuleNotFound(errors.ModuleNative, path, err)
	}

	b := entrypoint.NewBuilder()
	for _, op := range entrypoint.Ops {
		sym := Symbols[op]
		fn, ok := lib.Lookup(sym)
		if !ok {
			Logger().Debug("symbol not exported", zapSymbol(sym), zapPath(path))
			continue
		}
		b.Add(entrypoint.EntryPoint{
			Name:   op,
			Symbol: sym,
			Fn:     bind(op, fn),
		})
	}

	m := &Module{lib: lib, set: b.Build(), path: path}
	if r, ok := lib.(OptionsReader); ok {
		if opts, ok := r.Options(); ok {
			m.options = &opts
		} else {
			Logger().Debug("build options not exported", zapSymbol(OptionsSymbol), zapPath(path))
		}
	}
	return m, nil
}

// Entries returns the captured entry points.
func (m *Module) Entries() *entrypoint.Set { return m.set }

// Path returns the path the library was opened from.
func (m *Module) Path() string { return m.path }

// Options returns the library's build options. ok is false when the library
// does not export ZIGPKG_OPTIONS.
func (m *Module) Options() (opts Options, ok bool) {
	if m.options == nil {
		return Options{}, false
	}
	return *m.options, true
}

// Close unloads the library. Entry points must not be called afterwards.
func (m *Module) Close() error {
	return m.lib.Close()
}

// bind checks the u32 domain before the call and maps a false return to overflow.
func bind(op string, fn CFunc) entrypoint.Func {
	return func(n uint64) (uint64, error) {
		if n > math.MaxUint32 {
			return 0, errors.ResultOverflow(errors.ModuleNative, op, n)
		}
		v := uint32(n)
		if !fn(&v) {
			return 0, errors.ResultOverflow(errors.ModuleNative, op, n)
		}
		return uint64(v), nil
	}
}
