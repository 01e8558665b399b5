//go:build darwin || freebsd || linux

package native

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

type dlLibrary struct {
	path   string
	handle uintptr
	once   sync.Once
}

// DefaultOpener returns an Opener backed by dlopen(3) through purego, so no
// cgo toolchain is required.
func DefaultOpener() Opener {
	return OpenerFunc(dlOpen)
}

func dlOpen(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return &dlLibrary{path: path, handle: handle}, nil
}

func (l *dlLibrary) Lookup(symbol string) (CFunc, bool) {
	sym, err := purego.Dlsym(l.handle, symbol)
	if err != nil || sym == 0 {
		return nil, false
	}
	var fn CFunc
	purego.RegisterFunc(&fn, sym)
	return fn, true
}

// cOptions matches the C layout of zigpkg_options: two one-byte bools.
type cOptions struct {
	add      bool
	subtract bool
}

func (l *dlLibrary) Options() (Options, bool) {
	sym, err := purego.Dlsym(l.handle, OptionsSymbol)
	if err != nil || sym == 0 {
		return Options{}, false
	}
	c := *(**cOptions)(unsafe.Pointer(&sym))
	return Options{Add: c.add, Subtract: c.subtract}, true
}

func (l *dlLibrary) Close() error {
	var err error
	l.once.Do(func() {
		if cerr := purego.Dlclose(l.handle); cerr != nil {
			err = fmt.Errorf("dlclose %s: %w", l.path, cerr)
		}
	})
	return err
}
