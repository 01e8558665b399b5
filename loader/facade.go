package loader

import (
	"github.com/wippyai/zigpkg/entrypoint"
	"github.com/wippyai/zigpkg/errors"
	"github.com/wippyai/zigpkg/native"
)

// Compute runs the module's compute transform on n.
//
// It fails with a not-initialized error before a successful Initialize, and
// with a result overflow error when n or the result does not fit in 32 bits.
func (l *Loader) Compute(n uint64) (uint64, error) {
	return l.Call(entrypoint.OpCompute, n)
}

// Add runs the add transform on n, or the alternate addFoo transform when foo is set.
func (l *Loader) Add(n uint64, foo bool) (uint64, error) {
	if foo {
		return l.Call(entrypoint.OpAddFoo, n)
	}
	return l.Call(entrypoint.OpAdd, n)
}

// Call dispatches n to the named operation. Safe for concurrent use.
func (l *Loader) Call(op string, n uint64) (uint64, error) {
	s := l.snap.Load()
	if s.state != StateReady {
		return 0, errors.NotInitialized(op)
	}
	ep, ok := s.set.Lookup(op)
	if !ok {
		return 0, errors.MissingEntryPoint(op)
	}
	return ep.Fn(n)
}

// OpInfo describes one available operation.
type OpInfo struct {
	Name      string
	Symbol    string
	Signature entrypoint.Signature
}

// Info describes the loader's current state.
type Info struct {
	Err error
	// Options is the native library's build options record; nil for the
	// guest module or a library that does not export one.
	Options *native.Options
	Path    string
	Ops     []OpInfo
	State   State
	Variant Variant
}

// Info reports the state and, when ready, which module was loaded and the
// operations it provides.
func (l *Loader) Info() Info {
	s := l.snap.Load()
	info := Info{
		State:   s.state,
		Variant: s.variant,
		Path:    s.path,
		Err:     s.err,
	}
	if s.options != nil {
		opts := *s.options
		info.Options = &opts
	}
	for _, name := range s.set.Names() {
		ep, _ := s.set.Lookup(name)
		info.Ops = append(info.Ops, OpInfo{
			Name:      name,
			Symbol:    ep.Symbol,
			Signature: ep.Signature,
		})
	}
	return info
}
