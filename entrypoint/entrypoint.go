// Package entrypoint defines the set of named operations captured from a
// loaded module.
//
// A Set is built once by a loader and never mutated afterwards, so it can be
// shared by concurrent callers without locking.
package entrypoint

import (
	"fmt"
	"sort"
	"strings"

	"go.bytecodealliance.org/wit"
)

// Logical operation names.
const (
	OpCompute = "compute"
	OpAdd     = "add"
	OpAddFoo  = "addFoo"
)

// Ops lists every operation a module may provide, in display order.
var Ops = []string{OpCompute, OpAdd, OpAddFoo}

// Func is a captured entry point. Implementations report an unrepresentable
// input or result as a result overflow error.
type Func func(n uint64) (uint64, error)

// Signature describes an entry point in WIT terms.
type Signature struct {
	Params  []wit.Type
	Results []wit.Type
}

// U32Transform is the signature shared by all reference operations.
var U32Transform = Signature{
	Params:  []wit.Type{wit.U32{}},
	Results: []wit.Type{wit.U32{}},
}

// String renders the signature as "(u32) -> u32".
func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = TypeString(p)
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if len(s.Results) > 0 {
		results := make([]string, len(s.Results))
		for i, r := range s.Results {
			results[i] = TypeString(r)
		}
		out += " -> " + strings.Join(results, ", ")
	}
	return out
}

// EntryPoint is one captured operation.
type EntryPoint struct {
	Fn        Func
	Name      string
	Symbol    string // export or symbol name in the loaded module
	Signature Signature
}

// Set is a partial, read-only mapping from operation name to entry point.
type Set struct {
	entries map[string]EntryPoint
}

// Builder collects entry points before freezing them into a Set.
type Builder struct {
	entries map[string]EntryPoint
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]EntryPoint)}
}

// Add records an entry point. A later Add for the same name replaces the earlier one.
func (b *Builder) Add(ep EntryPoint) *Builder {
	if ep.Signature.Params == nil {
		ep.Signature = U32Transform
	}
	b.entries[ep.Name] = ep
	return b
}

// Build freezes the collected entry points. The builder must not be reused.
func (b *Builder) Build() *Set {
	s := &Set{entries: b.entries}
	b.entries = nil
	return s
}

// Lookup returns the entry point for op, if present.
func (s *Set) Lookup(op string) (EntryPoint, bool) {
	if s == nil {
		return EntryPoint{}, false
	}
	ep, ok := s.entries[op]
	return ep, ok
}

// Has reports whether op is present.
func (s *Set) Has(op string) bool {
	_, ok := s.Lookup(op)
	return ok
}

// Len returns the number of captured entry points.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Names returns the captured operation names, sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TypeString returns the WIT spelling of a primitive type.
func TypeString(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	default:
		return fmt.Sprintf("%T", t)
	}
}
