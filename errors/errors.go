package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the loader lifecycle the error occurred
type Phase string

const (
	PhaseInit Phase = "init" // initialize/deinitialize bookkeeping
	PhaseLoad Phase = "load" // opening or instantiating a module
	PhaseCall Phase = "call" // computation facade
)

// Kind categorizes the error
type Kind string

const (
	KindNotInitialized      Kind = "not_initialized"
	KindAlreadyInitializing Kind = "already_initializing"
	KindNotFound            Kind = "not_found"
	KindInstantiation       Kind = "instantiation"
	KindMissingEntryPoint   Kind = "missing_entry_point"
	KindOverflow            Kind = "overflow"
	KindTrap                Kind = "trap"
	KindInvalidInput        Kind = "invalid_input"
	KindSuperseded          Kind = "superseded"
)

// Module names which loading path produced the error.
type Module string

const (
	ModuleNone   Module = ""
	ModuleNative Module = "native"
	ModuleGuest  Module = "guest"
	ModuleAny    Module = "any"
)

// Remediation is appended to every module-not-found message.
const Remediation = "did you run `zigpkg install`?"

// Error is the structured error type used throughout the loader
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Module Module
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	// overflow reads the same whichever backend produced it
	if e.Module != ModuleNone && e.Kind != KindOverflow {
		b.WriteString(" (")
		b.WriteString(string(e.Module))
		b.WriteByte(')')
	}

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target with an empty Module matches any module.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Phase != t.Phase || e.Kind != t.Kind {
		return false
	}
	return t.Module == ModuleNone || t.Module == e.Module
}

// Sentinels for errors.Is. Compare by (Phase, Kind) only.
var (
	ErrNotInitialized      = &Error{Phase: PhaseCall, Kind: KindNotInitialized}
	ErrAlreadyInitializing = &Error{Phase: PhaseInit, Kind: KindAlreadyInitializing}
	ErrModuleNotFound      = &Error{Phase: PhaseLoad, Kind: KindNotFound}
	ErrInstantiation       = &Error{Phase: PhaseLoad, Kind: KindInstantiation}
	ErrMissingEntryPoint   = &Error{Phase: PhaseCall, Kind: KindMissingEntryPoint}
	ErrResultOverflow      = &Error{Phase: PhaseCall, Kind: KindOverflow}
	ErrTrap                = &Error{Phase: PhaseCall, Kind: KindTrap}
	ErrSuperseded          = &Error{Phase: PhaseInit, Kind: KindSuperseded}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Module sets the module the error relates to
func (b *Builder) Module(m Module) *Builder {
	b.err.Module = m
	return b
}

// Op sets the operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the loader taxonomy

// NotInitialized reports a facade call made before initialization completed
func NotInitialized(op string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindNotInitialized,
		Op:     op,
		Detail: fmt.Sprintf("must call and wait for Initialize before calling %s", op),
	}
}

// AlreadyInitializing reports a rejected Initialize call
func AlreadyInitializing(detail string) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindAlreadyInitializing,
		Detail: detail,
	}
}

// ModuleNotFound reports that no module of the given kind could be opened.
// ModuleAny means neither kind was found.
func ModuleNotFound(m Module, path string, cause error) *Error {
	var what string
	switch m {
	case ModuleNative:
		what = "native module not found"
	case ModuleGuest:
		what = "WASM module not found"
	default:
		what = "unable to find modules"
	}
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Module: m,
		Value:  path,
		Detail: what + " - " + Remediation,
		Cause:  cause,
	}
}

// Instantiation reports a guest module that was read but could not be compiled or instantiated
func Instantiation(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Module: ModuleGuest,
		Value:  path,
		Detail: fmt.Sprintf("instantiate %s", path),
		Cause:  cause,
	}
}

// MissingEntryPoint reports a loaded module lacking the export an operation needs
func MissingEntryPoint(op string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindMissingEntryPoint,
		Op:     op,
		Detail: fmt.Sprintf("missing compatible extension %q", op),
	}
}

// ResultOverflow reports an input or result outside the module's u32 domain
func ResultOverflow(m Module, op string, value uint64) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindOverflow,
		Module: m,
		Op:     op,
		Value:  value,
		Detail: "result overflow",
	}
}

// Trap reports a guest call that aborted for a reason other than overflow
func Trap(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindTrap,
		Module: ModuleGuest,
		Op:     op,
		Detail: "guest call aborted",
		Cause:  cause,
	}
}

// Superseded reports a load whose result was discarded because Deinitialize
// ran while it was in flight
func Superseded(cause error) *Error {
	return &Error{
		Phase:  PhaseInit,
		Kind:   KindSuperseded,
		Detail: "loader was deinitialized while loading",
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
