package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCall,
				Kind:   KindTrap,
				Module: ModuleGuest,
				Op:     "compute",
				Detail: "guest call aborted",
			},
			contains: []string{"[call]", "trap", "(guest)", "in compute", "guest call aborted"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseInit,
				Kind:  KindAlreadyInitializing,
			},
			contains: []string{"[init]", "already_initializing"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindInstantiation,
				Detail: "instantiate zigpkg.wasm",
				Cause:  errors.New("invalid magic number"),
			},
			contains: []string{"[load]", "instantiation", "zigpkg.wasm", "caused by", "invalid magic number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := ModuleNotFound(ModuleNative, "/lib/libzigpkg.so", cause)

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := ModuleNotFound(ModuleNative, "x", nil)

	if !errors.Is(err, ErrModuleNotFound) {
		t.Error("sentinel without module should match any module")
	}
	if !errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindNotFound, Module: ModuleNative}) {
		t.Error("same module should match")
	}
	if errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindNotFound, Module: ModuleGuest}) {
		t.Error("different module should not match")
	}
	if errors.Is(err, ErrInstantiation) {
		t.Error("different kind should not match")
	}
	if errors.Is(err, &Error{Phase: PhaseCall, Kind: KindNotFound}) {
		t.Error("different phase should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCall, KindOverflow).
		Module(ModuleNative).
		Op("add").
		Value(uint64(42)).
		Cause(cause).
		Detail("value %d too large", 42).
		Build()

	if err.Phase != PhaseCall {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCall)
	}
	if err.Kind != KindOverflow {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
	}
	if err.Module != ModuleNative {
		t.Errorf("Module = %v, want %v", err.Module, ModuleNative)
	}
	if err.Op != "add" {
		t.Errorf("Op = %q, want add", err.Op)
	}
	if err.Value != uint64(42) {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if err.Detail != "value 42 too large" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if !errors.Is(err, cause) {
		t.Error("Cause not set")
	}
}

func TestModuleNotFound_Messages(t *testing.T) {
	tests := []struct {
		module Module
		want   string
	}{
		{ModuleNative, "native module not found"},
		{ModuleGuest, "WASM module not found"},
		{ModuleAny, "unable to find modules"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(string(tt.module), func(t *testing.T) {
			msg := ModuleNotFound(tt.module, "p", nil).Error()
			if !strings.Contains(msg, tt.want) {
				t.Errorf("message %q does not contain %q", msg, tt.want)
			}
			if !strings.Contains(msg, Remediation) {
				t.Errorf("message %q lacks remediation text", msg)
			}
			if seen[msg] {
				t.Errorf("message %q is not distinct", msg)
			}
			seen[msg] = true
		})
	}
}

func TestCategoryMessagesDistinct(t *testing.T) {
	msgs := []string{
		NotInitialized("compute").Error(),
		AlreadyInitializing("initialize is already in progress").Error(),
		ModuleNotFound(ModuleAny, "p", nil).Error(),
		ResultOverflow(ModuleGuest, "compute", 0xFFFFFFFF).Error(),
	}
	keys := []string{"must call and wait for Initialize", "already in progress", "unable to find modules", "result overflow"}

	for i, msg := range msgs {
		for j, key := range keys {
			has := strings.Contains(msg, key)
			if i == j && !has {
				t.Errorf("message %q should contain %q", msg, key)
			}
			if i != j && has {
				t.Errorf("message %q should not contain %q", msg, key)
			}
		}
	}
}

func TestMissingEntryPoint(t *testing.T) {
	err := MissingEntryPoint("addFoo")
	if !errors.Is(err, ErrMissingEntryPoint) {
		t.Error("should match sentinel")
	}
	if !strings.Contains(err.Error(), `missing compatible extension "addFoo"`) {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestResultOverflow_SameCategoryAcrossModules(t *testing.T) {
	native := ResultOverflow(ModuleNative, "compute", 1)
	guest := ResultOverflow(ModuleGuest, "compute", 1)

	if !errors.Is(native, ErrResultOverflow) || !errors.Is(guest, ErrResultOverflow) {
		t.Fatal("both should match ErrResultOverflow")
	}
	if native.Error() != guest.Error() {
		t.Errorf("messages differ: %q vs %q", native.Error(), guest.Error())
	}
	if native.Module != ModuleNative || guest.Module != ModuleGuest {
		t.Error("overflow errors should still record their module")
	}
}

func TestSuperseded(t *testing.T) {
	err := Superseded(nil)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatal("should match ErrSuperseded")
	}
	if errors.Is(err, ErrNotInitialized) {
		t.Error("superseded load is not a facade not-initialized error")
	}
	if !strings.Contains(err.Error(), "deinitialized while loading") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
