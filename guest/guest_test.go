package guest_test

import (
	"context"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/zigpkg/entrypoint"
	"github.com/wippyai/zigpkg/errors"
	"github.com/wippyai/zigpkg/guest"
	"github.com/wippyai/zigpkg/internal/fixture"
)

func writeWASM(t *testing.T, wasm []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zigpkg.wasm")
	if err := os.WriteFile(path, wasm, 0o644); err != nil {
		t.Fatalf("write wasm: %v", err)
	}
	return path
}

func load(t *testing.T, wasm []byte) *guest.Module {
	t.Helper()
	ctx := context.Background()
	mod, err := guest.Load(ctx, writeWASM(t, wasm), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { mod.Close(ctx) })
	return mod
}

func TestLoad_Compute(t *testing.T) {
	mod := load(t, fixture.Guest())

	tests := []struct {
		op   string
		in   uint64
		want uint64
	}{
		{entrypoint.OpCompute, 6, 8},
		{entrypoint.OpAdd, 6, 8},
		{entrypoint.OpAddFoo, 6, 7},
		{entrypoint.OpCompute, 0, 2},
		{entrypoint.OpCompute, math.MaxUint32 - 2, math.MaxUint32},
	}
	for _, tt := range tests {
		ep, ok := mod.Entries().Lookup(tt.op)
		if !ok {
			t.Fatalf("%s not captured", tt.op)
		}
		got, err := ep.Fn(tt.in)
		if err != nil {
			t.Fatalf("%s(%d): %v", tt.op, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%s(%d) = %d, want %d", tt.op, tt.in, got, tt.want)
		}
	}
}

func TestOverflowTrap(t *testing.T) {
	mod := load(t, fixture.Guest())
	compute, _ := mod.Entries().Lookup(entrypoint.OpCompute)

	for _, n := range []uint64{math.MaxUint32, math.MaxUint32 - 1, math.MaxUint32 + 1, 1<<53 - 1} {
		_, err := compute.Fn(n)
		if !stderrors.Is(err, errors.ErrResultOverflow) {
			t.Errorf("compute(%d): expected overflow, got %v", n, err)
		}
	}

	// the instance stays usable after a trap
	got, err := compute.Fn(6)
	if err != nil || got != 8 {
		t.Errorf("compute(6) after trap = %d, %v; want 8", got, err)
	}
}

func TestLoad_PartialExports(t *testing.T) {
	mod := load(t, fixture.Guest(fixture.ExportAdd))

	if !mod.Entries().Has(entrypoint.OpAdd) {
		t.Error("add should be captured")
	}
	if mod.Entries().Has(entrypoint.OpCompute) || mod.Entries().Has(entrypoint.OpAddFoo) {
		t.Error("missing exports should be absent")
	}
}

func TestLoad_WrongSignatureIsAbsent(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	guest.SetLogger(zap.New(core))
	defer guest.SetLogger(nil)

	mod := load(t, fixture.GuestWrongSignature())

	if mod.Entries().Has(entrypoint.OpCompute) {
		t.Error("compute with () -> () signature should be absent")
	}
	if !mod.Entries().Has(entrypoint.OpAdd) {
		t.Error("add should be captured")
	}
	if logs.FilterMessage("export has incompatible signature").Len() != 1 {
		t.Error("incompatible export should be logged")
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := guest.Load(context.Background(), filepath.Join(t.TempDir(), "zigpkg.wasm"), nil)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindNotFound, Module: errors.ModuleGuest}) {
		t.Errorf("expected guest not-found, got %v", err)
	}
	if stderrors.Is(err, errors.ErrInstantiation) {
		t.Error("not-found must not match instantiation")
	}
}

func TestLoad_Malformed(t *testing.T) {
	_, err := guest.Load(context.Background(), writeWASM(t, fixture.MalformedGuest()), nil)
	if !stderrors.Is(err, errors.ErrInstantiation) {
		t.Errorf("expected instantiation error, got %v", err)
	}
	if stderrors.Is(err, errors.ErrModuleNotFound) {
		t.Error("instantiation error must not match not-found")
	}
}

func TestLoad_ReservedHostFunc(t *testing.T) {
	hf := guest.HostFunc{
		Name: guest.ImportOverflow,
		Fn:   api.GoModuleFunc(func(context.Context, api.Module, []uint64) {}),
	}
	_, err := guest.Load(context.Background(), writeWASM(t, fixture.Guest()), &guest.Config{
		HostFuncs: []guest.HostFunc{hf},
	})
	if !stderrors.Is(err, errors.ErrInstantiation) {
		t.Errorf("reserved host function name should fail instantiation, got %v", err)
	}
}

func TestLoad_ExtraHostFuncAndConfig(t *testing.T) {
	ctx := context.Background()
	cfg := &guest.Config{
		MemoryLimitPages: 1,
		CacheDir:         t.TempDir(),
		HostFuncs: []guest.HostFunc{{
			Name:        "log",
			Fn:          api.GoModuleFunc(func(context.Context, api.Module, []uint64) {}),
			ParamTypes:  []api.ValueType{api.ValueTypeI32},
			ResultTypes: nil,
		}},
	}
	mod, err := guest.Load(ctx, writeWASM(t, fixture.Guest()), cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer mod.Close(ctx)

	if mod.Entries().Len() != 3 {
		t.Errorf("captured %d entry points, want 3", mod.Entries().Len())
	}
}

func TestLoad_CompilationCache(t *testing.T) {
	ctx := context.Background()
	path := writeWASM(t, fixture.Guest())
	cfg := &guest.Config{CacheDir: t.TempDir()}

	for i := 0; i < 2; i++ {
		mod, err := guest.Load(ctx, path, cfg)
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if !mod.Cached() {
			t.Fatalf("load %d: module should use the compilation cache", i)
		}
		ep, _ := mod.Entries().Lookup(entrypoint.OpCompute)
		if got, err := ep.Fn(6); err != nil || got != 8 {
			t.Errorf("load %d: compute(6) = %d, %v; want 8", i, got, err)
		}
		if err := mod.Close(ctx); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}

	if load(t, fixture.Guest()).Cached() {
		t.Error("module loaded without CacheDir should not be cached")
	}
}

func TestEntryPoints_Concurrent(t *testing.T) {
	mod := load(t, fixture.Guest())
	compute, _ := mod.Entries().Lookup(entrypoint.OpCompute)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := uint64(i)
			if i%2 == 1 {
				n = math.MaxUint32
			}
			got, err := compute.Fn(n)
			switch {
			case i%2 == 1 && !stderrors.Is(err, errors.ErrResultOverflow):
				errs <- err
			case i%2 == 0 && (err != nil || got != n+2):
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent call failed: %v", err)
	}
}
