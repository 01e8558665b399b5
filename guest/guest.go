package guest

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/zigpkg/entrypoint"
	"github.com/wippyai/zigpkg/errors"
)

// Import namespace the guest module links against.
const (
	ImportModule   = "env"
	ImportOverflow = "overflow"
)

// ModuleName is the instance name given to the guest module.
const ModuleName = "zigpkg"

// Exports maps operation names to guest export names.
var Exports = map[string]string{
	entrypoint.OpCompute: "compute",
	entrypoint.OpAdd:     "add",
	entrypoint.OpAddFoo:  "add_foo",
}

// HostFunc is an additional host function exported in the env namespace.
type HostFunc struct {
	Fn          api.GoModuleFunc
	Name        string
	ParamTypes  []api.ValueType
	ResultTypes []api.ValueType
}

// Config holds configuration for guest loading
type Config struct {
	// CacheDir enables wazero's on-disk compilation cache when set.
	CacheDir string

	// HostFuncs are added to the env namespace next to overflow.
	HostFuncs []HostFunc

	// MemoryLimitPages sets the maximum memory in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// Module is an instantiated guest module and the entry points captured from it.
type Module struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	mod     api.Module
	set     *entrypoint.Set
	path    string
}

// errOverflowTrap is the panic value raised by the overflow host function.
var errOverflowTrap = stderrors.New("overflow trap")

type trapKey struct{}

// trapSlot records, per call, that the overflow import fired.
type trapSlot struct {
	overflow bool
}

// overflowTrap aborts the in-flight guest call. wazero recovers the panic
// and returns it from api.Function.Call.
func overflowTrap(ctx context.Context, _ api.Module, _ []uint64) {
	if slot, ok := ctx.Value(trapKey{}).(*trapSlot); ok {
		slot.overflow = true
	}
	panic(errOverflowTrap)
}

// Load reads the guest module at path, links it against the env namespace
// and captures its entry points. An unreadable file is reported as not found,
// anything that fails after the read as an instantiation error.
func Load(ctx context.Context, path string, cfg *Config) (*Module, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ModuleNotFound(errors.ModuleGuest, path, err)
	}
	return LoadBytes(ctx, path, wasm, cfg)
}

// LoadBytes instantiates an already-read guest module. path is only used
// for reporting.
func LoadBytes(ctx context.Context, path string, wasm []byte, cfg *Config) (*Module, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	var cache wazero.CompilationCache
	if cfg.CacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			Logger().Warn("compilation cache disabled", zap.String("dir", cfg.CacheDir), zap.Error(err))
		} else {
			cache = c
			runtimeCfg = runtimeCfg.WithCompilationCache(cache)
		}
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	mod, err := instantiate(ctx, rt, wasm, cfg.HostFuncs)
	if err != nil {
		_ = rt.Close(ctx)
		if cache != nil {
			_ = cache.Close(ctx)
		}
		return nil, errors.Instantiation(path, err)
	}

	return &Module{
		runtime: rt,
		cache:   cache,
		mod:     mod,
		set:     capture(mod, path),
		path:    path,
	}, nil
}

func instantiate(ctx context.Context, rt wazero.Runtime, wasm []byte, extra []HostFunc) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(ImportModule)
	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(overflowTrap), nil, nil).
		Export(ImportOverflow)
	for _, hf := range extra {
		if hf.Name == ImportOverflow {
			return nil, fmt.Errorf("host function %s.%s is reserved", ImportModule, hf.Name)
		}
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(hf.Fn, hf.ParamTypes, hf.ResultTypes).
			Export(hf.Name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return nil, fmt.Errorf("instantiate host module %s: %w", ImportModule, err)
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(ModuleName))
	if err != nil {
		return nil, fmt.Errorf("instantiate failed: %w", err)
	}
	return mod, nil
}

// capture collects exports typed (i32) -> i32; anything else is treated as absent.
func capture(mod api.Module, path string) *entrypoint.Set {
	defs := mod.ExportedFunctionDefinitions()
	b := entrypoint.NewBuilder()
	for _, op := range entrypoint.Ops {
		name := Exports[op]
		def, ok := defs[name]
		if !ok {
			Logger().Debug("export not found", zap.String("export", name), zap.String("path", path))
			continue
		}
		if !isU32Transform(def) {
			Logger().Warn("export has incompatible signature",
				zap.String("export", name),
				zap.Int("params", len(def.ParamTypes())),
				zap.Int("results", len(def.ResultTypes())))
			continue
		}
		b.Add(entrypoint.EntryPoint{
			Name:   op,
			Symbol: name,
			Fn:     bind(mod, op, name),
		})
	}
	return b.Build()
}

func isU32Transform(def api.FunctionDefinition) bool {
	params, results := def.ParamTypes(), def.ResultTypes()
	return len(params) == 1 && params[0] == api.ValueTypeI32 &&
		len(results) == 1 && results[0] == api.ValueTypeI32
}

// bind resolves a fresh api.Function per call: wazero functions are not
// safe for concurrent use.
func bind(mod api.Module, op, export string) entrypoint.Func {
	return func(n uint64) (uint64, error) {
		if n > math.MaxUint32 {
			return 0, errors.ResultOverflow(errors.ModuleGuest, op, n)
		}

		fn := mod.ExportedFunction(export)
		if fn == nil {
			return 0, errors.Trap(op, fmt.Errorf("export %s disappeared", export))
		}

		slot := &trapSlot{}
		ctx := context.WithValue(context.Background(), trapKey{}, slot)
		res, err := fn.Call(ctx, api.EncodeU32(uint32(n)))
		if err != nil {
			if slot.overflow || stderrors.Is(err, errOverflowTrap) {
				return 0, errors.ResultOverflow(errors.ModuleGuest, op, n)
			}
			return 0, errors.Trap(op, err)
		}
		return uint64(api.DecodeU32(res[0])), nil
	}
}

// Entries returns the captured entry points.
func (m *Module) Entries() *entrypoint.Set { return m.set }

// Path returns the path the module was read from.
func (m *Module) Path() string { return m.path }

// Close releases the wazero runtime and everything instantiated in it, then
// the compilation cache. The on-disk cache entries are kept.
func (m *Module) Close(ctx context.Context) error {
	err := m.runtime.Close(ctx)
	if m.cache != nil {
		err = stderrors.Join(err, m.cache.Close(ctx))
	}
	return err
}

// Cached reports whether the module was compiled through a compilation cache.
func (m *Module) Cached() bool { return m.cache != nil }
