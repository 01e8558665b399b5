package loader

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/zigpkg/entrypoint"
	"github.com/wippyai/zigpkg/errors"
	"github.com/wippyai/zigpkg/guest"
	"github.com/wippyai/zigpkg/native"
	"github.com/wippyai/zigpkg/resolve"
)

// snapshot is an immutable view of the loader state. A new snapshot is
// published on every transition; readers never lock.
type snapshot struct {
	err     error
	set     *entrypoint.Set
	options *native.Options
	release func(context.Context) error
	path    string
	state   State
	variant Variant
}

var uninitialized = &snapshot{state: StateUninitialized}

// Loader owns the initialization state machine and the entry points captured
// by a successful load.
type Loader struct {
	logger   *zap.Logger
	resolver *resolve.Resolver
	opener   native.Opener
	guestCfg *guest.Config
	snap     atomic.Pointer[snapshot]
	baseDir  string
	libDir   string
	mu       sync.Mutex
	gen      uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithBaseDir resolves artifacts relative to dir instead of the executable's directory.
func WithBaseDir(dir string) Option {
	return func(l *Loader) { l.baseDir = dir }
}

// WithLibDir looks for artifacts directly in dir, ignoring layout detection.
func WithLibDir(dir string) Option {
	return func(l *Loader) { l.libDir = dir }
}

// WithResolver uses a preconfigured resolver. It takes precedence over
// WithBaseDir and WithLibDir.
func WithResolver(r *resolve.Resolver) Option {
	return func(l *Loader) { l.resolver = r }
}

// WithNativeOpener replaces the platform dynamic loader.
func WithNativeOpener(o native.Opener) Option {
	return func(l *Loader) { l.opener = o }
}

// WithGuestConfig configures the wazero runtime used for the guest module.
func WithGuestConfig(cfg *guest.Config) Option {
	return func(l *Loader) { l.guestCfg = cfg }
}

// WithLogger sets the loader's logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.logger = log }
}

// New creates an uninitialized loader. No I/O happens until Initialize.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = Logger()
	}
	l.snap.Store(uninitialized)
	return l
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	return l.snap.Load().state
}

// Err returns the error that moved the loader to StateFailed, or nil.
func (l *Loader) Err() error {
	return l.snap.Load().err
}

// Initialize loads a module for variant and blocks until the loader is
// ready or has failed. Only the first call after New or Deinitialize
// proceeds; every other call fails with an already-initializing error.
func (l *Loader) Initialize(ctx context.Context, variant Variant) error {
	gen, err := l.begin(variant)
	if err != nil {
		return err
	}
	return l.run(ctx, variant, gen)
}

// InitializeAsync is Initialize without blocking. The re-entrancy check and
// the transition to StateLoading happen before it returns, so a rejected
// call reports its error on the returned channel immediately. The channel
// receives exactly one value.
func (l *Loader) InitializeAsync(ctx context.Context, variant Variant) <-chan error {
	done := make(chan error, 1)
	gen, err := l.begin(variant)
	if err != nil {
		done <- err
		return done
	}
	go func() {
		done <- l.run(ctx, variant, gen)
	}()
	return done
}

// begin is the guarded Uninitialized -> Loading edge.
func (l *Loader) begin(variant Variant) (uint64, error) {
	if !variant.valid() {
		return 0, errors.InvalidInput(errors.PhaseInit, fmt.Sprintf("invalid variant %s", variant))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.snap.Load().state {
	case StateLoading:
		return 0, errors.AlreadyInitializing("initialize is already in progress")
	case StateReady:
		return 0, errors.AlreadyInitializing("cannot call Initialize more than once")
	case StateFailed:
		return 0, errors.AlreadyInitializing("previous initialization failed; call Deinitialize before retrying")
	}

	l.gen++
	l.snap.Store(&snapshot{state: StateLoading, variant: variant})
	return l.gen, nil
}

// run performs the load and always leaves generation gen in Ready or Failed.
func (l *Loader) run(ctx context.Context, variant Variant, gen uint64) (err error) {
	var loaded *snapshot
	defer func() {
		if r := recover(); r != nil {
			loaded = nil
			err = errors.Wrap(errors.PhaseLoad, errors.KindInstantiation,
				fmt.Errorf("panic: %v", r), "load aborted")
		}
		err = l.finish(gen, loaded, err)
	}()

	loaded, err = l.load(ctx, variant)
	return err
}

// finish publishes the terminal state unless Deinitialize ran meanwhile, in
// which case the result is discarded.
func (l *Loader) finish(gen uint64, loaded *snapshot, loadErr error) error {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		if loaded != nil && loaded.release != nil {
			_ = loaded.release(context.Background())
		}
		l.logger.Debug("discarding load superseded by Deinitialize")
		return errors.Superseded(loadErr)
	}
	defer l.mu.Unlock()

	if loadErr != nil {
		l.snap.Store(&snapshot{state: StateFailed, err: loadErr})
		l.logger.Warn("initialization failed", zap.Error(loadErr))
		return loadErr
	}

	l.snap.Store(loaded)
	l.logger.Info("module ready",
		zap.Stringer("variant", loaded.variant),
		zap.String("path", loaded.path),
		zap.Strings("ops", loaded.set.Names()))
	return nil
}

func (l *Loader) load(ctx context.Context, variant Variant) (*snapshot, error) {
	r := l.getResolver()

	var nativeErr error
	if variant == VariantUnspecified || variant == VariantNative {
		loc := r.Resolve(resolve.ArtifactNative)
		l.logger.Debug("trying native module",
			zap.String("path", loc.Path),
			zap.Stringer("layout", loc.Layout))

		mod, err := native.Load(loc.Path, l.opener)
		if err == nil {
			snap := &snapshot{
				state:   StateReady,
				variant: VariantNative,
				set:     mod.Entries(),
				path:    mod.Path(),
				release: func(context.Context) error { return mod.Close() },
			}
			if opts, ok := mod.Options(); ok {
				snap.options = &opts
			}
			return snap, nil
		}
		if variant == VariantNative {
			return nil, err
		}
		nativeErr = err
		l.logger.Info("native module unavailable, falling back to guest", zap.Error(err))
	}

	loc := r.Resolve(resolve.ArtifactGuest)
	l.logger.Debug("trying guest module",
		zap.String("path", loc.Path),
		zap.Stringer("layout", loc.Layout))

	mod, err := guest.Load(ctx, loc.Path, l.guestCfg)
	if err == nil {
		return &snapshot{
			state:   StateReady,
			variant: VariantGuest,
			set:     mod.Entries(),
			path:    mod.Path(),
			release: mod.Close,
		}, nil
	}

	if variant == VariantUnspecified && stderrors.Is(err, errors.ErrModuleNotFound) {
		return nil, errors.ModuleNotFound(errors.ModuleAny, loc.Path, stderrors.Join(nativeErr, err))
	}
	return nil, err
}

func (l *Loader) getResolver() *resolve.Resolver {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolver == nil {
		opts := []resolve.Option{resolve.WithLogger(l.logger)}
		if l.libDir != "" {
			opts = append(opts, resolve.WithLibDir(l.libDir))
		}
		l.resolver = resolve.New(l.baseDir, opts...)
	}
	return l.resolver
}

// Deinitialize returns the loader to StateUninitialized unconditionally and
// releases the loaded module. A load still in flight finishes without
// publishing its result. Intended for tests; production code initializes once
// per process.
func (l *Loader) Deinitialize(ctx context.Context) error {
	l.mu.Lock()
	prev := l.snap.Load()
	l.gen++
	l.snap.Store(uninitialized)
	l.mu.Unlock()

	if prev.release != nil {
		return prev.release(ctx)
	}
	return nil
}
