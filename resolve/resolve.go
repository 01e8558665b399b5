// Package resolve computes where module artifacts live relative to the
// running program.
//
// Two layouts are recognized. In the source layout the program runs from a
// package directory inside the repository (cmd/<name>, internal/<name>,
// pkg/<name> or examples/<name>), and artifacts sit in build/lib at the
// repository root. In the installed layout the program runs from <prefix>/bin
// and artifacts sit in <prefix>/lib/zigpkg.
//
// Resolution never fails: a missing artifact is detected by the loader that
// tries to open it.
package resolve

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Layout identifies the caller's on-disk layout.
type Layout int

const (
	LayoutSource Layout = iota
	LayoutInstalled
)

func (l Layout) String() string {
	switch l {
	case LayoutSource:
		return "source"
	case LayoutInstalled:
		return "installed"
	default:
		return "unknown"
	}
}

// Artifact identifies which module file to resolve.
type Artifact int

const (
	ArtifactNative Artifact = iota
	ArtifactGuest
)

func (a Artifact) String() string {
	if a == ArtifactNative {
		return "native"
	}
	return "guest"
}

// ProjectName names the artifacts and the installed lib subdirectory.
const ProjectName = "zigpkg"

// sourceDirs are the repository directories a package dir can sit under.
var sourceDirs = []string{"cmd", "internal", "pkg", "examples"}

// Location is a resolved artifact path.
type Location struct {
	Path     string
	Artifact Artifact
	Layout   Layout
	// Override is set when the path came from an explicit lib dir.
	Override bool
}

// Resolver maps artifacts to paths for one base directory.
type Resolver struct {
	logger *zap.Logger
	base   string
	libDir string
	goos   string
	layout Layout
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLibDir bypasses layout offsets and resolves artifacts directly in dir.
func WithLibDir(dir string) Option {
	return func(r *Resolver) { r.libDir = dir }
}

// WithGOOS resolves native file names for another platform.
func WithGOOS(goos string) Option {
	return func(r *Resolver) { r.goos = goos }
}

// WithLogger sets the logger used to report layout fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver for base. An empty base means the directory of the
// running executable.
func New(base string, opts ...Option) *Resolver {
	r := &Resolver{
		base:   base,
		goos:   runtime.GOOS,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.base == "" {
		r.base = ExecutableDir()
	}
	r.base = filepath.Clean(r.base)

	var matched bool
	r.layout, matched = detect(r.base)
	if !matched && r.libDir == "" {
		r.logger.Debug("no layout matched, assuming installed",
			zap.String("base", r.base))
	}
	return r
}

// Base returns the directory the resolver works from.
func (r *Resolver) Base() string { return r.base }

// Layout returns the detected layout.
func (r *Resolver) Layout() Layout { return r.layout }

// Resolve returns the location to try for artifact.
func (r *Resolver) Resolve(a Artifact) Location {
	file := FileName(a, r.goos)
	if r.libDir != "" {
		return Location{
			Path:     filepath.Join(r.libDir, file),
			Artifact: a,
			Layout:   r.layout,
			Override: true,
		}
	}
	return Location{
		Path:     filepath.Join(r.buildDir(), file),
		Artifact: a,
		Layout:   r.layout,
	}
}

func (r *Resolver) buildDir() string {
	if r.layout == LayoutSource {
		return filepath.Join(r.base, "..", "..", "build", "lib")
	}
	return filepath.Join(r.base, "..", "lib", ProjectName)
}

// DetectLayout reports the layout base belongs to. Exactly one layout is
// always returned; use it with New to see whether the match was structural.
func DetectLayout(base string) Layout {
	l, _ := detect(filepath.Clean(base))
	return l
}

// detect returns the layout and whether it matched structurally rather than
// by fallback.
func detect(base string) (Layout, bool) {
	parent := filepath.Base(filepath.Dir(base))
	for _, dir := range sourceDirs {
		if parent == dir {
			return LayoutSource, true
		}
	}
	if filepath.Base(base) == "bin" {
		return LayoutInstalled, true
	}
	return LayoutInstalled, false
}

// FileName returns the artifact file name for goos.
func FileName(a Artifact, goos string) string {
	if a == ArtifactGuest {
		return ProjectName + ".wasm"
	}
	switch goos {
	case "darwin", "ios":
		return "lib" + ProjectName + ".dylib"
	case "windows":
		return ProjectName + ".dll"
	default:
		return "lib" + ProjectName + ".so"
	}
}

// ExecutableDir returns the directory of the running executable, following
// symlinks. It falls back to the working directory, then ".".
func ExecutableDir() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir := filepath.Dir(exe)
		// go run and go test build into a temp dir that matches no layout
		if !strings.HasPrefix(dir, os.TempDir()) {
			return dir
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
