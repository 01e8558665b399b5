package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/zigpkg/internal/fixture"
	"github.com/wippyai/zigpkg/loader"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Variant != "auto" || cfg.LogLevel != "warn" {
		t.Errorf("defaults = %+v", cfg)
	}
	if v, _ := cfg.ParsedVariant(); v != loader.VariantUnspecified {
		t.Errorf("variant = %v, want auto", v)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zigpkg.yaml")
	data := "variant: wasm\nlib_dir: /opt/zigpkg/lib\nmemory_limit_pages: 16\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, _ := cfg.ParsedVariant(); v != loader.VariantGuest {
		t.Errorf("variant = %v, want guest", v)
	}
	if cfg.LibDir != "/opt/zigpkg/lib" {
		t.Errorf("lib_dir = %q", cfg.LibDir)
	}
	if cfg.MemoryLimitPages != 16 {
		t.Errorf("memory_limit_pages = %d, want 16", cfg.MemoryLimitPages)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zigpkg.toml")
	if err := os.WriteFile(path, []byte("variant = \"guest\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("ZIGPKG_VARIANT", "native")
	t.Setenv("ZIGPKG_MEMORY_LIMIT_PAGES", "32")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v, _ := cfg.ParsedVariant(); v != loader.VariantNative {
		t.Errorf("variant = %v, want native", v)
	}
	if cfg.MemoryLimitPages != 32 {
		t.Errorf("memory_limit_pages = %d, want 32", cfg.MemoryLimitPages)
	}
}

func TestLoad_InvalidVariant(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ZIGPKG_VARIANT", "jvm")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoaderOptions(t *testing.T) {
	base := fixture.Tree(t, false, fixture.Guest())
	cfg := &Config{
		Variant:          "guest",
		LibDir:           filepath.Join(base, "..", "..", "build", "lib"),
		MemoryLimitPages: 4,
		CacheDir:         t.TempDir(),
		LogLevel:         "debug",
	}

	log, err := cfg.NewLogger()
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	l := loader.New(cfg.LoaderOptions(log)...)
	ctx := context.Background()
	defer l.Deinitialize(ctx)

	variant, _ := cfg.ParsedVariant()
	if err := l.Initialize(ctx, variant); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if got, err := l.Compute(6); err != nil || got != 8 {
		t.Errorf("Compute(6) = %d, %v; want 8", got, err)
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	if _, err := cfg.NewLogger(); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
