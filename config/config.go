// Package config loads loader settings from an optional config file and
// ZIGPKG_* environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wippyai/zigpkg/guest"
	"github.com/wippyai/zigpkg/loader"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. ZIGPKG_VARIANT.
	EnvPrefix = "ZIGPKG"
	// FileName is the config file name searched for without an explicit path.
	FileName = "zigpkg"
)

// Config holds loader settings.
type Config struct {
	// Variant is auto, native or guest.
	Variant string `mapstructure:"variant"`
	// BaseDir replaces the executable's directory for layout detection.
	BaseDir string `mapstructure:"base_dir"`
	// LibDir bypasses layout detection entirely.
	LibDir string `mapstructure:"lib_dir"`
	// CacheDir enables the wazero compilation cache for the guest module.
	CacheDir string `mapstructure:"cache_dir"`
	// LogLevel is a zap level name.
	LogLevel string `mapstructure:"log_level"`
	// MemoryLimitPages caps guest memory in 64KB pages; 0 is unlimited.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Variant:  "auto",
		LogLevel: "warn",
	}
}

// Load reads the config file at path, or searches the working directory and
// the user config directory for zigpkg.{yaml,toml,json} when path is empty.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("variant", defaults.Variant)
	v.SetDefault("base_dir", defaults.BaseDir)
	v.SetDefault("lib_dir", defaults.LibDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("memory_limit_pages", defaults.MemoryLimitPages)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, FileName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := cfg.ParsedVariant(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParsedVariant returns the configured variant.
func (c *Config) ParsedVariant() (loader.Variant, error) {
	return loader.ParseVariant(c.Variant)
}

// LoaderOptions converts the config into loader options.
func (c *Config) LoaderOptions(log *zap.Logger) []loader.Option {
	var opts []loader.Option
	if c.BaseDir != "" {
		opts = append(opts, loader.WithBaseDir(c.BaseDir))
	}
	if c.LibDir != "" {
		opts = append(opts, loader.WithLibDir(c.LibDir))
	}
	if c.MemoryLimitPages > 0 || c.CacheDir != "" {
		opts = append(opts, loader.WithGuestConfig(&guest.Config{
			MemoryLimitPages: c.MemoryLimitPages,
			CacheDir:         c.CacheDir,
		}))
	}
	if log != nil {
		opts = append(opts, loader.WithLogger(log))
	}
	return opts
}

// NewLogger builds a console logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = level
	zc.DisableStacktrace = true
	return zc.Build()
}
