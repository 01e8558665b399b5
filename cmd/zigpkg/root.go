package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/zigpkg"
	"github.com/wippyai/zigpkg/config"
	"github.com/wippyai/zigpkg/errors"
	"github.com/wippyai/zigpkg/guest"
	"github.com/wippyai/zigpkg/loader"
	"github.com/wippyai/zigpkg/native"
)

// errOverflowed replaces the structured overflow error at the CLI surface.
var errOverflowed = stderrors.New("result overflowed")

type rootOptions struct {
	variant    string
	cfgFile    string
	libDir     string
	verbose    bool
	resolved   loader.Variant
	logger     *zap.Logger
	configured bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "zigpkg",
		Short: "Run zigpkg computations through the native or WASM module",
		Long: `zigpkg loads the precompiled zigpkg module and runs its operations.

The native shared library is tried first; when it is not installed the
portable WASM module is used instead. Force one with --variant.

Configuration is read from zigpkg.{yaml,toml,json} and ZIGPKG_* environment
variables (ZIGPKG_VARIANT, ZIGPKG_LIB_DIR, ZIGPKG_MEMORY_LIMIT_PAGES,
ZIGPKG_CACHE_DIR, ZIGPKG_LOG_LEVEL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.variant, "variant", "", "module variant: auto, native or guest")
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./zigpkg.yaml)")
	cmd.PersistentFlags().StringVar(&opts.libDir, "lib-dir", "", "directory containing the module artifacts")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(newComputeCmd(opts))
	cmd.AddCommand(newAddCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newInteractiveCmd(opts))

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("variant") {
		cfg.Variant = o.variant
	}
	if o.libDir != "" {
		cfg.LibDir = o.libDir
	}
	if o.verbose {
		cfg.LogLevel = "debug"
	}

	o.resolved, err = cfg.ParsedVariant()
	if err != nil {
		return err
	}

	o.logger, err = cfg.NewLogger()
	if err != nil {
		return err
	}
	guest.SetLogger(o.logger)
	native.SetLogger(o.logger)

	o.configured = zigpkg.Configure(cfg.LoaderOptions(o.logger)...)
	if !o.configured {
		o.logger.Debug("loader already configured, keeping existing options")
	}
	return nil
}

func (o *rootOptions) initialize(ctx context.Context) error {
	return zigpkg.Initialize(ctx, o.resolved)
}

func newComputeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compute <n>",
		Short: "Print compute(n)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			if err := opts.initialize(cmd.Context()); err != nil {
				return err
			}
			return printResult(cmd, zigpkg.Compute, n)
		},
	}
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var foo bool
	cmd := &cobra.Command{
		Use:   "add <n>",
		Short: "Print add(n), or addFoo(n) with --foo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseNumber(args[0])
			if err != nil {
				return err
			}
			if err := opts.initialize(cmd.Context()); err != nil {
				return err
			}
			return printResult(cmd, func(n uint64) (uint64, error) {
				return zigpkg.Add(n, foo)
			}, n)
		},
	}
	cmd.Flags().BoolVar(&foo, "foo", false, "use the addFoo entry point")
	return cmd
}

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show which module was loaded and its operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			initErr := opts.initialize(cmd.Context())
			info := zigpkg.Info()

			if initErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "State: %s\n", info.State)
				return initErr
			}
			writeInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func writeInfo(out io.Writer, info loader.Info) {
	fmt.Fprintf(out, "State: %s\n", info.State)
	fmt.Fprintf(out, "Variant: %s\n", info.Variant)
	fmt.Fprintf(out, "Path: %s\n", info.Path)
	if info.Options != nil {
		fmt.Fprintf(out, "Build options: %s\n", info.Options)
	}
	fmt.Fprintf(out, "\nOperations:\n")
	for _, op := range info.Ops {
		fmt.Fprintf(out, "  %s%s  [%s]\n", op.Name, op.Signature, op.Symbol)
	}
}

func parseNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return n, nil
}

func printResult(cmd *cobra.Command, fn func(uint64) (uint64, error), n uint64) error {
	v, err := fn(n)
	if stderrors.Is(err, errors.ErrResultOverflow) {
		return errOverflowed
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}
