package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sliverarmory/linkerns"
)

var (
	targetDir   string
	hookLib     string
	hookLibDir  string
	linkDefault bool
	bindMode    string
	callExport  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:          "linkerns <shared library>",
	Short:        "Load a library into an unrestricted linker namespace, bypassing the app sandbox's namespace policy",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd, verbose)

		if !linkerns.Available() {
			return fmt.Errorf("private loader entry points did not resolve; this requires bionic on arm64")
		}

		mode, err := parseMode(bindMode)
		if err != nil {
			return err
		}

		opts := linkerns.LoadOptions{
			LibPath:       args[0],
			TargetDir:     targetDir,
			Mode:          mode,
			HookLibDir:    hookLibDir,
			HookLibName:   hookLib,
			LinkToDefault: linkDefault,
		}
		logger.Debug().
			Str("lib", opts.LibPath).
			Str("target_dir", opts.TargetDir).
			Str("hook", opts.HookLibName).
			Bool("link_default", opts.LinkToDefault).
			Msg("loading unique copy")

		library, err := linkerns.LoadUniqueHooked(opts)
		if err != nil {
			return err
		}
		logger.Info().
			Str("path", library.Path()).
			Uint64("handle", uint64(library.Handle())).
			Msg("library loaded")

		if callExport != "" {
			if err := library.CallExport(callExport); err != nil {
				return err
			}
			logger.Info().Str("symbol", callExport).Msg("export called")
		}

		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func newLogger(cmd *cobra.Command, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().Timestamp().Logger()
}

func parseMode(s string) (linkerns.Mode, error) {
	switch s {
	case "now":
		return linkerns.ModeNow, nil
	case "lazy":
		return linkerns.ModeLazy, nil
	default:
		return 0, fmt.Errorf("unknown bind mode %q (want now or lazy)", s)
	}
}

func init() {
	rootCmd.Flags().StringVar(&targetDir, "target-dir", "", "Directory for the patched on-disk copy (default: anonymous memfd)")
	rootCmd.Flags().StringVar(&hookLib, "hook", "", "Hook library to inject into the namespace before loading")
	rootCmd.Flags().StringVar(&hookLibDir, "hook-dir", "", "Library search path of the isolation namespace")
	rootCmd.Flags().BoolVar(&linkDefault, "link-default", false, "Link the namespace against an escaped copy of the platform default namespace")
	rootCmd.Flags().StringVar(&bindMode, "mode", "now", "Symbol binding mode: now or lazy")
	rootCmd.Flags().StringVar(&callExport, "call-export", "", "Zero-argument export to call after loading")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
