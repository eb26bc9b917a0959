package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"flowsema/internal/version"
)

// errFailed signals that diagnostics with error severity were printed; the
// process exits 1 without repeating anything.
var errFailed = errors.New("analysis reported errors")

var rootCmd = &cobra.Command{
	Use:           "flowcheck",
	Short:         "Flow-sensitive semantic checks over declaration fixtures",
	Long:          `flowcheck resolves overloads, synthesizes delegated members, tracks smart casts and checks constructors of the classes described in YAML fixtures`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColorMode(cmd); err != nil {
			return err
		}
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		activeConfig = cfg
		cleanup, err := setupTracing(cmd, cfg.Trace)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		stopProfiling, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		profileCleanup = stopProfiling
		return nil
	},
}

var (
	traceCleanup   = func() {}
	profileCleanup = func() {}
)

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "append per-pass timings to each fixture")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics per fixture (0 = no limit)")
	rootCmd.PersistentFlags().String("config", "", "path to flowcheck.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "ring", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace output format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept by the ring tracer")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 = off)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")
}

func main() {
	rootCmd.Version = version.Current().Version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	profileCleanup()
	traceCleanup()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "flowcheck: %v\n", err)
		}
		os.Exit(1)
	}
}

func applyColorMode(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) // #nosec G115 -- file descriptors fit in int
}
