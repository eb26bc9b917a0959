package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"flowsema/internal/diag"
	"flowsema/internal/diagfmt"
	"flowsema/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [fixture.yaml|directory]...",
	Short: "Run every analysis pass over fixtures",
	Long: `Run overload resolution, delegation synthesis, redeclaration checks,
smart-cast propagation and constructor checks over YAML fixtures. Directories
are searched for *.yaml and *.yml files. Without arguments the working
directory is searched.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	checkCmd.Flags().Bool("no-warnings", false, "drop warnings")
	checkCmd.Flags().Int("jobs", 0, "max parallel fixtures (0 = from config, else GOMAXPROCS)")
	checkCmd.Flags().Bool("discriminate-generics", false, "prefer non-generic candidates and compare generic ones by bounds")
	checkCmd.Flags().String("fragile", "", "annotation type that exempts expressions from constructor checks")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths")
	checkCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
}

type outputFormat string

const (
	formatPretty outputFormat = "pretty"
	formatShort  outputFormat = "short"
	formatJSON   outputFormat = "json"
)

func readFormat(value string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(value))); f {
	case formatPretty, formatShort, formatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected pretty|short|json)", value)
	}
}

type renderOptions struct {
	format    outputFormat
	withNotes bool
	fullPath  bool
}

func runCheck(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := readFormat(formatStr)
	if err != nil {
		return err
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiStr)
	if err != nil {
		return err
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files, err := driver.ListFixtures(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no fixtures found in %s", strings.Join(paths, ", "))
	}

	opts := driverOptions(timings)
	var results []driver.Result
	if format != formatJSON && shouldUseTUI(mode, len(files)) {
		results, err = runWithUI(cmd.Context(), "flowcheck", files, opts)
	} else {
		results, err = driver.Run(cmd.Context(), files, opts)
	}
	if err != nil {
		return err
	}

	ro := renderOptions{format: format, withNotes: withNotes, fullPath: fullPath}
	if err := renderResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), results, ro); err != nil {
		return err
	}
	if timings && format == formatPretty && len(results) > 1 {
		fmt.Fprint(cmd.ErrOrStderr(), driver.TotalTimings(results).Summary())
	}
	for i := range results {
		if results[i].Failed() {
			return errFailed
		}
	}
	return nil
}

func driverOptions(timings bool) driver.Options {
	cfg := activeConfig
	return driver.Options{
		MaxDiagnostics:       cfg.Diagnostics.Max,
		Jobs:                 cfg.Analysis.Jobs,
		DiscriminateGenerics: cfg.Analysis.DiscriminateGenerics,
		FragileAnnotation:    cfg.Analysis.FragileAnnotation,
		WarningsAsErrors:     cfg.Diagnostics.WarningsAsErrors,
		NoWarnings:           cfg.Diagnostics.NoWarnings,
		Timings:              timings,
	}
}

func renderResults(out, errOut io.Writer, results []driver.Result, opts renderOptions) error {
	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	if opts.format == formatJSON {
		output := make(map[string]any, len(results))
		for _, r := range results {
			if r.Err != nil {
				output[r.Path] = map[string]string{"error": r.Err.Error()}
				continue
			}
			output[r.Path] = diagfmt.BuildDiagnosticsOutput(r.Bag, r.Files, diagfmt.JSONOpts{
				IncludePositions: true,
				PathMode:         pathMode,
				IncludeNotes:     opts.withNotes,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	var errs, warns int
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(errOut, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), r.Err)
			errs++
			continue
		}
		for _, d := range r.Bag.Items() {
			switch d.Severity {
			case diag.SevError:
				errs++
			case diag.SevWarning:
				warns++
			}
		}
		switch opts.format {
		case formatShort:
			if text := diag.FormatShortDiagnostics(r.Bag.Pointers(), r.Files, opts.withNotes); text != "" {
				fmt.Fprintln(out, text)
			}
		default:
			diagfmt.Pretty(out, r.Bag, r.Files, diagfmt.PrettyOpts{
				Color:     !color.NoColor,
				Context:   1,
				PathMode:  pathMode,
				ShowNotes: opts.withNotes,
			})
		}
	}
	if opts.format == formatPretty {
		fmt.Fprintf(errOut, "%d fixtures: %s, %s\n", len(results), plural(errs, "error"), plural(warns, "warning"))
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
