package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"flowsema/internal/diag"
	"flowsema/internal/driver"
	"flowsema/internal/overload"
)

var factsCmd = &cobra.Command{
	Use:   "facts [flags] <fixture.yaml>",
	Short: "Print smart-cast facts at the probe points of a fixture",
	Long: `Print what the data-flow analysis knows about each probed value:
its nullability and the types it was narrowed to. With --calls the outcome
of every call site is listed as well.`,
	Args: cobra.ExactArgs(1),
	RunE: runFacts,
}

func init() {
	factsCmd.Flags().Bool("calls", false, "also print overload resolution outcomes")
}

func runFacts(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	withCalls, err := cmd.Flags().GetBool("calls")
	if err != nil {
		return fmt.Errorf("failed to get calls flag: %w", err)
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	res := driver.CheckFile(cmd.Context(), args[0], driverOptions(timings))
	if res.Err != nil {
		return res.Err
	}
	if res.Bag.HasErrors() {
		fmt.Fprintln(cmd.ErrOrStderr(), diag.FormatShortDiagnostics(res.Bag.Pointers(), res.Files, false))
	}
	if res.Fixture == nil {
		return errFailed
	}

	out := cmd.OutOrStdout()
	for i, f := range res.Facts {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "graph %s\n", f.Graph.Name)
		for _, line := range strings.SplitAfter(f.Format(), "\n") {
			if line != "" {
				fmt.Fprint(out, "  "+line)
			}
		}
	}
	if withCalls {
		writeCalls(out, res)
	}
	return nil
}

func writeCalls(out io.Writer, res driver.Result) {
	tab := res.Fixture.Table
	if len(res.Facts) > 0 && len(res.Calls) > 0 {
		fmt.Fprintln(out)
	}
	for i, call := range res.Calls {
		site := res.Fixture.Calls[i]
		switch call.Outcome {
		case overload.Resolved:
			fmt.Fprintf(out, "call %s: %s\n", site.Name, tab.Render(call.Winner.Desc))
		case overload.Ambiguous:
			tied := make([]string, len(call.Tied))
			for j, c := range call.Tied {
				tied[j] = tab.Render(c.Desc)
			}
			fmt.Fprintf(out, "call %s: ambiguous between %s\n", site.Name, strings.Join(tied, " and "))
		default:
			fmt.Fprintf(out, "call %s: no candidates\n", site.Name)
		}
	}
}
