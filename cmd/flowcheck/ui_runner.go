package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"flowsema/internal/driver"
	"flowsema/internal/ui"
)

type runOutcome struct {
	results []driver.Result
	err     error
}

// runWithUI analyses files while a Bubble Tea program renders progress. The
// program stops when the event channel is closed after the run.
func runWithUI(ctx context.Context, title string, files []string, opts driver.Options) ([]driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		runOpts := opts
		runOpts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Run(ctx, files, runOpts)
		outcomeCh <- runOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// the view may quit early; keep the producer from blocking
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil && ctx.Err() == nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
