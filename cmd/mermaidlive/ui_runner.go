package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"mermaidlive/internal/batch"
	"mermaidlive/internal/ui"
)

type renderOutcome struct {
	results []batch.Result
	err     error
}

func runRenderWithUI(ctx context.Context, title string, files []string, opts batch.Options) ([]batch.Result, error) {
	events := make(chan batch.Event, 256)
	outcomeCh := make(chan renderOutcome, 1)

	go func() {
		opts.Sink = batch.ChannelSink{Ch: events}
		res, err := batch.Render(ctx, files, opts)
		outcomeCh <- renderOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
