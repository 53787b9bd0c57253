package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotiq/internal/shared"
	"github.com/desertthunder/spotiq/internal/ui"
)

// TUI launches the interactive queue view. The engine and its bus keep running underneath so the player can
// connect while the view is open.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(cmd.String("log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	e, err := r.newEngine(r.config.Queue.RestoreOnStart)
	if err != nil {
		return err
	}
	defer e.close()

	if urls := cmd.Args().Slice(); len(urls) > 0 {
		for _, err := range e.queue.AddURLs(ctx, urls) {
			r.logger.Warn("skipping url", "error", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	engineErr := make(chan error, 1)
	go func() { engineErr <- e.run(ctx, r.config.Server.Addr(), r.config.Bus.Path) }()

	model := ui.NewModel(ctx, e.queue, r.config.Queue.SkipUnavailable)
	defer model.Close()

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	cancel()
	if rerr := <-engineErr; rerr != nil {
		r.logger.Error("engine stopped", "error", rerr)
	}
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// tuiCommand returns the top-level TUI command for the interactive queue.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch the interactive queue",
		ArgsUsage: "[url...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log", Usage: "Log file while the TUI is open", Value: "./tmp/spotiq-tui.log"},
		},
		Action: r.TUI,
	}
}
