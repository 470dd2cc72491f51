package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/photomirror/internal/shared"
	"github.com/desertthunder/photomirror/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive compare, review and sync flow.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/photomirror-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine, source, target, err := r.newEngine(ctx, cmd.StringArg("source"), cmd.StringArg("target"))
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, source.account, target.account, cmd.Bool("dry-run"))
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
