package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/ui"
)

// TUI launches the interactive library picker and sync view.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if !r.terminal {
		return fmt.Errorf("%w: the TUI needs an interactive terminal", shared.ErrServiceUnavailable)
	}

	user := cmd.String("user")
	if user == "" {
		return fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	engine, err := r.engine(user, models.TriggerTUI)
	if err != nil {
		return err
	}
	userID, err := r.userID(ctx, user, cmd.String("user-id"))
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Media:   r.media,
		Engine:  engine,
		User:    user,
		UserID:  userID,
		AutoAdd: r.autoAdd(cmd, user),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return model.Err()
}
