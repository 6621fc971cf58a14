package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/anisync/internal/formatter"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/repositories"
	"github.com/desertthunder/anisync/internal/shared"
)

func (r *Runner) requireHistory() (*repositories.SyncRunRepository, error) {
	history := r.runHistory()
	if history == nil {
		return nil, fmt.Errorf("%w: sync history needs database.path", shared.ErrServiceUnavailable)
	}
	return history, nil
}

// HistoryList prints recent sync runs, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	history, err := r.requireHistory()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if limit := cmd.Int("limit"); limit > 0 {
		criteria["limit"] = int(limit)
	}
	if userID := cmd.String("user-id"); userID != "" {
		criteria["user_id"] = userID
	}
	if status := cmd.String("status"); status != "" {
		switch status {
		case models.RunStatusRunning, models.RunStatusCompleted, models.RunStatusFailed:
			criteria["status"] = status
		default:
			return fmt.Errorf("%w: status %q", shared.ErrInvalidArgument, status)
		}
	}

	runs, err := history.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	if len(runs) == 0 {
		return r.writePlain("No sync runs recorded\n")
	}
	return r.writePlain("%s\n", formatter.RunsTable(runs))
}

// HistoryShow prints one run and its per-series results. The argument is a run number or id.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("id")
	if arg == "" {
		return fmt.Errorf("%w: run number or id", shared.ErrMissingArgument)
	}

	history, err := r.requireHistory()
	if err != nil {
		return err
	}

	var run *models.SyncRun
	if seq, convErr := strconv.Atoi(arg); convErr == nil {
		run, err = history.GetBySequence(seq)
	} else {
		run, err = history.Get(arg)
	}
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.RunDetail(run))
}
