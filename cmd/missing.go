package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/anisync/internal/formatter"
	"github.com/desertthunder/anisync/internal/shared"
)

// MissingList prints the series that could not be matched to AniList.
func (r *Runner) MissingList(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.missingLedger().LoadAll()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}
	if len(entries) == 0 {
		return r.writePlain("No unmatched series recorded\n")
	}
	return r.writePlain("%s\n", formatter.LedgerTable(entries))
}

// MissingExport writes the ledger as csv, md, txt or json.
func (r *Runner) MissingExport(ctx context.Context, cmd *cli.Command) error {
	entries, err := r.missingLedger().LoadAll()
	if err != nil {
		return err
	}

	written, err := formatter.WriteLedgerExport(entries, cmd.String("output"), cmd.String("format"))
	if err != nil {
		return err
	}
	r.logger.Info("exported ledger", "path", written, "entries", len(entries))
	return r.writePlain("✓ Exported %d series to %s\n", len(entries), written)
}

// MissingRemove drops a series from the ledger, typically after fixing its AniList provider id.
func (r *Runner) MissingRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: series id", shared.ErrMissingArgument)
	}

	removed, err := r.missingLedger().Remove(id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s is not in the ledger", shared.ErrSeriesNotFound, id)
	}
	return r.writePlain("✓ Removed %s\n", id)
}
