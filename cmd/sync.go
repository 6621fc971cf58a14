package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/anisync/internal/formatter"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
)

// SyncSeries syncs one Jellyfin series to the user's AniList list.
func (r *Runner) SyncSeries(ctx context.Context, cmd *cli.Command) error {
	user := cmd.String("user")
	if user == "" {
		return fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}

	engine, err := r.engine(user, models.TriggerCLI)
	if err != nil {
		return err
	}
	userID, err := r.userID(ctx, user, cmd.String("user-id"))
	if err != nil {
		return err
	}

	r.logger.Info("syncing series", "series", cmd.String("id"), "user", user)
	result := engine.SyncOneSeries(ctx, cmd.String("id"), userID, r.autoAdd(cmd, user))

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writeResult(result)
}

func (r *Runner) writeResult(result models.SyncResult) error {
	mark := "✓"
	if !result.Status.IsSuccess() {
		mark = "✗"
	}
	r.writePlain("%s %s: %s\n", mark, result.SeriesName, result.Message)
	if result.CatalogID != nil {
		r.writePlain("AniList ID: %d", *result.CatalogID)
		if result.Status == models.StatusSuccessViaSearch {
			r.writePlain(" (found by search)")
		}
		r.writePlain("\n")
	}
	if result.LastWatchedEpisode > 0 {
		r.writePlain("Last watched: S%02dE%02d\n", result.LastWatchedSeason, result.LastWatchedEpisode)
	}
	if result.Status == models.StatusError {
		if result.Err != nil {
			return fmt.Errorf("sync failed for %s: %w", result.SeriesName, result.Err)
		}
		return fmt.Errorf("sync failed for %s: %s", result.SeriesName, result.Message)
	}
	return nil
}

// SyncLibrary syncs every series in a library, printing live progress on a terminal.
func (r *Runner) SyncLibrary(ctx context.Context, cmd *cli.Command) error {
	user := cmd.String("user")
	if user == "" {
		return fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}

	engine, err := r.engine(user, models.TriggerCLI)
	if err != nil {
		return err
	}
	userID, err := r.userID(ctx, user, cmd.String("user-id"))
	if err != nil {
		return err
	}
	library, err := r.findLibrary(ctx, cmd.String("id"), cmd.String("name"))
	if err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	r.logger.Info("syncing library", "library", library.Name, "id", library.ItemID, "user", user)

	var progress chan tasks.ProgressUpdate
	printed := make(chan struct{})
	if r.terminal && !asJSON {
		progress = make(chan tasks.ProgressUpdate, 64)
		go func() {
			defer close(printed)
			for update := range progress {
				if update.Phase == tasks.ResolveSeries || update.Phase == tasks.ApplyProgress || update.Phase == tasks.Complete {
					r.writePlain("%s\n", update.Message)
				}
			}
		}()
	} else {
		close(printed)
	}

	results, err := engine.SyncLibrary(ctx, library.ItemID, userID, r.autoAdd(cmd, user), progress)
	if progress != nil {
		close(progress)
	}
	<-printed
	if err != nil {
		return err
	}

	if asJSON {
		return r.writeJSON(results, true)
	}

	summary := tasks.Summarize(results)
	r.writePlainHeader(fmt.Sprintf("%s: %s", library.Name, summary))
	r.writePlain("%s\n\n%s\n", formatter.ResultsTable(results), formatter.SummaryTable(summary))
	if len(summary.NoIdentity) > 0 {
		r.writePlain("\nUnmatched series were recorded; see 'anisync missing list'.\n")
	}
	return nil
}

// Resolve prints the AniList media ID for a Jellyfin series or a bare title.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	var series models.SeriesRecord
	switch id, name := cmd.String("id"), cmd.String("name"); {
	case id != "":
		if err := r.requireMedia(); err != nil {
			return err
		}
		found, err := r.media.Series(ctx, id)
		if err != nil {
			return err
		}
		series = *found
	case name != "":
		series = models.SeriesRecord{Name: name, PremiereDate: cmd.String("premiere")}
	default:
		return fmt.Errorf("%w: --id or --name", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogs.For(cmd.String("user"))
	if err != nil {
		r.logger.Debug("no AniList token, searching anonymously")
		catalog = r.newCatalog("")
	}

	resolution, err := tasks.NewResolver(catalog, r.logger.With("component", "resolver")).Resolve(ctx, series)
	if err != nil {
		var notFound *tasks.IdentityNotFoundError
		if errors.As(err, &notFound) {
			r.writePlain("✗ No AniList match for '%s'\n", notFound.SearchedName)
		}
		return err
	}

	if resolution.ViaDirectLink {
		return r.writePlain("✓ %s → AniList %d (provider ID)\n", series.Name, resolution.CatalogID)
	}
	return r.writePlain("✓ %s → AniList %d (search for '%s')\n", series.Name, resolution.CatalogID, resolution.SearchedName)
}

// Episodes prints a user's per-episode watch state for a series.
func (r *Runner) Episodes(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireMedia(); err != nil {
		return err
	}
	userID, err := r.userID(ctx, cmd.String("user"), cmd.String("user-id"))
	if err != nil {
		return err
	}

	episodes, err := r.media.Episodes(ctx, cmd.String("id"), userID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(episodes, true)
	}

	r.writePlain("%s\n", formatter.EpisodesTable(episodes))
	if last, ok := models.LastWatched(episodes); ok {
		r.writePlain("Last watched: S%02dE%02d\n", last.SeasonNumber, last.EpisodeNumber)
	} else {
		r.writePlain("No episodes watched\n")
	}
	return nil
}

// Libraries lists Jellyfin libraries and marks the one library syncs default to.
func (r *Runner) Libraries(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireMedia(); err != nil {
		return err
	}
	libraries, err := r.media.Libraries(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(libraries, true)
	}

	r.writePlain("%s\n", formatter.LibrariesTable(libraries))
	if lib, ok := tasks.FindLibrary(libraries, r.config.LibraryNames); ok {
		r.writePlain("Default anime library: %s (%s)\n", lib.Name, lib.ItemID)
	} else {
		r.writePlain("No library matches library_names %v\n", r.config.LibraryNames)
	}
	return nil
}
