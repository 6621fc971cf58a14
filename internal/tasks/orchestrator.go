package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/shared"
)

// DefaultPacing is the wait between series in a library sync.
const DefaultPacing = 2 * time.Second

// WatchStateProvider reports a user's episode watch state for a series.
type WatchStateProvider interface {
	Episodes(ctx context.Context, seriesID, userID string) ([]models.EpisodeProgress, error)
}

// Orchestrator runs the per-series flow over one or many series.
type Orchestrator struct {
	watch       WatchStateProvider
	resolver    *Resolver
	coordinator *Coordinator
	ledger      Ledger
	pacing      time.Duration
	logger      *log.Logger
	now         func() time.Time
}

// NewOrchestrator creates an [Orchestrator]. A negative pacing disables the wait between series.
func NewOrchestrator(watch WatchStateProvider, resolver *Resolver, coordinator *Coordinator, ledger Ledger, pacing time.Duration, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Orchestrator{
		watch:       watch,
		resolver:    resolver,
		coordinator: coordinator,
		ledger:      ledger,
		pacing:      pacing,
		logger:      logger,
		now:         time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SyncSeries syncs a single series and returns exactly one result.
//
// fallbackEpisode is used as the target progress when no played episode is reported.
func (o *Orchestrator) SyncSeries(ctx context.Context, series models.SeriesRecord, userID string, autoAdd bool, fallbackEpisode int) models.SyncResult {
	return o.syncSeries(ctx, series, userID, autoAdd, fallbackEpisode, nil, 1, 1)
}

func (o *Orchestrator) syncSeries(ctx context.Context, series models.SeriesRecord, userID string, autoAdd bool, fallbackEpisode int, progress chan<- ProgressUpdate, step, total int) models.SyncResult {
	result := models.SyncResult{SeriesID: series.ID, SeriesName: series.Name}
	logger := o.logger.With("series", series.Name, "id", series.ID)

	episodes, err := o.watch.Episodes(ctx, series.ID, userID)
	if err != nil {
		logger.Error("failed to get episodes", "error", err)
		result.Status = models.StatusError
		result.Message = fmt.Sprintf("Failed to get episodes: %v", err)
		result.Err = err
		return result
	}

	target := fallbackEpisode
	if last, ok := models.LastWatched(episodes); ok {
		result.LastWatchedSeason = last.SeasonNumber
		result.LastWatchedEpisode = last.EpisodeNumber
		target = last.EpisodeNumber
	} else if fallbackEpisode > 0 {
		result.LastWatchedEpisode = fallbackEpisode
	}

	sendProgress(progress, resolveSeriesUpdate(step, total, series))
	res, err := o.resolver.Resolve(ctx, series)
	if err != nil {
		var notFound *IdentityNotFoundError
		if errors.As(err, &notFound) {
			entry := NewMissingEntry(series, notFound.SearchedName, notFound.Reason, o.now())
			if o.ledger != nil {
				o.ledger.Add(entry)
			}
			sendProgress(progress, recordMissingUpdate(step, total, entry))
			result.Status = models.StatusNoIdentity
			result.Message = fmt.Sprintf("No AniList ID found and name search failed for '%s'", series.Name)
			return result
		}
		result.Status = models.StatusError
		result.Message = fmt.Sprintf("Sync failed: %v", err)
		result.Err = err
		return result
	}

	id := res.CatalogID
	result.CatalogID = &id

	entry, err := o.coordinator.ApplyProgress(ctx, res.CatalogID, target, autoAdd)
	if err != nil {
		logger.Error("failed to apply progress", "anilist_id", id, "error", err)
		result.Status = models.StatusError
		result.Message = fmt.Sprintf("Sync failed: %v", err)
		result.Err = err
		return result
	}

	result.Status = models.StatusSuccess
	if !res.ViaDirectLink {
		result.Status = models.StatusSuccessViaSearch
	}
	result.Message = fmt.Sprintf("Successfully synced progress to episode %d", target)
	result.RawResponse = entry.Raw
	logger.Info("synced", "anilist_id", id, "progress", target, "status", result.Status)
	return result
}

// SyncAll syncs each series in order, waiting the pacing interval between them.
//
// The output has one result per input, in input order. Once ctx is done, the remaining series are
// reported as errors without any remote calls.
func (o *Orchestrator) SyncAll(ctx context.Context, series []models.SeriesRecord, userID string, autoAdd bool, progress chan<- ProgressUpdate) []models.SyncResult {
	total := len(series)
	results := make([]models.SyncResult, 0, total)

	for i, s := range series {
		if err := ctx.Err(); err != nil {
			results = append(results, cancelled(s, err))
			continue
		}

		result := o.syncSeries(ctx, s, userID, autoAdd, 0, progress, i+1, total)
		results = append(results, result)
		sendProgress(progress, applyProgressUpdate(i+1, total, result))

		if i < total-1 && o.pacing > 0 {
			sendProgress(progress, pacingUpdate(i+1, total))
			_ = shared.SleepContext(ctx, o.pacing)
		}
	}

	summary := Summarize(results)
	summary.Log(o.logger)
	sendProgress(progress, completeUpdate(summary))
	return results
}

func cancelled(series models.SeriesRecord, err error) models.SyncResult {
	return models.SyncResult{
		SeriesID:   series.ID,
		SeriesName: series.Name,
		Status:     models.StatusError,
		Message:    "sync cancelled",
		Err:        err,
	}
}
