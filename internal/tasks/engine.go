package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
)

// SyncEngine defines the progress sync operations for one catalog account.
type SyncEngine interface {
	// SyncOneSeries fetches a series from the media server and syncs the user's progress for it.
	SyncOneSeries(ctx context.Context, seriesID, userID string, autoAdd bool) models.SyncResult

	// SyncLibrary syncs every series in a library, in order, with pacing between series.
	SyncLibrary(ctx context.Context, libraryID, userID string, autoAdd bool, progress chan<- ProgressUpdate) ([]models.SyncResult, error)

	// SyncEpisodeEvent syncs a series after a played event, using episodeNumber when no played episode is reported.
	SyncEpisodeEvent(ctx context.Context, seriesID, userID string, episodeNumber int, autoAdd bool) models.SyncResult

	// Resolve maps a series to its catalog id without changing any list.
	Resolve(ctx context.Context, series models.SeriesRecord) (*Resolution, error)
}

// RunRecorder persists library sync runs.
type RunRecorder interface {
	Create(run *models.SyncRun) error
	Update(run *models.SyncRun) error
}

// EngineOpts configures an [Engine].
type EngineOpts struct {
	Media   services.MediaServer
	Catalog services.Catalog
	Ledger  Ledger
	History RunRecorder   // optional
	Pacing  time.Duration // zero means [DefaultPacing], negative disables pacing
	Trigger string        // recorded on sync runs, defaults to cli
	Logger  *log.Logger
}

// Engine implements [SyncEngine] against one media server and one catalog account.
type Engine struct {
	media        services.MediaServer
	resolver     *Resolver
	orchestrator *Orchestrator
	history      RunRecorder
	trigger      string
	logger       *log.Logger
}

// NewEngine creates an [Engine] from opts.
func NewEngine(opts EngineOpts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	pacing := opts.Pacing
	if pacing == 0 {
		pacing = DefaultPacing
	}
	trigger := opts.Trigger
	if trigger == "" {
		trigger = models.TriggerCLI
	}

	resolver := NewResolver(opts.Catalog, logger)
	coordinator := NewCoordinator(opts.Catalog, logger)
	return &Engine{
		media:        opts.Media,
		resolver:     resolver,
		orchestrator: NewOrchestrator(opts.Media, resolver, coordinator, opts.Ledger, pacing, logger),
		history:      opts.History,
		trigger:      trigger,
		logger:       logger,
	}
}

func (e *Engine) SyncOneSeries(ctx context.Context, seriesID, userID string, autoAdd bool) models.SyncResult {
	return e.syncByID(ctx, seriesID, userID, autoAdd, 0)
}

func (e *Engine) SyncEpisodeEvent(ctx context.Context, seriesID, userID string, episodeNumber int, autoAdd bool) models.SyncResult {
	return e.syncByID(ctx, seriesID, userID, autoAdd, episodeNumber)
}

func (e *Engine) syncByID(ctx context.Context, seriesID, userID string, autoAdd bool, fallbackEpisode int) models.SyncResult {
	series, err := e.media.Series(ctx, seriesID)
	if err != nil {
		result := models.SyncResult{SeriesID: seriesID, Status: models.StatusError, Err: err}
		if errors.Is(err, shared.ErrSeriesNotFound) {
			result.Message = "Series not found in Jellyfin"
		} else {
			result.Message = fmt.Sprintf("Failed to get series info: %v", err)
		}
		e.logger.Error("failed to get series", "id", seriesID, "error", err)
		return result
	}
	return e.orchestrator.SyncSeries(ctx, *series, userID, autoAdd, fallbackEpisode)
}

func (e *Engine) SyncLibrary(ctx context.Context, libraryID, userID string, autoAdd bool, progress chan<- ProgressUpdate) ([]models.SyncResult, error) {
	run := e.startRun(userID, libraryID)

	sendProgress(progress, fetchLibraryUpdate(libraryID))
	series, err := e.media.LibrarySeries(ctx, libraryID)
	if err != nil {
		if run != nil {
			run.Fail()
			e.saveRun(run)
		}
		return nil, fmt.Errorf("%w: failed to get library series: %v", shared.ErrLibraryNotFound, err)
	}
	sendProgress(progress, foundSeriesUpdate(len(series)))
	e.logger.Info("starting library sync", "library", libraryID, "series", len(series), "user", userID)

	results := e.orchestrator.SyncAll(ctx, series, userID, autoAdd, progress)

	if run != nil {
		run.Complete(results)
		e.saveRun(run)
	}
	return results, nil
}

func (e *Engine) Resolve(ctx context.Context, series models.SeriesRecord) (*Resolution, error) {
	return e.resolver.Resolve(ctx, series)
}

// startRun records a running sync run, returning nil when history is disabled or unavailable.
func (e *Engine) startRun(userID, libraryID string) *models.SyncRun {
	if e.history == nil {
		return nil
	}
	run := models.NewSyncRun(0, userID, libraryID, e.trigger)
	if err := e.history.Create(run); err != nil {
		e.logger.Warn("failed to record sync run", "error", err)
		return nil
	}
	return run
}

func (e *Engine) saveRun(run *models.SyncRun) {
	if err := e.history.Update(run); err != nil {
		e.logger.Warn("failed to update sync run", "id", run.ID(), "error", err)
	}
}

// EngineBuilder creates the engine for one catalog account.
type EngineBuilder func(catalog services.Catalog) SyncEngine

// EngineSet maps media server usernames to engines, built lazily from a catalog registry.
type EngineSet struct {
	mu       sync.Mutex
	registry *services.CatalogRegistry
	build    EngineBuilder
	engines  map[string]SyncEngine
}

// NewEngineSet creates an [EngineSet] resolving catalogs through registry.
func NewEngineSet(registry *services.CatalogRegistry, build EngineBuilder) *EngineSet {
	return &EngineSet{registry: registry, build: build, engines: make(map[string]SyncEngine)}
}

// For returns the engine for username, or [shared.ErrUnknownUser] when no token covers them.
func (s *EngineSet) For(username string) (SyncEngine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[username]; ok {
		return e, nil
	}
	catalog, err := s.registry.For(username)
	if err != nil {
		return nil, err
	}
	e := s.build(catalog)
	s.engines[username] = e
	return e, nil
}

// Users lists usernames with their own catalog token.
func (s *EngineSet) Users() []string {
	return s.registry.Users()
}

// FindLibrary returns the first library whose name contains any of names (ignoring case)
// or whose collection type is tvshows.
func FindLibrary(libraries []models.Library, names []string) (models.Library, bool) {
	for _, lib := range libraries {
		if strings.EqualFold(lib.CollectionType, "tvshows") {
			return lib, true
		}
		for _, name := range names {
			if name != "" && strings.Contains(strings.ToLower(lib.Name), strings.ToLower(name)) {
				return lib, true
			}
		}
	}
	return models.Library{}, false
}
