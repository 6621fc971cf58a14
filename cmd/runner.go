package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/repositories"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
)

// MediaClient is the media server surface the CLI needs.
type MediaClient interface {
	services.MediaServer
	services.LibraryRefresher
	UserByName(ctx context.Context, name string) (*models.MediaUser, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil in [RunnerOpts] are built from the config in [Runner.Before].
type Runner struct {
	config     *shared.Config
	configPath string
	media      MediaClient
	catalogs   *services.CatalogRegistry
	ledger     repositories.MissingSeriesStore
	history    *repositories.SyncRunRepository
	db         *sql.DB
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	terminal   bool

	// built marks dependencies created from the config rather than injected.
	built struct{ media, catalogs, ledger bool }
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Media      MediaClient
	Catalogs   *services.CatalogRegistry
	Ledger     repositories.MissingSeriesStore
	History    *repositories.SyncRunRepository
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	terminal := false
	if f, ok := opts.Output.(*os.File); ok {
		terminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		media:      opts.Media,
		catalogs:   opts.Catalogs,
		ledger:     opts.Ledger,
		history:    opts.History,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		terminal:   terminal,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, syncCommand, resolveCommand, episodesCommand, librariesCommand,
		missingCommand, historyCommand, setupCommand, authCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config, applies the log level and wires clients the caller did not inject.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" {
		r.configPath = shared.ConfigPath(cmd.String("config"), cmd.IsSet("config"))
	}

	if r.config == nil {
		config, err := r.loadConfig()
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	if level != "" {
		if err := shared.SetLogLevel(r.logger, level); err != nil {
			return ctx, err
		}
	}

	r.wire()
	return ctx, nil
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	var config *shared.Config
	if _, err := os.Stat(r.configPath); err == nil {
		if config, err = shared.LoadConfig(r.configPath); err != nil {
			return nil, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		config = shared.DefaultConfig()
	}
	config.ApplyEnv()
	return config, nil
}

// wire builds the Jellyfin client and the per-user AniList clients from the config.
func (r *Runner) wire() {
	if r.limiter == nil {
		r.limiter = services.NewRequestLimiter(r.config.AniList.RequestsPerMinute)
	}

	if r.media == nil && r.config.Jellyfin.ServerURL != "" {
		r.media = services.NewJellyfinService(
			r.config.Jellyfin.ServerURL,
			r.config.Jellyfin.APIKey,
			r.httpClient,
			r.logger.With("component", "jellyfin"),
		)
		r.built.media = true
	}

	if r.catalogs == nil {
		r.catalogs = services.NewCatalogRegistry(r.config.AniList.UserTokens, r.config.AniList.GlobalToken, r.newCatalog)
		r.built.catalogs = true
	}
}

// newCatalog creates an AniList client sharing the process-wide limiter.
func (r *Runner) newCatalog(token string) services.Catalog {
	return services.NewAniListService(token, services.AniListOpts{
		BaseClient:       r.httpClient,
		Limiter:          r.limiter,
		RateLimitBackoff: r.config.Sync.RateLimitBackoff,
		Logger:           r.logger.With("component", "anilist"),
	})
}

// database opens the configured sqlite database once.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	if r.config == nil || r.config.Database.Path == "" {
		return nil, fmt.Errorf("%w: database.path is not set", shared.ErrMissingConfig)
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// missingLedger returns the configured ledger backend, opening the database for the sqlite backend.
func (r *Runner) missingLedger() repositories.MissingSeriesStore {
	if r.ledger != nil {
		return r.ledger
	}
	logger := r.logger.With("component", "ledger")

	var db *sql.DB
	if r.config.Ledger.Backend == "sqlite" {
		var err error
		if db, err = r.database(); err != nil {
			logger.Warn("failed to open database for ledger", "error", err)
		}
	}
	ledger, err := repositories.NewLedger(r.config.Ledger, db, logger)
	if err != nil {
		path := r.config.Ledger.Path
		if path == "" {
			path = repositories.DefaultLedgerFile
		}
		logger.Warn("falling back to file ledger", "path", path, "error", err)
		ledger = repositories.NewFileLedger(path, logger)
	}
	r.ledger = ledger
	r.built.ledger = true
	return ledger
}

// runHistory returns the sync run repository, or nil when the database cannot be opened.
func (r *Runner) runHistory() *repositories.SyncRunRepository {
	if r.history != nil {
		return r.history
	}
	db, err := r.database()
	if err != nil {
		r.logger.Warn("sync history disabled", "error", err)
		return nil
	}
	r.history = repositories.NewSyncRunRepository(db)
	return r.history
}

// Close releases the database handle.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the logger, used by the TUI to move logs off the screen.
//
// Clients built from the config hold child loggers, so they are rebuilt.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if r.built.media {
		r.media, r.built.media = nil, false
	}
	if r.built.catalogs {
		r.catalogs, r.built.catalogs = nil, false
	}
	if r.built.ledger {
		r.ledger, r.built.ledger = nil, false
	}
	if r.config != nil {
		r.wire()
	}
}

func (r *Runner) requireMedia() error {
	if r.media == nil {
		return fmt.Errorf("%w: jellyfin.server_url is not configured", shared.ErrServiceUnavailable)
	}
	return nil
}

// engine builds a sync engine for username's AniList account.
func (r *Runner) engine(username, trigger string) (tasks.SyncEngine, error) {
	if err := r.requireMedia(); err != nil {
		return nil, err
	}
	catalog, err := r.catalogs.For(username)
	if err != nil {
		return nil, fmt.Errorf("%w (add a token with 'anisync auth anilist --user %s')", err, username)
	}
	return tasks.NewEngine(r.engineOpts(catalog, trigger)), nil
}

func (r *Runner) engineOpts(catalog services.Catalog, trigger string) tasks.EngineOpts {
	opts := tasks.EngineOpts{
		Media:   r.media,
		Catalog: catalog,
		Ledger:  r.missingLedger(),
		Pacing:  r.config.Sync.Pacing,
		Trigger: trigger,
		Logger:  r.logger.With("component", "sync"),
	}
	if history := r.runHistory(); history != nil {
		opts.History = history
	}
	return opts
}

// userID returns explicit when set, otherwise looks username up on the media server.
func (r *Runner) userID(ctx context.Context, username, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if username == "" {
		return "", fmt.Errorf("%w: --user or --user-id", shared.ErrMissingArgument)
	}
	if err := r.requireMedia(); err != nil {
		return "", err
	}
	user, err := r.media.UserByName(ctx, username)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// autoAdd reads --auto-add when given, otherwise the user's configured policy.
func (r *Runner) autoAdd(cmd *cli.Command, username string) bool {
	if cmd.IsSet("auto-add") {
		return cmd.Bool("auto-add")
	}
	return r.config.AutoAddForUser(username)
}

// findLibrary picks the library by id, then by name, then by the configured library names.
func (r *Runner) findLibrary(ctx context.Context, id, name string) (models.Library, error) {
	if err := r.requireMedia(); err != nil {
		return models.Library{}, err
	}
	libraries, err := r.media.Libraries(ctx)
	if err != nil {
		return models.Library{}, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if id != "" {
		for _, lib := range libraries {
			if lib.ItemID == id {
				return lib, nil
			}
		}
		return models.Library{ItemID: id, Name: id}, nil
	}

	names := r.config.LibraryNames
	if name != "" {
		for _, lib := range libraries {
			if strings.EqualFold(lib.Name, name) {
				return lib, nil
			}
		}
		names = []string{name}
	}
	if lib, ok := tasks.FindLibrary(libraries, names); ok {
		return lib, nil
	}
	return models.Library{}, fmt.Errorf("%w: looked for %s", shared.ErrLibraryNotFound, strings.Join(names, ", "))
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
