// package server serves the Jellyfin and Sonarr webhooks and the OAuth callback
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/shared"
	"github.com/desertthunder/anisync/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// EngineProvider looks up the sync engine for a media server username.
type EngineProvider interface {
	For(username string) (tasks.SyncEngine, error)
	Users() []string
}

// ShutdownTimeout bounds how long Run waits for in-flight requests on shutdown.
const ShutdownTimeout = 30 * time.Second

// Options configures a [Server].
type Options struct {
	Config    *shared.Config
	Engines   EngineProvider
	Media     services.MediaServer
	Refresher services.LibraryRefresher // optional, required for Sonarr refreshes
	Logger    *log.Logger
}

// Server handles webhook deliveries and runs login-triggered library syncs in the background.
type Server struct {
	cfg       *shared.Config
	engines   EngineProvider
	media     services.MediaServer
	refresher services.LibraryRefresher
	logger    *log.Logger
	router    *BasicRouter
	bulk      *bulkRuns
}

// New creates a [Server] with all routes registered.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}

	s := &Server{
		cfg:       cfg,
		engines:   opts.Engines,
		media:     opts.Media,
		refresher: opts.Refresher,
		logger:    logger,
		router:    NewBasicRouter(),
		bulk:      newBulkRuns(),
	}

	s.router.Use(Recoverer(logger), RequestLogger(logger))
	s.router.HandleFunc(http.MethodPost, "/webhook", s.handleJellyfin)
	s.router.HandleFunc(http.MethodPost, "/", s.handleJellyfin)
	s.router.HandleFunc(http.MethodGet, "/health", s.handleHealth)
	if cfg.Sonarr.Enabled {
		s.router.HandleFunc(http.MethodPost, "/sonarr", s.handleSonarr)
	}
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr until ctx is done, then shuts down, cancels background syncs and waits for them.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.bulk.stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.bulk.stop()
	if err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Wait blocks until background library syncs finish.
func (s *Server) Wait() {
	s.bulk.wg.Wait()
}

// bulkRuns tracks background library syncs, allowing one per user.
type bulkRuns struct {
	mu     sync.Mutex
	active map[string]bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func newBulkRuns() *bulkRuns {
	ctx, cancel := context.WithCancel(context.Background())
	return &bulkRuns{active: make(map[string]bool), ctx: ctx, cancel: cancel}
}

// start runs fn in the background unless user already has a run. It reports whether fn was started.
func (b *bulkRuns) start(user string, fn func(ctx context.Context)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active[user] || b.ctx.Err() != nil {
		return false
	}
	b.active[user] = true
	b.wg.Add(1)

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.active, user)
			b.mu.Unlock()
			b.wg.Done()
		}()
		fn(b.ctx)
	}()
	return true
}

// stop cancels running syncs and waits for them to return.
func (b *bulkRuns) stop() {
	b.cancel()
	b.wg.Wait()
}
