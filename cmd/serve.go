package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/anisync/internal/models"
	"github.com/desertthunder/anisync/internal/server"
	"github.com/desertthunder/anisync/internal/services"
	"github.com/desertthunder/anisync/internal/tasks"
)

// Serve runs the webhook server until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.requireMedia(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := tasks.NewEngineSet(r.catalogs, func(catalog services.Catalog) tasks.SyncEngine {
		return tasks.NewEngine(r.engineOpts(catalog, models.TriggerWebhook))
	})

	users := engines.Users()
	switch {
	case len(users) == 0 && !r.catalogs.HasFallback():
		r.logger.Warn("no AniList tokens configured; webhooks will be ignored", "hint", "run 'anisync auth anilist --user NAME'")
	case r.catalogs.HasFallback():
		r.logger.Info("AniList tokens loaded", "users", users, "global_token", true)
	default:
		r.logger.Info("AniList tokens loaded", "users", users)
	}

	srv := server.New(server.Options{
		Config:    r.config,
		Engines:   engines,
		Media:     r.media,
		Refresher: r.media,
		Logger:    r.logger.With("component", "server"),
	})

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Webhook.Addr()
	}
	return srv.Run(ctx, addr)
}
