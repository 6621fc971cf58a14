package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/anisync/internal/shared"
)

// SetupConfig writes the example configuration to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Wrote %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set jellyfin.server_url and jellyfin.api_key\n")
	r.writePlain("2. Run 'anisync auth anilist --user YOUR_JELLYFIN_USER' or set anilist.global_token\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ %s is at schema version %d\n", r.config.Database.Path, len(versions))
}
