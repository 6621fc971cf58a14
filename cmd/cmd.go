// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func userFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "user",
			Aliases: []string{"u"},
			Usage:   "Jellyfin username (selects the AniList token)",
		},
		&cli.StringFlag{
			Name:  "user-id",
			Usage: "Jellyfin user ID for watch state (looked up from --user when omitted)",
		},
		&cli.BoolFlag{
			Name:  "auto-add",
			Usage: "Add series missing from the AniList list (defaults to the user's anilist.user_auto_add)",
		},
	}
}

// serveCommand runs the webhook server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the Jellyfin/Sonarr webhook server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to webhook.host:webhook.port)",
			},
		},
		Action: r.Serve,
	}
}

// syncCommand handles one-off syncs
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync watch progress to AniList",
		Commands: []*cli.Command{
			{
				Name:  "series",
				Usage: "Sync one series",
				Flags: append(userFlags(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Jellyfin series ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.SyncSeries,
			},
			{
				Name:  "library",
				Usage: "Sync every series in a library",
				Flags: append(userFlags(),
					&cli.StringFlag{
						Name:  "id",
						Usage: "Jellyfin library ID",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Library name (defaults to library_names from the config)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				),
				Action: r.SyncLibrary,
			},
		},
	}
}

// resolveCommand finds the AniList identity of a series
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Find the AniList media ID for a Jellyfin series or a title",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Jellyfin series ID",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Series title to search for",
			},
			&cli.StringFlag{
				Name:  "premiere",
				Usage: "Premiere date (YYYY-MM-DD) used to disambiguate search results",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Jellyfin username whose AniList token is used",
			},
		},
		Action: r.Resolve,
	}
}

// episodesCommand shows per-episode watch state
func episodesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "episodes",
		Usage: "Show a user's watch state for a series",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Jellyfin series ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Jellyfin username",
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "Jellyfin user ID",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Episodes,
	}
}

// librariesCommand lists Jellyfin libraries
func librariesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "libraries",
		Usage: "List Jellyfin libraries",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Libraries,
	}
}

// missingCommand gives access to the missing-series ledger
func missingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "missing",
		Aliases: []string{"ledger"},
		Usage:   "Series without an AniList match",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List unmatched series",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.MissingList,
			},
			{
				Name:  "export",
				Usage: "Export unmatched series to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md, txt or json (inferred from --output when omitted)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.MissingExport,
			},
			{
				Name:  "remove",
				Usage: "Remove a series from the ledger after fixing its metadata",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.MissingRemove,
			},
		},
	}
}

// historyCommand shows recorded library syncs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Library sync history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "user-id",
						Usage: "Only runs for this Jellyfin user ID",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only runs with this status (running, completed, failed)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one run and its per-series results",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryShow,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles AniList authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage AniList tokens",
		Commands: []*cli.Command{
			{
				Name:  "anilist",
				Usage: "Authorize AniList for a Jellyfin user using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Jellyfin username to store the token for",
						Required: true,
					},
				},
				Action: r.AuthAniList,
			},
			{
				Name:   "status",
				Usage:  "Validate every configured AniList token",
				Action: r.AuthStatus,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive library syncs.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for library sync",
		Flags: append(userFlags(),
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where TUI logs are written",
				Value: "./tmp/anisync-tui.log",
			},
		),
		Action: r.TUI,
	}
}

