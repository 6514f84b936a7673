// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles database provisioning and config scaffolding.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database, run migrations, seed the ledger",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write the example config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path for the new config file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// syncCommand runs the sync engine across one source or all of them.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync sources into the local catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Sync a single source (e.g. discogs_collection)",
			},
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Sync every source in dependency order",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Ignore the skip window and the file mtime gate",
			},
		},
		Action: r.Sync,
	}
}

// statusCommand reports the sync ledger and the latest run snapshot.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show per-source sync status and the latest full run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Status,
	}
}

// statsCommand reports library-wide aggregates.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show library overview aggregates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Stats,
	}
}

// searchCommand searches artists and albums across sources.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search artists and albums across sources",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of matches to return",
				Value: 25,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Search,
	}
}

// listenCommand logs and browses listening history.
func listenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Log and browse listening history",
		Commands: []*cli.Command{
			{
				Name:  "log",
				Usage: "Record a listening event",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Artist name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "album",
						Usage:    "Album title",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Where the listen happened (roon, discogs or both)",
						Value: "both",
					},
					&cli.StringFlag{
						Name:  "notes",
						Usage: "Freeform note for the event",
					},
				},
				Action: r.ListenLog,
			},
			{
				Name:  "recent",
				Usage: "Show the newest listening events",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of events to show",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ListenRecent,
			},
		},
	}
}

// exportCommand dumps the synced catalog tables to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export catalog tables to JSON, CSV or Markdown",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format (json, csv or markdown)",
				Value: "json",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Destination directory (default: shelfsync_export_{timestamp})",
			},
		},
		Action: r.Export,
	}
}
