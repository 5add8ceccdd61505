// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/crate/internal/audio"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
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
				Usage: "Write a default config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the config file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// uploadCommand uploads files and folders and waits for analysis to finish.
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Aliases:   []string{"up"},
		Usage:     "Upload audio files or folders and wait for analysis",
		ArgsUsage: "<path>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "probe",
				Usage: "Print embedded tags and duration before uploading",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the final queue as JSON",
			},
		},
		Action: r.Upload,
	}
}

// watchCommand uploads files as they appear in a folder.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch a folder and upload new audio files",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "settle",
				Usage: "How long a file must stay unchanged before it is uploaded",
				Value: audio.DefaultSettle,
			},
		},
		Action: r.Watch,
	}
}

// tracksCommand handles browsing and editing analyzed tracks.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tracks",
		Aliases: []string{"t"},
		Usage:   "Browse and edit analyzed tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tracks with their effective values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Case-insensitive filename filter",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only show tracks with this status (offline only)",
					},
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Read from the local cache instead of the server",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of cached tracks to return (offline only)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.TracksList,
			},
			{
				Name:      "show",
				Usage:     "Show one track with its analysis",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Read from the local cache instead of the server",
					},
					&cli.BoolFlag{
						Name:  "markdown",
						Usage: "Render as Markdown",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TracksShow,
			},
			{
				Name:      "edit",
				Usage:     "Override fields of a track and save",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "bpm",
						Usage: "Override the BPM",
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Override the musical key",
					},
					&cli.StringFlag{
						Name:  "notes",
						Usage: "Replace the notes",
					},
					&cli.StringSliceFlag{
						Name:  "add-genre",
						Usage: "Add a genre (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "remove-genre",
						Usage: "Remove the genre at a 1-based position (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "add-mood",
						Usage: "Add a mood (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "remove-mood",
						Usage: "Remove the mood at a 1-based position (repeatable)",
					},
				},
				Action: r.TracksEdit,
			},
			{
				Name:      "copy",
				Usage:     "Copy a one-line summary of a track to the clipboard",
				ArgsUsage: "<id>",
				Action:    r.TracksCopy,
			},
		},
	}
}

// exportCommand exports a set of tracks.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export selected tracks as CSV",
		ArgsUsage: "[id]...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Select every track (narrowed by --filter)",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "Select every track whose filename matches",
			},
			&cli.StringFlag{
				Name:    "local",
				Aliases: []string{"o"},
				Usage:   "Write the CSV locally to this path instead of downloading the server export",
			},
		},
		Action: r.Export,
	}
}

// historyCommand prints the local upload history.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show finished uploads recorded locally",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of uploads to show",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// cacheCommand manages the local track cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local track cache",
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Fetch every track from the server into the cache",
				Action: r.CacheSync,
			},
			{
				Name:      "forget",
				Usage:     "Remove a track from the cache",
				ArgsUsage: "<id>",
				Action:    r.CacheForget,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the analysis API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "put",
				Usage: "Direct PUT with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPut,
			},
		},
	}
}

// statusCommand checks that the analysis API is reachable.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check the analysis API and the local cache",
		Action: r.Status,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Launch the interactive upload queue and library",
		ArgsUsage: "[path]...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "watch",
				Usage: "Also upload files that appear in this folder",
			},
		},
		Action: r.TUI,
	}
}
