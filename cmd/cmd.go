// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// App builds the root command. Configuration is loaded and the services wired in Before,
// so every subcommand sees the same dependencies.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "ytrelay",
		Usage:   "YouTube Music metadata and audio relay",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Extractor backend override (ytdlp or native)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level override (debug, info, warn, error)",
			},
		},
		Before:   r.Setup,
		Commands: r.register(),
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config and PORT)",
			},
		},
		Action: r.Serve,
	}
}

// searchCommand runs a track search without the server
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of results (1-20)",
				Value:   10,
			},
			formatFlag(),
			outputFlag("Write the listing to a file"),
		},
		Action: r.Search,
	}
}

// playlistCommand lists a playlist
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "List the tracks of a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			formatFlag(),
			outputFlag("Write the listing to a file"),
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Export as Markdown with cover art into this directory",
			},
		},
		Action: r.Playlist,
	}
}

// exportCommand writes several playlists to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export several playlists concurrently",
		ArgsUsage: "<url> [url...]",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Output directory (default: ytrelay_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent playlist fetches (at most 10)",
				Value: 3,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playlist fetches per second",
				Value: 2,
			},
		},
		Action: r.Export,
	}
}

// streamCommand prints the metadata and direct URL of a video
func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Show stream metadata and the direct media URL",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "video_id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Stream,
	}
}

// proxyCommand relays the audio of a video to a file or stdout
func proxyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "proxy",
		Usage: "Relay the audio of a video to a file",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "video_id"},
		},
		Flags: []cli.Flag{
			outputFlag("Destination file (- for stdout)"),
		},
		Action: r.Proxy,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the file (defaults to --config)",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}

// statusCommand checks a running relay
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check the health of a running relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Base URL of the relay",
				Value: "http://localhost:8000",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, csv, md or txt",
		Value:   "json",
	}
}

func outputFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   usage,
	}
}
