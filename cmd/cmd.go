// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// authCommand handles credential lifecycle operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage provider credentials",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authenticate via the browser",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-authenticate even when already logged in",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear stored credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show authentication state",
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Renew the access token",
				Action: r.AuthRefresh,
			},
		},
	}
}

// queueCommand handles song request queue operations
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Song request queue operations",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show the current queue",
				Action: r.QueueList,
			},
			{
				Name:  "add",
				Usage: "Request a song by search query or URL",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Action: r.QueueAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a queued entry by id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.QueueRemove,
			},
			{
				Name:  "promote",
				Usage: "Move a queued entry to the front",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.QueuePromote,
			},
			{
				Name:  "watch",
				Usage: "Poll the queue and print changes",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Seconds between fetches, defaults to the stored auto-refresh interval",
					},
				},
				Action: r.QueueWatch,
			},
		},
	}
}

// playerCommand handles playback controls
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "player",
		Usage: "Playback controls",
		Commands: []*cli.Command{
			{
				Name:   "play",
				Usage:  "Resume playback",
				Action: r.PlayerPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlayerPause,
			},
			{
				Name:   "skip",
				Usage:  "Skip the current song",
				Action: r.PlayerSkip,
			},
		},
	}
}

// srCommand handles song request settings
func srCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sr",
		Usage: "Song request settings",
		Commands: []*cli.Command{
			{
				Name:   "enable",
				Usage:  "Accept new song requests",
				Action: r.SREnable,
			},
			{
				Name:   "disable",
				Usage:  "Stop accepting song requests",
				Action: r.SRDisable,
			},
			{
				Name:  "volume",
				Usage: "Show or set the player volume",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "level",
					},
				},
				Action: r.SRVolume,
			},
		},
	}
}

// historyCommand handles the local song history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show songs seen in the queue",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum entries to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "export",
				Aliases: []string{"o"},
				Usage:   "Write entries to a CSV file instead of printing",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize config and the history database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}
