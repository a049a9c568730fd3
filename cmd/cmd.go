// CLI command definitions
package main

import (
	"github.com/urfave/cli/v3"
)

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the search cache",
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

func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Usage:   "Spotify source operations",
		Aliases: []string{"sp"},
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List playlists with their track counts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only list playlists whose name starts with this prefix",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

func tidalCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tidal",
		Usage:   "Tidal destination operations",
		Aliases: []string{"td"},
		Commands: []*cli.Command{
			{
				Name:  "folders",
				Usage: "List playlist folders",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.TidalFolders,
			},
			{
				Name:  "playlists",
				Usage: "List playlists in a folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "folder",
						Usage: "Folder name (defaults to the root folder)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.TidalPlaylists,
			},
		},
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Merge matching Spotify playlists into Tidal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Only sync playlists whose name starts with this prefix",
				Value: r.config.Sync.PlaylistPrefix,
			},
			&cli.StringFlag{
				Name:  "folder",
				Usage: "Destination folder the playlists are created under",
				Value: r.config.Sync.ParentFolder,
			},
			&cli.BoolFlag{
				Name:  "reorder",
				Usage: "Mirror source track ordering after merging",
				Value: r.config.Sync.Reorder,
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: text, markdown or json",
				Value: "text",
			},
		},
		Action: r.SyncRun,
	}
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Search cache management",
		Commands: []*cli.Command{
			{
				Name:   "info",
				Usage:  "Show the number of cached search results",
				Action: r.CacheInfo,
			},
			{
				Name:   "clear",
				Usage:  "Drop all cached search results",
				Action: r.CacheClear,
			},
		},
	}
}
