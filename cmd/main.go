package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/fetch"
	"github.com/marmottus/tidal-bot/internal/repositories"
	"github.com/marmottus/tidal-bot/internal/services"
	"github.com/marmottus/tidal-bot/internal/shared"
	"github.com/marmottus/tidal-bot/internal/tasks"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	if config.Logging.Level != "" {
		if level, err := log.ParseLevel(config.Logging.Level); err == nil {
			shared.SetLogLevel(logger, level)
		}
	}

	ctx := context.Background()
	retrier := fetch.NewRetrier(fetch.RetrierOpts{Logger: logger})

	var source services.Source
	if config.Credentials.Spotify.AccessToken != "" {
		client, err := services.NewSpotifyClient(ctx, services.SpotifyOpts{
			AccessToken: config.Credentials.Spotify.AccessToken,
			BaseURL:     config.Credentials.Spotify.BaseURL,
			Retrier:     retrier,
			Logger:      logger,
		})
		if err != nil {
			logger.Warn("failed to create spotify client", "error", err)
		} else {
			source = client
		}
	}

	var dest services.Destination
	if config.Credentials.Tidal.AccessToken != "" {
		client, err := services.NewTidalClient(ctx, services.TidalOpts{
			AccessToken: config.Credentials.Tidal.AccessToken,
			BaseURL:     config.Credentials.Tidal.BaseURL,
			Retrier:     retrier,
			Logger:      logger,
		})
		if err != nil {
			logger.Warn("failed to create tidal client", "error", err)
		} else {
			dest = client
		}
	}

	var db *sql.DB
	var cache *repositories.TrackCache
	if config.Database.Path != "" {
		if opened, err := shared.NewDatabase(config.Database.Path); err != nil {
			logger.Warn("search cache unavailable", "path", config.Database.Path, "error", err)
		} else if created, err := repositories.NewTrackCache(opened, logger); err != nil {
			logger.Warn("search cache unavailable", "path", config.Database.Path, "error", err)
			opened.Close()
		} else {
			db = opened
			cache = created
		}
	}
	if db != nil {
		defer db.Close()
	}

	var engine *tasks.SyncEngine
	if dest != nil {
		var engineCache tasks.SearchCache
		if cache != nil {
			engineCache = cache
		}
		engine, _ = tasks.NewSyncEngine(tasks.SyncEngineOpts{
			Destination: dest,
			Retrier:     retrier,
			Cache:       engineCache,
			Logger:      logger,
		})
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Source: source,
		Dest:   dest,
		Engine: engine,
		Cache:  cache,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "tidal-bot",
		Usage:    "Sync Spotify playlists into Tidal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
