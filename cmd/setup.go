package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/repositories"
	"github.com/marmottus/tidal-bot/internal/shared"
)

// Setup creates the config file from the template and initializes the search
// cache database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	config := r.config
	if _, err := os.Stat(path); err == nil {
		r.logger.Info("config file already exists", "path", path)
		if config, err = shared.LoadConfig(path); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		if err := shared.CreateConfigFile(path); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", path)
		r.writePlain("✓ Config template written to %s\n", path)
		r.writePlain("  Fill in credentials.spotify.access_token and credentials.tidal.access_token.\n")

		if config, err = shared.LoadConfig(path); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	if config.Database.Path == "" {
		r.logger.Info("no database path configured, skipping cache setup")
		return nil
	}

	r.logger.Info("initializing search cache", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if _, err := repositories.NewTrackCache(db, r.logger); err != nil {
		return fmt.Errorf("failed to initialize search cache: %w", err)
	}

	r.writePlain("✓ Search cache ready at %s\n", config.Database.Path)
	return nil
}
