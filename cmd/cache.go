package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/shared"
)

// CacheInfo prints the number of cached search results.
func (r *Runner) CacheInfo(ctx context.Context, cmd *cli.Command) error {
	if r.cache == nil {
		return fmt.Errorf("%w: search cache not initialized, set database.path", shared.ErrServiceUnavailable)
	}

	size, err := r.cache.Size()
	if err != nil {
		return fmt.Errorf("failed to read cache size: %w", err)
	}

	r.writePlain("Cached search results: %d\n", size)
	return nil
}

// CacheClear drops all cached search results.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if r.cache == nil {
		return fmt.Errorf("%w: search cache not initialized, set database.path", shared.ErrServiceUnavailable)
	}

	if err := r.cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("search cache cleared")
	r.writePlain("✓ Search cache cleared\n")
	return nil
}
