package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/marmottus/tidal-bot/internal/formatter"
	"github.com/marmottus/tidal-bot/internal/models"
	"github.com/marmottus/tidal-bot/internal/shared"
	"github.com/marmottus/tidal-bot/internal/tasks"
)

// syncDescription is written to destination playlists so their provenance is
// visible in the Tidal UI.
func syncDescription(sourceName, uri string) string {
	if uri == "" {
		return ""
	}
	return fmt.Sprintf("Playlist synced from %s %s", sourceName, uri)
}

// prefixFilter restricts playlist listings to names starting with prefix.
// An empty prefix accepts everything.
func prefixFilter(prefix string) func(name string) bool {
	if prefix == "" {
		return nil
	}
	return func(name string) bool {
		return strings.HasPrefix(name, prefix)
	}
}

// reportProgress prints engine progress updates as they arrive.
func (r *Runner) reportProgress(progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		switch update.Phase {
		case tasks.ResolveFolder, tasks.ResolvePlaylist:
			r.writePlain("📁 %s\n", update.Message)
		case tasks.Reconcile:
			r.writePlain("   %s\n", update.Message)
		case tasks.Reorder:
			r.writePlain("🔀 %s\n", update.Message)
		}
	}
}

// syncPlaylist merges one source playlist into the destination and optionally
// mirrors its track order.
func (r *Runner) syncPlaylist(ctx context.Context, playlist models.Playlist, folder string, reorder bool) (*tasks.MergeOutcome, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		r.reportProgress(progressCh)
		close(done)
	}()
	// Drain the progress printer before anything else writes, so the report
	// never interleaves with late progress lines.
	defer func() {
		close(progressCh)
		<-done
	}()

	outcome, err := r.engine.Merge(ctx, playlist.Tracks, tasks.MergeOpts{
		PlaylistName: playlist.Name,
		Description:  syncDescription(r.source.Name(), playlist.URI),
		ParentFolder: folder,
	}, progressCh)
	if err != nil {
		return nil, err
	}

	if reorder {
		changed, err := r.engine.Reorganize(ctx, outcome.Playlist, outcome.Result.Tracks, progressCh)
		if err != nil {
			return nil, fmt.Errorf("failed to reorder playlist: %w", err)
		}
		if changed {
			r.logger.Info("playlist reordered", "playlist", outcome.Playlist.Name)
		}
	}

	return outcome, nil
}

// printReport renders a merge outcome in the requested format.
func (r *Runner) printReport(playlist models.Playlist, outcome *tasks.MergeOutcome, format string) error {
	report := formatter.Report{
		Playlist: outcome.Playlist.Name,
		URI:      playlist.URI,
		Result:   outcome.Result,
	}

	switch format {
	case "json":
		data, err := formatter.ToJSON(report)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		r.writePlain("%s\n", data)
	case "markdown":
		r.writePlain("%s", formatter.ToMarkdown(report))
	default:
		r.writePlain("%s", formatter.ToText(report))
	}

	return nil
}

// SyncRun merges every matching source playlist into the destination catalog.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	source, err := r.requireSource()
	if err != nil {
		return err
	}
	if _, err := r.requireDest(); err != nil {
		return err
	}
	if r.engine == nil {
		return fmt.Errorf("%w: sync engine not initialized", shared.ErrServiceUnavailable)
	}

	prefix := cmd.String("prefix")
	folder := cmd.String("folder")
	reorder := cmd.Bool("reorder")
	format := cmd.String("format")

	r.logger.Info("starting sync", "prefix", prefix, "folder", folder, "reorder", reorder)
	r.writePlain("Fetching %s playlists...\n", source.Name())

	playlists, err := source.Playlists(ctx, prefixFilter(prefix))
	if err != nil {
		return fmt.Errorf("failed to list source playlists: %w", err)
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists matched prefix %q.\n", prefix)
		return nil
	}

	var failed []string
	for _, playlist := range playlists {
		r.writePlainln("Syncing %s (%d tracks)", playlist.Name, len(playlist.Tracks))

		outcome, err := r.syncPlaylist(ctx, playlist, folder, reorder)
		if err != nil {
			r.logger.Error("sync failed", "playlist", playlist.Name, "error", err)
			r.writePlain("✗ %s: %v\n", playlist.Name, err)
			failed = append(failed, playlist.Name)
			continue
		}

		r.writePlain("\n")
		if err := r.printReport(playlist, outcome, format); err != nil {
			return err
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Playlists synced: %d/%d\n", len(playlists)-len(failed), len(playlists))

	if len(failed) > 0 {
		return fmt.Errorf("failed to sync %d playlist(s): %s", len(failed), strings.Join(failed, ", "))
	}

	return nil
}
