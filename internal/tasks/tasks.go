// package tasks implements playlist reconciliation against a destination
// catalog.
//
// The core abstraction is SyncEngine, which merges source track lists into
// destination playlists and mirrors source ordering onto them.
// Operations emit progress updates via channels for non-blocking status
// reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/marmottus/tidal-bot/internal/fetch"
	"github.com/marmottus/tidal-bot/internal/models"
	"github.com/marmottus/tidal-bot/internal/services"
	"github.com/marmottus/tidal-bot/internal/shared"
)

// SearchCache resolves previously matched tracks without a remote search.
//
// Lookup returns the cached destination-side track for a source ISRC, or
// false. Cache failures must degrade to a miss; they never abort a merge.
type SearchCache interface {
	Lookup(isrc string) (models.Track, bool)
	Store(isrc string, track models.Track) error
}

// MergeOpts names the destination playlist of a merge.
type MergeOpts struct {
	// PlaylistName is the destination playlist, created when absent.
	PlaylistName string

	// Description is written to the playlist when non-empty and different
	// from the current one.
	Description string

	// ParentFolder is the folder the playlist lives under, created when
	// absent. Empty uses the account root.
	ParentFolder string
}

// MergeOutcome is the result of a successful merge: the resolved playlist
// handle and the per-track classification.
type MergeOutcome struct {
	Playlist services.PlaylistRef
	Result   *models.AddedTracksResult
}

// SyncEngine reconciles source track lists into a destination catalog.
// It holds no mutable state across calls; merges against one destination
// playlist must not run concurrently, since each merge reads existing tracks
// and then conditionally writes.
type SyncEngine struct {
	dest    services.Destination
	retrier *fetch.Retrier
	cache   SearchCache
	logger  *log.Logger
}

// SyncEngineOpts configures a [SyncEngine].
type SyncEngineOpts struct {
	Destination services.Destination
	Retrier     *fetch.Retrier
	Cache       SearchCache // optional
	Logger      *log.Logger
}

// NewSyncEngine creates a SyncEngine for the given destination catalog.
func NewSyncEngine(opts SyncEngineOpts) (*SyncEngine, error) {
	if opts.Destination == nil {
		return nil, fmt.Errorf("%w: destination catalog not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Retrier == nil {
		opts.Retrier = fetch.NewRetrier(fetch.RetrierOpts{Logger: opts.Logger})
	}

	return &SyncEngine{
		dest:    opts.Destination,
		retrier: opts.Retrier,
		cache:   opts.Cache,
		logger:  opts.Logger.With("engine", "sync"),
	}, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SyncEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// resolveFolder finds the folder a merge targets, creating it when a named
// folder does not exist yet. An empty name resolves to the account root.
func (e *SyncEngine) resolveFolder(ctx context.Context, parentFolder string) (services.Folder, error) {
	if parentFolder == "" {
		folder, err := fetch.Retry(ctx, e.retrier, "root folder", e.dest.RootFolder)
		if err != nil {
			return services.Folder{}, fmt.Errorf("failed to fetch root folder: %w", err)
		}
		return folder, nil
	}

	folders, err := fetch.Retry(ctx, e.retrier, "list folders", e.dest.Folders)
	if err != nil {
		return services.Folder{}, fmt.Errorf("failed to fetch folders: %w", err)
	}

	for _, folder := range folders {
		if folder.Name == parentFolder {
			return folder, nil
		}
	}

	e.logger.Info("folder not found, creating it", "folder", parentFolder)

	folder, err := fetch.Retry(ctx, e.retrier, "create folder", func(ctx context.Context) (services.Folder, error) {
		return e.dest.CreateFolder(ctx, parentFolder)
	})
	if err != nil {
		return services.Folder{}, fmt.Errorf("failed to create folder %s: %w", parentFolder, err)
	}

	return folder, nil
}

// resolvePlaylist finds the destination playlist inside folder, creating it
// when absent. For an existing playlist the returned slice holds its current
// tracks, which the merge deduplicates against.
func (e *SyncEngine) resolvePlaylist(ctx context.Context, folder services.Folder, opts MergeOpts) (services.PlaylistRef, []models.Track, bool, error) {
	refs, err := e.dest.FolderPlaylists(ctx, folder.ID)
	if err != nil {
		return services.PlaylistRef{}, nil, false, fmt.Errorf("failed to list playlists in %s: %w", folder.Name, err)
	}

	var found *services.PlaylistRef
	for _, ref := range refs {
		if ref.Name == opts.PlaylistName {
			found = &ref
			break
		}
	}

	if found == nil {
		e.logger.Info("playlist not found, creating it", "playlist", opts.PlaylistName)

		created, err := fetch.Retry(ctx, e.retrier, "create playlist", func(ctx context.Context) (services.PlaylistRef, error) {
			return e.dest.CreatePlaylist(ctx, opts.PlaylistName, opts.Description, folder.ID)
		})
		if err != nil {
			return services.PlaylistRef{}, nil, false, fmt.Errorf("failed to create playlist %s: %w", opts.PlaylistName, err)
		}

		return created, nil, true, nil
	}

	e.logger.Info("fetching tracks from playlist", "playlist", opts.PlaylistName)

	existing, err := e.dest.PlaylistTracks(ctx, found.ID)
	if err != nil {
		return services.PlaylistRef{}, nil, false, fmt.Errorf("failed to fetch tracks of %s: %w", found.Name, err)
	}

	return *found, existing, false, nil
}

// syncMetadata brings the playlist description and visibility in line with
// the merge options. Both updates are no-ops when already correct and fatal
// when they fail.
func (e *SyncEngine) syncMetadata(ctx context.Context, playlist services.PlaylistRef, opts MergeOpts) error {
	if opts.Description != "" && opts.Description != playlist.Description {
		e.logger.Info("updating playlist description", "playlist", playlist.Name)

		_, err := fetch.Retry(ctx, e.retrier, "edit description", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.dest.EditDescription(ctx, playlist.ID, opts.Description)
		})
		if err != nil {
			return fmt.Errorf("failed to update description of %s: %w", playlist.Name, err)
		}
	}

	if !playlist.Public {
		e.logger.Info("setting playlist public", "playlist", playlist.Name)

		_, err := fetch.Retry(ctx, e.retrier, "set public", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.dest.SetPublic(ctx, playlist.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to set %s public: %w", playlist.Name, err)
		}
	}

	return nil
}

// searchTrack looks for a destination-side candidate equal to track, going
// through the cache first. The query is built from the track name and its
// artists.
func (e *SyncEngine) searchTrack(ctx context.Context, track models.Track) (models.Track, bool) {
	if e.cache != nil {
		if cached, ok := e.cache.Lookup(track.ISRC); ok {
			e.logger.Debug("search cache hit", "track", track.FullName())
			return cached, true
		}
	}

	query := track.Name + " " + strings.Join(track.Artists, " ")
	e.logger.Debug("searching destination catalog", "query", query)

	candidates, err := fetch.Retry(ctx, e.retrier, "search tracks", func(ctx context.Context) ([]models.Track, error) {
		return e.dest.SearchTracks(ctx, query)
	})
	if err != nil {
		e.logger.Error("error searching for track", "track", track.FullName(), "err", err)
		return models.Track{}, false
	}

	for _, candidate := range candidates {
		if candidate.Equal(track) {
			if e.cache != nil {
				if err := e.cache.Store(track.ISRC, candidate); err != nil {
					e.logger.Warn("failed to cache search result", "track", track.FullName(), "err", err)
				}
			}
			return candidate, true
		}
	}

	return models.Track{}, false
}

// Merge reconciles sourceTracks into the destination playlist named by opts.
//
// The destination folder and playlist are resolved (and created when
// absent), the description and visibility are synced, and every source track
// is classified into exactly one of added, skipped, not-found or add-error.
// Structural failures (folder, playlist, metadata) abort the merge;
// per-track outcomes never do.
func (e *SyncEngine) Merge(ctx context.Context, sourceTracks []models.Track, opts MergeOpts, progress chan<- ProgressUpdate) (*MergeOutcome, error) {
	if opts.PlaylistName == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	e.logger.Info("merging tracks into destination playlist",
		"playlist", opts.PlaylistName, "tracks", len(sourceTracks), "destination", e.dest.Name())

	e.sendProgress(progress, resolveFolderUpdate(opts.ParentFolder))
	folder, err := e.resolveFolder(ctx, opts.ParentFolder)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, resolvePlaylistUpdate(opts.PlaylistName))
	playlist, existing, created, err := e.resolvePlaylist(ctx, folder, opts)
	if err != nil {
		return nil, err
	}

	if created {
		// The playlist was created with the requested description; only
		// visibility may still need syncing.
		playlist.Description = opts.Description
	}

	if err := e.syncMetadata(ctx, playlist, opts); err != nil {
		return nil, err
	}

	result := &models.AddedTracksResult{}

	for i, track := range sourceTracks {
		e.sendProgress(progress, reconcileTrackUpdate(i+1, len(sourceTracks), track))

		if existingTrack, ok := findEqual(existing, track); ok {
			e.logger.Info("track already in playlist, skipping",
				"track", existingTrack.FullName(), "playlist", playlist.Name)
			result.Skipped = append(result.Skipped, existingTrack)
			result.Tracks = append(result.Tracks, existingTrack)
			continue
		}

		candidate, ok := e.searchTrack(ctx, track)
		if !ok {
			e.logger.Warn("track not found in destination catalog",
				"track", track.FullName(), "playlist", playlist.Name)
			result.NotFound = append(result.NotFound, track)
			continue
		}

		e.logger.Info("adding track to playlist",
			"track", candidate.FullName(), "playlist", playlist.Name)

		_, err := fetch.Retry(ctx, e.retrier, "add by ISRC", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.dest.AddByISRC(ctx, playlist.ID, candidate.ISRC)
		})
		if err != nil {
			e.logger.Error("error adding track to playlist",
				"track", candidate.FullName(), "playlist", playlist.Name, "err", err)
			result.AddErrors = append(result.AddErrors, candidate)
			continue
		}

		result.Added = append(result.Added, candidate)
		result.Tracks = append(result.Tracks, candidate)
	}

	return &MergeOutcome{Playlist: playlist, Result: result}, nil
}

// Reorganize re-sequences the destination playlist to match desired exactly,
// comparing destination-side track IDs positionally. It reports whether a
// reorder was issued. Reorganize never adds or removes tracks; its input is
// the accumulated, already-reconciled track order from one or more merges.
func (e *SyncEngine) Reorganize(ctx context.Context, playlist services.PlaylistRef, desired []models.Track, progress chan<- ProgressUpdate) (bool, error) {
	e.sendProgress(progress, reorderUpdate(playlist.Name))

	current, err := e.dest.PlaylistTracks(ctx, playlist.ID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch tracks of %s: %w", playlist.Name, err)
	}

	if sameOrder(current, desired) {
		e.logger.Info("playlist already in desired order", "playlist", playlist.Name)
		return false, nil
	}

	ids := make([]string, len(desired))
	for i, track := range desired {
		ids[i] = track.ID
	}

	e.logger.Info("reordering playlist", "playlist", playlist.Name, "tracks", len(ids))

	_, err = fetch.Retry(ctx, e.retrier, "set track order", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.dest.SetTrackOrder(ctx, playlist.ID, ids)
	})
	if err != nil {
		return false, fmt.Errorf("failed to reorder %s: %w", playlist.Name, err)
	}

	return true, nil
}

func findEqual(tracks []models.Track, track models.Track) (models.Track, bool) {
	for _, t := range tracks {
		if t.Equal(track) {
			return t, true
		}
	}
	return models.Track{}, false
}

func sameOrder(current, desired []models.Track) bool {
	if len(current) != len(desired) {
		return false
	}
	for i := range current {
		if current[i].ID != desired[i].ID {
			return false
		}
	}
	return true
}
