// package services defines the catalog collaborator interfaces and their
// concrete clients
package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/marmottus/tidal-bot/internal/fetch"
	"github.com/marmottus/tidal-bot/internal/models"
)

// Folder is a handle to a playlist folder in the destination catalog.
type Folder struct {
	ID   string
	Name string
}

// PlaylistRef is a handle to a remote playlist. Unlike [models.Playlist] it
// carries no tracks; it identifies the playlist for follow-up operations.
type PlaylistRef struct {
	ID          string
	Name        string
	Description string
	Public      bool
}

// Source is a read-only catalog that playlists are synced from.
type Source interface {
	// Playlists lists the account's playlists with their full ordered,
	// deduplicated track listings. A non-nil filter restricts the result
	// to playlists whose name it accepts.
	Playlists(ctx context.Context, filter func(name string) bool) ([]models.Playlist, error)

	// Name returns the catalog name for logs and reports.
	Name() string
}

// Destination is a read/write catalog that playlists are synced into.
// Operations may fail transiently; callers route them through the fetch
// package's retry wrapper. The two full-listing operations are the
// exception: implementations own their pagination and retry internally,
// so that end-of-data detection runs against raw wire pages rather than
// whatever subset of a page survives parsing.
type Destination interface {
	// RootFolder returns the account's root playlist folder.
	RootFolder(ctx context.Context) (Folder, error)

	// Folders lists the folders of the account's playlist hierarchy.
	Folders(ctx context.Context) ([]Folder, error)

	// CreateFolder creates a playlist folder under the root.
	CreateFolder(ctx context.Context, name string) (Folder, error)

	// FolderPlaylists lists all playlists inside a folder.
	FolderPlaylists(ctx context.Context, folderID string) ([]PlaylistRef, error)

	// CreatePlaylist creates a playlist inside the given folder.
	CreatePlaylist(ctx context.Context, name, description, folderID string) (PlaylistRef, error)

	// PlaylistTracks lists all tracks of a playlist in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// EditDescription replaces a playlist's description.
	EditDescription(ctx context.Context, playlistID, description string) error

	// SetPublic makes a playlist publicly visible.
	SetPublic(ctx context.Context, playlistID string) error

	// AddByISRC adds the recording identified by isrc to a playlist.
	AddByISRC(ctx context.Context, playlistID, isrc string) error

	// SearchTracks runs a free-text track search and returns the ordered
	// candidate list.
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)

	// SetTrackOrder re-sequences a playlist to match trackIDs exactly.
	SetTrackOrder(ctx context.Context, playlistID string, trackIDs []string) error

	// Name returns the catalog name for logs and reports.
	Name() string
}

// classifyStatus turns an unexpected HTTP status into an error, marking rate
// limits and server-side failures as transient so the retry wrapper picks
// them up.
func classifyStatus(service string, status int) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("%s API status %d: %w", service, status, fetch.ErrTransient)
	}
	return fmt.Errorf("%s API error: status %d", service, status)
}

// classifyRequestError marks network-level failures as transient.
func classifyRequestError(service string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s request failed: %v: %w", service, err, fetch.ErrTransient)
	}
	return fmt.Errorf("%s request failed: %w", service, err)
}
