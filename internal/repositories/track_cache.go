// package repositories provides the persistence layer for search results.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/marmottus/tidal-bot/internal/models"
	"github.com/marmottus/tidal-bot/internal/shared"
)

const trackCacheSchema = `
CREATE TABLE IF NOT EXISTS track_cache (
	id TEXT PRIMARY KEY,
	source_isrc TEXT NOT NULL UNIQUE,
	track_id TEXT NOT NULL,
	track_isrc TEXT NOT NULL,
	track_name TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	artists TEXT NOT NULL,
	album_name TEXT,
	album_total_tracks INTEGER,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_track_cache_source_isrc ON track_cache(source_isrc);
`

// artistSeparator joins artist names for storage. ASCII unit separator, so
// names containing commas survive the round trip.
const artistSeparator = "\x1f"

// TrackCache persists resolved search matches keyed by source ISRC, so
// repeated sync cycles skip remote searches for tracks already matched.
//
// Implements the sync engine's SearchCache. Lookup failures degrade to a
// cache miss.
type TrackCache struct {
	db     *sql.DB
	logger *log.Logger
}

// NewTrackCache creates a TrackCache on db, creating its table when absent.
func NewTrackCache(db *sql.DB, logger *log.Logger) (*TrackCache, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	if _, err := db.Exec(trackCacheSchema); err != nil {
		return nil, fmt.Errorf("failed to create track cache schema: %w", err)
	}

	return &TrackCache{db: db, logger: logger.With("repository", "track_cache")}, nil
}

// Lookup returns the cached destination track for a source ISRC.
func (c *TrackCache) Lookup(isrc string) (models.Track, bool) {
	row := c.db.QueryRow(`
		SELECT track_id, track_isrc, track_name, duration_seconds, artists, album_name, album_total_tracks
		FROM track_cache WHERE source_isrc = ?`, strings.ToUpper(isrc))

	var (
		track       models.Track
		seconds     int
		artists     string
		albumName   sql.NullString
		albumTracks sql.NullInt64
	)

	err := row.Scan(&track.ID, &track.ISRC, &track.Name, &seconds, &artists, &albumName, &albumTracks)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, false
	}
	if err != nil {
		c.logger.Warn("track cache lookup failed", "isrc", isrc, "err", err)
		return models.Track{}, false
	}

	track.Duration = time.Duration(seconds) * time.Second
	if artists != "" {
		track.Artists = strings.Split(artists, artistSeparator)
	}
	if albumName.Valid && albumName.String != "" {
		track.Album = &models.Album{
			Name:        albumName.String,
			TotalTracks: int(albumTracks.Int64),
		}
	}

	return track, true
}

// Store caches a resolved destination track for a source ISRC. Conflicting
// entries are replaced.
func (c *TrackCache) Store(isrc string, track models.Track) error {
	var (
		albumName   sql.NullString
		albumTracks sql.NullInt64
	)
	if track.Album != nil {
		albumName = sql.NullString{String: track.Album.Name, Valid: true}
		albumTracks = sql.NullInt64{Int64: int64(track.Album.TotalTracks), Valid: true}
	}

	_, err := c.db.Exec(`
		INSERT INTO track_cache (id, source_isrc, track_id, track_isrc, track_name, duration_seconds, artists, album_name, album_total_tracks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_isrc) DO UPDATE SET
			track_id = excluded.track_id,
			track_isrc = excluded.track_isrc,
			track_name = excluded.track_name,
			duration_seconds = excluded.duration_seconds,
			artists = excluded.artists,
			album_name = excluded.album_name,
			album_total_tracks = excluded.album_total_tracks`,
		shared.GenerateID(),
		strings.ToUpper(isrc),
		track.ID,
		track.ISRC,
		track.Name,
		int(track.Duration.Seconds()),
		strings.Join(track.Artists, artistSeparator),
		albumName,
		albumTracks,
	)
	if err != nil {
		return fmt.Errorf("failed to cache track: %w", err)
	}

	return nil
}

// Size returns the number of cached entries.
func (c *TrackCache) Size() (int, error) {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM track_cache`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count track cache: %w", err)
	}
	return count, nil
}

// Clear removes every cached entry.
func (c *TrackCache) Clear() error {
	if _, err := c.db.Exec(`DELETE FROM track_cache`); err != nil {
		return fmt.Errorf("failed to clear track cache: %w", err)
	}
	return nil
}
