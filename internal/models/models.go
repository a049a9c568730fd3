// package models defines the catalog-neutral data model for playlist syncing
package models

import (
	"fmt"
	"strings"
	"time"
)

// Album holds the album metadata attached to a track.
// Albums are value objects with no identity beyond their fields.
type Album struct {
	Name        string
	TotalTracks int
	Artists     []string
}

func (a Album) String() string {
	return fmt.Sprintf("Album: %s by %s (%d track(s))", a.Name, strings.Join(a.Artists, ", "), a.TotalTracks)
}

// Track represents a single recording fetched from either catalog.
//
// ID is the catalog-specific identifier and is only meaningful within the
// catalog the track was fetched from. ISRC is normalized to uppercase by the
// service clients and is treated as the strongest identity signal.
// Tracks are value objects; two Track values from different catalogs may
// denote the same recording, which [Track.Equal] decides.
type Track struct {
	ID       string
	ISRC     string
	Name     string
	Duration time.Duration
	Artists  []string
	Album    *Album
}

// FullName renders "Name - Artist1, Artist2" for logs and reports.
func (t Track) FullName() string {
	return fmt.Sprintf("%s - %s", t.Name, strings.Join(t.Artists, ", "))
}

func (t Track) String() string {
	mm := int(t.Duration.Minutes())
	ss := int(t.Duration.Seconds()) % 60

	output := fmt.Sprintf("Track: %s\n  ISRC: %s, ID: %s, Duration: %02d:%02d", t.FullName(), t.ISRC, t.ID, mm, ss)
	if t.Album != nil {
		output += fmt.Sprintf("\n  %s", t.Album)
	}

	return output
}

// Playlist is a snapshot of a playlist and its ordered tracks.
// Remote mutations happen through the sync engine, not through this value.
type Playlist struct {
	Name   string
	Tracks []Track
	URI    string
	Image  []byte
}

func (p Playlist) String() string {
	output := fmt.Sprintf("Playlist: %s - %d track(s)", p.Name, len(p.Tracks))
	if p.URI != "" {
		output += fmt.Sprintf("\n  URI: %s", p.URI)
	}

	for _, track := range p.Tracks {
		output += fmt.Sprintf("\n%s", track)
	}

	return output
}

// AddedTracksResult partitions the source tracks of a merge into their
// outcomes. Every source track supplied to a merge appears in exactly one of
// Added, Skipped, NotFound or AddErrors, exactly once.
//
// Tracks holds the tracks confirmed present in the destination after the
// merge (added and skipped entries, interleaved in source order) and is the
// input to reordering.
type AddedTracksResult struct {
	Added     []Track
	Skipped   []Track
	NotFound  []Track
	AddErrors []Track
	Tracks    []Track
}

// Total returns the number of source tracks the merge attempted.
func (r *AddedTracksResult) Total() int {
	return len(r.Added) + len(r.Skipped) + len(r.NotFound) + len(r.AddErrors)
}
