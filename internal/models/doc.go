// Package models defines the catalog-neutral entities shared by every other
// package: [Track], [Album], [Playlist] and the per-merge
// [AddedTracksResult].
//
// The package also owns track identity. Catalogs assign their own opaque IDs,
// so cross-catalog matching relies on [Track.Equal], a multi-stage fuzzy
// predicate built on ISRCs, durations, normalized artist names and album
// name prefixes. [DeduplicateTracks] applies the same predicate to collapse
// duplicates in a fetched listing.
package models
