// Package services contains the remote catalog collaborators.
//
// [Source] is the read-only catalog playlists are synced from and [Destination]
// is the read/write catalog they are synced into; the sync engine only ever
// sees these interfaces. [SpotifyClient] and [TidalClient] are the concrete
// HTTP clients, both rate-limited and both classifying rate limits, server
// errors and network failures as transient so the fetch package can retry
// them.
package services
