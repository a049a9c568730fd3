// Package tasks implements the reconciliation and reorder engines.
//
// [SyncEngine.Merge] makes a destination playlist contain every track of a
// source track list without duplicating tracks already present, resolving
// the destination folder and playlist on the way and classifying each source
// track as added, skipped, not found or failed. [SyncEngine.Reorganize]
// mirrors the accumulated source ordering onto the destination playlist.
//
// The engine is service-agnostic: it only talks to [services.Destination]
// and routes every remote call through the fetch package's retry wrapper.
package tasks
