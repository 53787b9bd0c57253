// Package repositories implements SQLite persistence for cached track metadata and the saved queue.
//
// Key Implementations:
//   - [TrackRepository] : metadata cache rows keyed by canonical URI, with soft deletes
//   - [TrackCacheAdapter] : the metadata loader's store, backed by [TrackRepository]
//   - [QueueRepository] : the saved queue as an ordered list of URIs
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
