// Package models defines domain entities and persistence interfaces for the spotiq queue engine.
//
// The package contains two categories of types:
//
// 1. Value types: immutable data passed between the queue, the loader and the RPC adapters
//   - [ResourceID] : typed Spotify identifier ({kind, id}) parsed from a URI or an open.spotify.com URL
//   - [Kind] : the resource kind (track, playlist, album)
//   - [TrackMetadata] : display metadata for a single track
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : cached track metadata keyed by canonical URI
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
