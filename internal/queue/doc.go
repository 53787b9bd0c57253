// Package queue implements the playlist queue engine.
//
// # Entries
//
// A queue holds an ordered list of [Entry] values. Entry is a closed sum type with two variants:
//   - [*TrackEntry] : a single track whose metadata is loaded lazily through the metadata loader
//   - [*CollectionEntry] : a playlist or album placeholder that replaces itself with its tracks once expanded
//
// Both variants react to [Entry.OnVisible]: the first notification starts a background load (tracks) or
// expansion (collections). Later notifications are no-ops.
//
// # Loaded Entry And Selection
//
// At most one [*TrackEntry] is the loaded entry, i.e. the track staged in the external player. Collections are
// never loaded and neither are tracks whose metadata reports them as unavailable. Selection is an ordered set of
// entries driven as a single anchor by the arrow keys.
//
// # Concurrency
//
// The [Queue] is the only mutator of its state. A single mutex guards entries, the loaded pointer, selection and
// per-entry state; it is never held across an RPC. Every operation that spans an RPC re-derives positions by
// entry identity afterwards, so concurrent expansions and navigation never act on a stale index.
//
// Visibility-triggered work runs in goroutines tracked by the queue; [Queue.Wait] blocks until they finish.
//
// # Bus Reactions
//
// [Queue.Listen] consumes the player channel of the event bus in delivery order:
//   - NextPressed : [Queue.Next] with skipping
//   - PreviousPressed : [Queue.Previous] with skipping
//   - UrlsDropped : [Queue.Clear] followed by [Queue.AddURLs]
//   - EndOfTrack : [Queue.Next] with skipping; at the end of the queue the player is stopped
//
// The queue publishes TrackLoaded, PlayRequested and EndOfQueueReached on the playlist channel.
//
// # Errors
//
// Parse, metadata and expansion failures stay local to the entry and show up as its display text.
// Playback command failures are handed to the [ErrorReporter].
package queue
