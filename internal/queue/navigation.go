package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spotiq/internal/shared"
)

// Next loads the entry after the loaded one, or the second entry when nothing is loaded.
//
// With skipUnavailable, unplayable tracks are passed over without ever becoming the loaded entry. Tracks whose
// metadata cannot be fetched and collections that fail to expand are always passed over. A collection reached
// on the way is expanded and navigation continues into its tracks. endReached reports that no further entry
// could be loaded; the loaded entry is then unchanged.
func (q *Queue) Next(ctx context.Context, skipUnavailable bool) (endReached bool, err error) {
	return q.navigate(ctx, 1, skipUnavailable)
}

// Previous is [Queue.Next] moving towards the top of the queue.
func (q *Queue) Previous(ctx context.Context, skipUnavailable bool) (topReached bool, err error) {
	return q.navigate(ctx, -1, skipUnavailable)
}

// navigate walks from the loaded entry in steps of step.
//
// The position is re-derived from the identity of the last entry stepped past after every RPC, so concurrent
// expansions and removals never leave it pointing at a stale index. When that entry was removed meanwhile, the
// walk resumes from the slot it last occupied.
func (q *Queue) navigate(ctx context.Context, step int, skip bool) (bool, error) {
	q.mu.Lock()
	var cursor Entry
	idx, lastPos := step, -1
	if q.loaded != nil {
		cursor = q.loaded
		lastPos = q.indexLocked(cursor)
	}
	q.mu.Unlock()

	visited := make(map[Entry]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		q.mu.Lock()
		if cursor != nil {
			switch pos := q.indexLocked(cursor); {
			case pos >= 0:
				idx = pos + step
			case lastPos < 0:
				q.mu.Unlock()
				return false, fmt.Errorf("%w: %s removed during navigation", shared.ErrNotQueued, cursor.Resource())
			case step > 0:
				// The entry that followed the removed one has shifted into its slot.
				idx = lastPos
			default:
				idx = lastPos - 1
			}
		}
		if idx < 0 || idx >= len(q.entries) {
			q.mu.Unlock()
			return true, nil
		}
		candidate := q.entries[idx]
		lastPos = idx
		q.mu.Unlock()

		if _, seen := visited[candidate]; seen {
			return true, nil
		}
		visited[candidate] = struct{}{}

		switch e := candidate.(type) {
		case *TrackEntry:
			err := e.LoadTrack(ctx)
			switch {
			case err == nil:
				return false, nil
			case ctx.Err() != nil:
				return false, err
			case errors.Is(err, shared.ErrTrackUnavailable):
				if !skip {
					return false, err
				}
				q.logger.Debug("skipping unavailable track", "uri", e.id)
			case errors.Is(err, shared.ErrMetadataFetch):
				q.logger.Debug("skipping track without metadata", "uri", e.id, "error", err)
			case errors.Is(err, shared.ErrNotQueued):
				q.logger.Debug("skipping track removed while loading", "uri", e.id)
			default:
				return false, err
			}
			cursor = e
		case *CollectionEntry:
			err := e.Expand(ctx)
			switch {
			case err == nil:
				// The tracks now sit where the collection was; the cursor steps into them.
				continue
			case ctx.Err() != nil:
				return false, err
			case errors.Is(err, shared.ErrCollectionExpand):
				q.logger.Debug("skipping collection", "uri", e.id, "error", err)
			default:
				return false, err
			}
			cursor = e
		}
	}
}
