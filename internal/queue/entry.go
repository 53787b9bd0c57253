package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
)

// Entry is one row of the queue: a [*TrackEntry] or a [*CollectionEntry].
type Entry interface {
	Resource() models.ResourceID
	DisplayName() string
	DisplayDuration() string
	// IsLoaded reports whether the entry is the queue's loaded entry.
	IsLoaded() bool
	// OnVisible is called by the UI when the entry's row becomes visible.
	OnVisible(ctx context.Context)
	Play(ctx context.Context) error

	entry()
}

// TrackState is the metadata lifecycle of a [*TrackEntry].
type TrackState int

const (
	TrackUnloaded TrackState = iota
	TrackLoading
	TrackLoaded
	TrackFailed
)

func (s TrackState) String() string {
	switch s {
	case TrackLoading:
		return "loading"
	case TrackLoaded:
		return "loaded"
	case TrackFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

// TrackEntry is a single track. Its fields are guarded by the owning queue's mutex.
type TrackEntry struct {
	q       *Queue
	id      models.ResourceID
	state   TrackState
	meta    models.TrackMetadata
	failure error
}

func (*TrackEntry) entry() {}

func (t *TrackEntry) Resource() models.ResourceID { return t.id }

// State returns the metadata state.
func (t *TrackEntry) State() TrackState {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.state
}

// Metadata returns the metadata once loaded.
func (t *TrackEntry) Metadata() (models.TrackMetadata, bool) {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.meta, t.state == TrackLoaded
}

// Err returns the last fetch failure, or nil.
func (t *TrackEntry) Err() error {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.failure
}

// Unavailable reports whether loaded metadata marks the track as unplayable.
func (t *TrackEntry) Unavailable() bool {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.state == TrackLoaded && t.meta.Unavailable
}

// DisplayName returns "artist - name", the failure text, or the URI while loading.
func (t *TrackEntry) DisplayName() string {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()

	switch t.state {
	case TrackLoaded:
		return t.meta.DisplayName()
	case TrackFailed:
		return t.failure.Error()
	default:
		return t.id.String()
	}
}

// DisplayDuration returns m:ss once loaded.
func (t *TrackEntry) DisplayDuration() string {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()

	if t.state != TrackLoaded {
		return ""
	}
	return t.meta.DisplayDuration()
}

func (t *TrackEntry) IsLoaded() bool {
	t.q.mu.Lock()
	defer t.q.mu.Unlock()
	return t.q.loaded == t
}

// OnVisible starts loading metadata in the background the first time it is called. A failed entry is only
// fetched again by [TrackEntry.EnsureMetadata], [TrackEntry.LoadTrack] or navigation.
func (t *TrackEntry) OnVisible(ctx context.Context) {
	t.q.mu.Lock()
	if t.state != TrackUnloaded {
		t.q.mu.Unlock()
		return
	}
	t.state = TrackLoading
	t.q.mu.Unlock()

	t.q.goBackground(func() {
		_, _ = t.EnsureMetadata(ctx)
	})
}

// EnsureMetadata loads metadata, joining a load already in flight. A failed entry retries.
func (t *TrackEntry) EnsureMetadata(ctx context.Context) (models.TrackMetadata, error) {
	t.q.mu.Lock()
	if t.state == TrackLoaded {
		meta := t.meta
		t.q.mu.Unlock()
		return meta, nil
	}
	t.state = TrackLoading
	t.q.mu.Unlock()

	meta, err := t.q.loader.Load(ctx, t.id)

	t.q.mu.Lock()
	defer t.q.mu.Unlock()

	if err != nil {
		if t.state == TrackLoaded {
			return t.meta, nil
		}
		t.state = TrackFailed
		t.failure = err
		return models.TrackMetadata{}, err
	}

	t.state = TrackLoaded
	t.meta = meta
	t.failure = nil
	return meta, nil
}

// LoadTrack makes the entry the queue's loaded entry and stages it in the player.
//
// Returns [shared.ErrTrackUnavailable] for unplayable tracks and the fetch error when metadata cannot be loaded;
// neither changes the loaded entry.
func (t *TrackEntry) LoadTrack(ctx context.Context) error {
	meta, err := t.EnsureMetadata(ctx)
	if err != nil {
		return err
	}
	if meta.Unavailable {
		return fmt.Errorf("%w: %s", shared.ErrTrackUnavailable, t.id)
	}
	return t.q.setLoaded(ctx, t, meta)
}

// Play loads the track and starts playback.
func (t *TrackEntry) Play(ctx context.Context) error {
	if err := t.LoadTrack(ctx); err != nil {
		return err
	}

	if err := t.q.player.Play(ctx); err != nil {
		return t.q.playbackFailed(err)
	}
	t.q.publish(ctx, events.Event{Type: events.PlayRequested})
	return nil
}

// CollectionState is the expansion lifecycle of a [*CollectionEntry].
type CollectionState int

const (
	CollectionPlaceholder CollectionState = iota
	CollectionExpanding
	CollectionExpanded
	CollectionExpandFailed
)

func (s CollectionState) String() string {
	switch s {
	case CollectionExpanding:
		return "expanding"
	case CollectionExpanded:
		return "expanded"
	case CollectionExpandFailed:
		return "failed"
	default:
		return "placeholder"
	}
}

// CollectionExpandError records a failed playlist or album expansion.
type CollectionExpandError struct {
	Resource models.ResourceID
	Cause    error
}

func (e *CollectionExpandError) Error() string {
	return fmt.Sprintf("Failed to load %s %s: %v", e.Resource.Kind, e.Resource.ID, e.Cause)
}

func (e *CollectionExpandError) Unwrap() []error {
	return []error{shared.ErrCollectionExpand, e.Cause}
}

// CollectionEntry is a playlist or album placeholder. Once expanded it is replaced by its tracks.
type CollectionEntry struct {
	q        *Queue
	id       models.ResourceID
	state    CollectionState
	failure  error
	done     chan struct{}
	children []*TrackEntry
}

func (*CollectionEntry) entry() {}

func (c *CollectionEntry) Resource() models.ResourceID { return c.id }

// State returns the expansion state.
func (c *CollectionEntry) State() CollectionState {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	return c.state
}

// Err returns the expansion failure, or nil.
func (c *CollectionEntry) Err() error {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()
	return c.failure
}

// DisplayName returns a loading message or the expansion failure.
func (c *CollectionEntry) DisplayName() string {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()

	if c.state == CollectionExpandFailed {
		return c.failure.Error()
	}
	return fmt.Sprintf("Loading %s %s...", c.id.Kind, c.id.ID)
}

func (c *CollectionEntry) DisplayDuration() string { return "" }

// IsLoaded is always false; collections never become the loaded entry.
func (c *CollectionEntry) IsLoaded() bool { return false }

// OnVisible starts the expansion in the background the first time it is called.
//
// When nothing is loaded once the tracks are spliced in, the first available one is loaded.
func (c *CollectionEntry) OnVisible(ctx context.Context) {
	c.q.mu.Lock()
	if c.state != CollectionPlaceholder {
		c.q.mu.Unlock()
		return
	}
	done, _ := c.beginLocked()
	c.q.mu.Unlock()

	c.q.goBackground(func() {
		c.run(ctx, done, true)
	})
}

// Expand resolves the collection and splices its tracks into the queue at the entry's current position.
//
// A concurrent expansion is joined. A failed collection retries. If the entry has been removed from the queue
// by the time the tracks arrive they are discarded.
func (c *CollectionEntry) Expand(ctx context.Context) error {
	c.q.mu.Lock()
	if c.state == CollectionExpanded {
		c.q.mu.Unlock()
		return nil
	}
	done, owner := c.beginLocked()
	c.q.mu.Unlock()

	if owner {
		c.run(ctx, done, false)
	} else {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return c.Err()
}

// Play expands the collection and plays its first playable track.
func (c *CollectionEntry) Play(ctx context.Context) error {
	if err := c.Expand(ctx); err != nil {
		return err
	}

	c.q.mu.Lock()
	children := append([]*TrackEntry(nil), c.children...)
	c.q.mu.Unlock()

	err := fmt.Errorf("%w: %s has no playable tracks", shared.ErrTrackUnavailable, c.id)
	for _, child := range children {
		if err = child.Play(ctx); err == nil || errors.Is(err, shared.ErrPlaybackCommand) {
			return err
		}
	}
	return err
}

// beginLocked moves the entry to expanding. owner is false when an expansion is already running.
func (c *CollectionEntry) beginLocked() (done chan struct{}, owner bool) {
	if c.state == CollectionExpanding {
		return c.done, false
	}
	c.state = CollectionExpanding
	c.failure = nil
	c.done = make(chan struct{})
	return c.done, true
}

func (c *CollectionEntry) run(ctx context.Context, done chan struct{}, autoLoad bool) {
	ids, err := c.q.expander.ExpandCollection(ctx, c.id)
	if err != nil {
		c.q.mu.Lock()
		c.state = CollectionExpandFailed
		c.failure = &CollectionExpandError{Resource: c.id, Cause: err}
		close(done)
		c.q.mu.Unlock()

		c.q.logger.Warn("collection expand failed", "uri", c.id, "error", err)
		return
	}

	children, spliced := c.q.splice(c, ids, done)
	if !spliced {
		c.q.logger.Debug("discarding expansion of removed collection", "uri", c.id)
		return
	}
	c.q.logger.Info("collection expanded", "uri", c.id, "tracks", len(children))

	if autoLoad {
		c.q.loadFirstAvailable(ctx, children)
	}
}
