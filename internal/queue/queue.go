package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotiq/internal/events"
	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/services"
	"github.com/desertthunder/spotiq/internal/shared"
)

// MetadataLoader resolves track metadata with per-identifier deduplication.
//
// Implemented by [loader.Loader].
type MetadataLoader interface {
	Load(ctx context.Context, id models.ResourceID) (models.TrackMetadata, error)
}

// ErrorReporter receives playback command failures.
type ErrorReporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to [ErrorReporter].
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// Options configures a [Queue]. Loader, Expander and Player are required.
type Options struct {
	Loader   MetadataLoader
	Expander services.CollectionExpander
	Player   services.PlaybackController
	// Bus defaults to an in-memory bus.
	Bus events.Bus
	// Reporter defaults to logging at error level.
	Reporter ErrorReporter
	Logger   *log.Logger
}

// Queue is the ordered, navigable playlist.
type Queue struct {
	loader   MetadataLoader
	expander services.CollectionExpander
	player   services.PlaybackController
	bus      events.Bus
	reporter ErrorReporter
	logger   *log.Logger

	mu       sync.Mutex
	entries  []Entry
	loaded   *TrackEntry
	selected []Entry

	wg sync.WaitGroup
}

// New creates an empty queue.
func New(opts Options) *Queue {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "queue")

	q := &Queue{
		loader:   opts.Loader,
		expander: opts.Expander,
		player:   opts.Player,
		bus:      opts.Bus,
		reporter: opts.Reporter,
		logger:   logger,
	}
	if q.bus == nil {
		q.bus = events.NewMemoryBus(0)
	}
	if q.reporter == nil {
		q.reporter = ReporterFunc(func(err error) {
			logger.Error("playback command failed", "error", err)
		})
	}
	return q
}

// Bus returns the bus the queue publishes on.
func (q *Queue) Bus() events.Bus {
	return q.bus
}

// AddResource appends an entry for id. A track is loaded right away when nothing is loaded yet.
func (q *Queue) AddResource(ctx context.Context, id models.ResourceID) Entry {
	q.mu.Lock()
	e := q.appendLocked(id)
	track, autoLoad := e.(*TrackEntry)
	autoLoad = autoLoad && q.loaded == nil
	q.mu.Unlock()

	if autoLoad {
		if err := track.LoadTrack(ctx); err != nil {
			q.logger.Debug("first track not loaded", "uri", id, "error", err)
		}
	}
	return e
}

func (q *Queue) appendLocked(id models.ResourceID) Entry {
	var e Entry
	if id.Kind.IsCollection() {
		e = &CollectionEntry{q: q, id: id}
	} else {
		e = &TrackEntry{q: q, id: id}
	}
	q.entries = append(q.entries, e)
	return e
}

// AddURLs parses each link and appends it in input order.
//
// Canonical spotify: URIs are accepted too. Items that fail to parse are skipped; one error is returned per
// failure.
func (q *Queue) AddURLs(ctx context.Context, urls []string) []error {
	var errs []error
	for _, u := range urls {
		id, err := models.ParseResource(u)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		q.AddResource(ctx, id)
	}
	return errs
}

// Clear removes every entry, the loaded entry and the selection.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
	q.loaded = nil
	q.selected = nil
}

// Remove deletes e from the queue, clearing it as loaded entry and from the selection.
func (q *Queue) Remove(e Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.removeLocked(e) < 0 {
		return shared.ErrNotQueued
	}
	return nil
}

// removeLocked returns the index e was removed from, or -1.
func (q *Queue) removeLocked(e Entry) int {
	idx := q.indexLocked(e)
	if idx < 0 {
		return -1
	}
	q.entries = slices.Delete(q.entries, idx, idx+1)
	if t, ok := e.(*TrackEntry); ok && q.loaded == t {
		q.loaded = nil
	}
	q.pruneSelectionLocked(e)
	return idx
}

// Entries returns a copy of the entries in playback order.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Loaded returns the loaded entry, or nil.
func (q *Queue) Loaded() *TrackEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loaded
}

// IndexOf returns the position of e, or -1.
func (q *Queue) IndexOf(e Entry) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(e)
}

func (q *Queue) indexLocked(e Entry) int {
	if e == nil {
		return -1
	}
	return slices.Index(q.entries, e)
}

// NotifyVisible forwards a visibility notification to e if it is still queued.
func (q *Queue) NotifyVisible(ctx context.Context, e Entry) {
	if q.IndexOf(e) < 0 {
		return
	}
	e.OnVisible(ctx)
}

// Snapshot returns the resource of every entry in order.
func (q *Queue) Snapshot() []models.ResourceID {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]models.ResourceID, len(q.entries))
	for i, e := range q.entries {
		ids[i] = e.Resource()
	}
	return ids
}

// Restore replaces the queue contents with ids. Nothing is loaded; the player is left alone until the next
// navigation.
func (q *Queue) Restore(ids []models.ResourceID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = nil
	q.loaded = nil
	q.selected = nil
	for _, id := range ids {
		q.appendLocked(id)
	}
}

// Wait blocks until background loads and expansions have finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) goBackground(fn func()) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		fn()
	}()
}

// splice replaces c with one entry per id at c's current position.
func (q *Queue) splice(c *CollectionEntry, ids []models.ResourceID, done chan struct{}) ([]*TrackEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer close(done)

	c.state = CollectionExpanded

	idx := q.indexLocked(c)
	if idx < 0 {
		return nil, false
	}

	children := make([]*TrackEntry, len(ids))
	replacement := make([]Entry, len(ids))
	for i, id := range ids {
		children[i] = &TrackEntry{q: q, id: id}
		replacement[i] = children[i]
	}
	c.children = children

	q.entries = slices.Replace(q.entries, idx, idx+1, replacement...)
	q.pruneSelectionLocked(c)
	return children, true
}

// loadFirstAvailable loads the first playable candidate while nothing else is loaded.
func (q *Queue) loadFirstAvailable(ctx context.Context, candidates []*TrackEntry) {
	for _, t := range candidates {
		if q.Loaded() != nil {
			return
		}
		err := t.LoadTrack(ctx)
		if err == nil || errors.Is(err, shared.ErrPlaybackCommand) {
			return
		}
	}
}

// setLoaded marks t as loaded, stages it in the player and announces it.
func (q *Queue) setLoaded(ctx context.Context, t *TrackEntry, meta models.TrackMetadata) error {
	q.mu.Lock()
	if q.indexLocked(t) < 0 {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrNotQueued, t.id)
	}
	q.loaded = t
	q.mu.Unlock()

	q.logger.Info("track loaded", "uri", t.id, "name", meta.DisplayName())

	if err := q.player.LoadTrack(ctx, t.id); err != nil {
		return q.playbackFailed(err)
	}
	q.publish(ctx, events.Loaded(meta))
	return nil
}

func (q *Queue) playbackFailed(err error) error {
	if !errors.Is(err, shared.ErrPlaybackCommand) {
		err = fmt.Errorf("%w: %w", shared.ErrPlaybackCommand, err)
	}
	q.reporter.Report(err)
	return err
}

func (q *Queue) publish(ctx context.Context, ev events.Event) {
	if err := q.bus.Publish(ctx, events.ChannelPlaylist, ev); err != nil {
		q.logger.Warn("failed to publish event", "event", ev.Type, "error", err)
	}
}
