// package loader resolves track metadata with per-identifier deduplication
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/services"
	"github.com/desertthunder/spotiq/internal/shared"
)

// State is the observable lifecycle of a single identifier in the [Loader].
type State int

const (
	StateAbsent State = iota
	StatePending
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "absent"
	}
}

// Store is a second-level cache consulted before the RPC.
//
// Implemented by repositories.TrackCacheAdapter.
type Store interface {
	Lookup(id models.ResourceID) (models.TrackMetadata, bool, error)
	Save(meta models.TrackMetadata) error
	Evict(id models.ResourceID) error
}

// MetadataFetchError records a failed fetch for a resource.
//
// Matches [shared.ErrMetadataFetch] and the underlying cause with [errors.Is].
type MetadataFetchError struct {
	Resource models.ResourceID
	Cause    error
}

func (e *MetadataFetchError) Error() string {
	return fmt.Sprintf("%v for %s: %v", shared.ErrMetadataFetch, e.Resource, e.Cause)
}

func (e *MetadataFetchError) Unwrap() []error {
	return []error{shared.ErrMetadataFetch, e.Cause}
}

type entry struct {
	state State
	meta  models.TrackMetadata
	err   error
}

// DefaultFetchTimeout bounds a single shared fetch.
const DefaultFetchTimeout = 30 * time.Second

// Loader fetches [models.TrackMetadata] with at most one in-flight request per identifier.
//
// Resolved values are cached for the lifetime of the Loader. Failures are recorded but not cached, so the next
// Load retries.
type Loader struct {
	fetcher services.MetadataFetcher
	store   Store
	logger  *log.Logger
	timeout time.Duration

	group   singleflight.Group
	mu      sync.Mutex
	entries map[models.ResourceID]*entry
}

// New creates a Loader. store may be nil.
func New(fetcher services.MetadataFetcher, store Store, logger *log.Logger) *Loader {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Loader{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		timeout: DefaultFetchTimeout,
		entries: make(map[models.ResourceID]*entry),
	}
}

// SetTimeout bounds each shared fetch. A fetch that overruns fails, releasing its waiters so the next Load
// retries. Zero or negative restores [DefaultFetchTimeout].
func (l *Loader) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultFetchTimeout
	}
	l.timeout = d
}

// Load returns metadata for id, joining a fetch already in flight.
//
// The shared fetch is detached from the caller's cancellation so one caller giving up does not fail the others;
// ctx only bounds how long this caller waits. The fetch itself is bounded by the loader's timeout.
func (l *Loader) Load(ctx context.Context, id models.ResourceID) (models.TrackMetadata, error) {
	l.mu.Lock()
	if e, ok := l.entries[id]; ok && e.state == StateResolved {
		l.mu.Unlock()
		return e.meta, nil
	}
	l.mu.Unlock()

	detached, timeout := context.WithoutCancel(ctx), l.timeout
	ch := l.group.DoChan(id.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		return l.fetch(fetchCtx, id)
	})

	select {
	case <-ctx.Done():
		return models.TrackMetadata{}, &MetadataFetchError{Resource: id, Cause: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return models.TrackMetadata{}, res.Err
		}
		return res.Val.(models.TrackMetadata), nil
	}
}

func (l *Loader) fetch(ctx context.Context, id models.ResourceID) (models.TrackMetadata, error) {
	l.mu.Lock()
	if e, ok := l.entries[id]; ok && e.state == StateResolved {
		l.mu.Unlock()
		return e.meta, nil
	}
	l.entries[id] = &entry{state: StatePending}
	l.mu.Unlock()

	if meta, ok := l.lookup(id); ok {
		l.setState(id, &entry{state: StateResolved, meta: meta})
		return meta, nil
	}

	meta, err := l.fetcher.FetchTrackMetadata(ctx, id)
	if err != nil {
		ferr := &MetadataFetchError{Resource: id, Cause: err}
		l.setState(id, &entry{state: StateFailed, err: ferr})
		l.logger.Warn("metadata fetch failed", "uri", id, "error", err)
		return models.TrackMetadata{}, ferr
	}

	l.setState(id, &entry{state: StateResolved, meta: meta})
	l.logger.Debug("metadata resolved", "uri", id, "name", meta.DisplayName())

	if l.store != nil {
		if err := l.store.Save(meta); err != nil {
			l.logger.Warn("failed to cache metadata", "uri", id, "error", err)
		}
	}

	return meta, nil
}

func (l *Loader) lookup(id models.ResourceID) (models.TrackMetadata, bool) {
	if l.store == nil {
		return models.TrackMetadata{}, false
	}

	meta, ok, err := l.store.Lookup(id)
	if err != nil {
		l.logger.Warn("metadata cache lookup failed", "uri", id, "error", err)
		return models.TrackMetadata{}, false
	}
	return meta, ok
}

func (l *Loader) setState(id models.ResourceID, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[id] = e
}

// State reports where id is in its lifecycle.
func (l *Loader) State(id models.ResourceID) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[id]; ok {
		return e.state
	}
	return StateAbsent
}

// Err returns the last failure recorded for id, or nil.
func (l *Loader) Err(id models.ResourceID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.entries[id]; ok {
		return e.err
	}
	return nil
}

// Forget drops the cached value for id from memory and from the store.
func (l *Loader) Forget(id models.ResourceID) {
	l.mu.Lock()
	delete(l.entries, id)
	l.mu.Unlock()

	l.group.Forget(id.String())

	if l.store != nil {
		if err := l.store.Evict(id); err != nil {
			l.logger.Warn("failed to evict cached metadata", "uri", id, "error", err)
		}
	}
}
