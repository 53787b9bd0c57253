package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
)

// TrackCacheAdapter implements loader.Store using TrackRepository.
//
// Save upserts by URI, so refreshed metadata replaces the cached row. A concurrent insert of the same URI
// (UNIQUE constraint violation) is silently ignored.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// Lookup returns the cached metadata for id.
func (a *TrackCacheAdapter) Lookup(id models.ResourceID) (models.TrackMetadata, bool, error) {
	track, err := a.repo.GetByURI(id.String())
	if errors.Is(err, shared.ErrRecordNotFound) {
		return models.TrackMetadata{}, false, nil
	}
	if err != nil {
		return models.TrackMetadata{}, false, err
	}

	meta, err := track.Metadata()
	if err != nil {
		return models.TrackMetadata{}, false, fmt.Errorf("corrupt cache row %s: %w", track.ID(), err)
	}
	return meta, true, nil
}

// Save caches meta.
func (a *TrackCacheAdapter) Save(meta models.TrackMetadata) error {
	existing, err := a.repo.GetByURI(meta.Resource.String())
	switch {
	case err == nil:
		existing.SetArtist(meta.Artist)
		existing.SetName(meta.Name)
		existing.SetDurationMs(meta.DurationMs)
		existing.SetUnavailable(meta.Unavailable)
		return a.repo.Update(existing)
	case !errors.Is(err, shared.ErrRecordNotFound):
		return fmt.Errorf("failed to cache track: %w", err)
	}

	if err := a.repo.Create(models.NewPersistedTrack(meta)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}
	return nil
}

// Evict drops the cached row for id.
func (a *TrackCacheAdapter) Evict(id models.ResourceID) error {
	return a.repo.Purge(id.String())
}
