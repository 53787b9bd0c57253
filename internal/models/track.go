package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/spotiq/internal/shared"
)

// TrackMetadata is the display metadata for a single track.
type TrackMetadata struct {
	Artist      string     `json:"artist"`
	Name        string     `json:"name"`
	DurationMs  int        `json:"duration_ms"`
	Resource    ResourceID `json:"uri"`
	Unavailable bool       `json:"unavailable"`
}

// DisplayName returns "artist - name".
func (m TrackMetadata) DisplayName() string {
	return m.Artist + " - " + m.Name
}

// DisplayDuration returns the duration as m:ss.
func (m TrackMetadata) DisplayDuration() string {
	return shared.FormatDuration(m.DurationMs)
}

// PersistedTrack is a cached [TrackMetadata] row.
//
// Rows are keyed by canonical URI so the loader can hit the cache before calling Spotify.
type PersistedTrack struct {
	id          string
	sequence    int
	uri         string
	artist      string
	name        string
	durationMs  int
	unavailable bool
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewPersistedTrack builds an unsaved row from fetched metadata.
func NewPersistedTrack(m TrackMetadata) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		uri:         m.Resource.String(),
		artist:      m.Artist,
		name:        m.Name,
		durationMs:  m.DurationMs,
		unavailable: m.Unavailable,
		createdAt:   now,
		updatedAt:   now,
	}
}

// LoadPersistedTrack rebuilds a row read from the database.
func LoadPersistedTrack(
	id string, sequence int, uri, artist, name string, durationMs int, unavailable bool,
	createdAt, updatedAt time.Time, deletedAt *time.Time,
) *PersistedTrack {
	return &PersistedTrack{
		id:          id,
		sequence:    sequence,
		uri:         uri,
		artist:      artist,
		name:        name,
		durationMs:  durationMs,
		unavailable: unavailable,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		deletedAt:   deletedAt,
	}
}

func (t *PersistedTrack) ID() string            { return t.id }
func (t *PersistedTrack) Sequence() int         { return t.sequence }
func (t *PersistedTrack) URI() string           { return t.uri }
func (t *PersistedTrack) Artist() string        { return t.artist }
func (t *PersistedTrack) Name() string          { return t.name }
func (t *PersistedTrack) DurationMs() int       { return t.durationMs }
func (t *PersistedTrack) Unavailable() bool     { return t.unavailable }
func (t *PersistedTrack) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTrack) SetID(id string)              { t.id = id }
func (t *PersistedTrack) SetSequence(seq int)          { t.sequence = seq }
func (t *PersistedTrack) SetUpdatedAt(ts time.Time)    { t.updatedAt = ts }
func (t *PersistedTrack) SetDeletedAt(ts *time.Time)   { t.deletedAt = ts }
func (t *PersistedTrack) SetArtist(artist string)      { t.artist = artist }
func (t *PersistedTrack) SetName(name string)          { t.name = name }
func (t *PersistedTrack) SetDurationMs(durationMs int) { t.durationMs = durationMs }
func (t *PersistedTrack) SetUnavailable(v bool)        { t.unavailable = v }

// Validate checks the row before it is written.
func (t *PersistedTrack) Validate() error {
	if t.id == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrInvalidInput)
	}
	if _, err := ParseResourceID(t.uri); err != nil {
		return err
	}
	if t.durationMs < 0 {
		return fmt.Errorf("%w: duration must be non-negative", shared.ErrInvalidInput)
	}
	return nil
}

// Metadata converts the row back into [TrackMetadata].
func (t *PersistedTrack) Metadata() (TrackMetadata, error) {
	id, err := ParseResourceID(t.uri)
	if err != nil {
		return TrackMetadata{}, err
	}
	return TrackMetadata{
		Artist:      t.artist,
		Name:        t.name,
		DurationMs:  t.durationMs,
		Resource:    id,
		Unavailable: t.unavailable,
	}, nil
}
