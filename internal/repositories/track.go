package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
)

const trackColumns = "id, sequence, uri, artist, name, duration_ms, unavailable, created_at, updated_at, deleted_at"

// TrackRepository implements models.Repository[*models.PersistedTrack] for the metadata cache.
//
// Rows are unique per canonical URI. Soft-deleted rows are excluded from reads.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	track.SetID(id)
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, uri, artist, name, duration_ms, unavailable, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		track.URI(),
		track.Artist(),
		track.Name(),
		track.DurationMs(),
		track.Unavailable(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE id = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRow(query, id))
}

// GetByURI retrieves a track by its canonical spotify URI
func (r *TrackRepository) GetByURI(uri string) (*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE uri = ? AND deleted_at IS NULL"
	return r.scan(r.db.QueryRow(query, uri))
}

// Update refreshes the cached metadata of an existing track
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	query := `
		UPDATE tracks
		SET artist = ?, name = ?, duration_ms = ?, unavailable = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Artist(),
		track.Name(),
		track.DurationMs(),
		track.Unavailable(),
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	return requireRow(result, "track", track.ID())
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	return requireRow(result, "track", id)
}

// Purge removes every row for uri, including soft-deleted ones, so the URI can be cached again.
func (r *TrackRepository) Purge(uri string) error {
	if _, err := r.db.Exec("DELETE FROM tracks WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("failed to purge track: %w", err)
	}
	return nil
}

// List retrieves all tracks matching the given criteria, excluding soft-deleted tracks.
//
// Supported criteria: "unavailable" (bool) and "artist" (string).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE deleted_at IS NULL"
	args := []any{}

	if unavailable, ok := criteria["unavailable"].(bool); ok {
		query += " AND unavailable = ?"
		args = append(args, unavailable)
	}

	if artist, ok := criteria["artist"].(string); ok && artist != "" {
		query += " AND artist = ?"
		args = append(args, artist)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row from a [sql.Row] or [sql.Rows] into a [models.PersistedTrack]
func (r *TrackRepository) scan(row scanner) (*models.PersistedTrack, error) {
	var (
		id          string
		sequence    int
		uri         string
		artist      string
		name        string
		durationMs  int
		unavailable bool
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &uri, &artist, &name, &durationMs, &unavailable, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.LoadPersistedTrack(
		id, sequence, uri, artist, name, durationMs, unavailable, createdAt, updatedAt, deleted,
	), nil
}

func requireRow(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s not found or already deleted", shared.ErrRecordNotFound, entity, id)
	}
	return nil
}
