package repositories

import (
	"database/sql"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
	tu "github.com/desertthunder/spotiq/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every connection to :memory: is a separate database
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "tracks")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}

func TestTrackRepository(t *testing.T) {
	meta := tu.Metadata(tu.TrackID(1))

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := models.NewPersistedTrack(meta)

		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if track.ID() == "" {
			t.Error("track ID should be set after creation")
		}
		if track.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", track.Sequence())
		}
	})

	t.Run("Get And GetByURI", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := models.NewPersistedTrack(meta)
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		byID, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		byURI, err := repo.GetByURI(meta.Resource.String())
		if err != nil {
			t.Fatalf("failed to get track by uri: %v", err)
		}
		if byID.ID() != byURI.ID() {
			t.Errorf("expected the same row, got %s and %s", byID.ID(), byURI.ID())
		}

		got, err := byURI.Metadata()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != meta {
			t.Errorf("expected %+v, got %+v", meta, got)
		}
	})

	t.Run("Duplicate URI", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		if err := repo.Create(models.NewPersistedTrack(meta)); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}
		if err := repo.Create(models.NewPersistedTrack(meta)); err == nil {
			t.Fatal("expected error when creating a duplicate uri")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := models.NewPersistedTrack(meta)
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		track.SetUnavailable(true)
		track.SetName("Renamed")
		if err := repo.Update(track); err != nil {
			t.Fatalf("failed to update track: %v", err)
		}

		got, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if !got.Unavailable() || got.Name() != "Renamed" {
			t.Errorf("update not persisted: %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		track := models.NewPersistedTrack(meta)
		if err := repo.Create(track); err != nil {
			t.Fatalf("failed to create track: %v", err)
		}

		if err := repo.Delete(track.ID()); err != nil {
			t.Fatalf("failed to delete track: %v", err)
		}
		if _, err := repo.Get(track.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
		if err := repo.Delete(track.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
		if err := repo.Update(track); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on update, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		for i := 1; i <= 3; i++ {
			m := tu.Metadata(tu.TrackID(i))
			m.Unavailable = i == 2
			if err := repo.Create(models.NewPersistedTrack(m)); err != nil {
				t.Fatalf("failed to create track: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     int
		}{
			{"all", nil, 3},
			{"unavailable", map[string]any{"unavailable": true}, 1},
			{"available", map[string]any{"unavailable": false}, 2},
			{"artist", map[string]any{"artist": "Artist"}, 3},
			{"unknown artist", map[string]any{"artist": "Nobody"}, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tracks, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(tracks) != tt.want {
					t.Errorf("expected %d tracks, got %d", tt.want, len(tracks))
				}
			})
		}
	})

	t.Run("Validation", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		bad := meta
		bad.DurationMs = -1
		if err := repo.Create(models.NewPersistedTrack(bad)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestTrackCacheAdapter(t *testing.T) {
	id := tu.TrackID(1)
	meta := tu.Metadata(id)

	t.Run("Miss", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewTrackCacheAdapter(NewTrackRepository(db))
		if _, ok, err := cache.Lookup(id); ok || err != nil {
			t.Errorf("expected miss without error, got %v / %v", ok, err)
		}
	})

	t.Run("Save And Lookup", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewTrackCacheAdapter(NewTrackRepository(db))
		if err := cache.Save(meta); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, ok, err := cache.Lookup(id)
		if err != nil || !ok {
			t.Fatalf("expected hit, got %v / %v", ok, err)
		}
		if got != meta {
			t.Errorf("expected %+v, got %+v", meta, got)
		}
	})

	t.Run("Save Replaces", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTrackRepository(db)
		cache := NewTrackCacheAdapter(repo)
		if err := cache.Save(meta); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		refreshed := meta
		refreshed.Unavailable = true
		if err := cache.Save(refreshed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, _, _ := cache.Lookup(id)
		if !got.Unavailable {
			t.Error("expected refreshed metadata")
		}
		if tracks, _ := repo.List(nil); len(tracks) != 1 {
			t.Errorf("expected a single row, got %d", len(tracks))
		}
	})

	t.Run("Evict", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		cache := NewTrackCacheAdapter(NewTrackRepository(db))
		if err := cache.Save(meta); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cache.Evict(id); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok, _ := cache.Lookup(id); ok {
			t.Error("expected miss after evict")
		}
		if err := cache.Save(meta); err != nil {
			t.Errorf("expected evicted uri to be cacheable again, got %v", err)
		}
	})
}

func TestQueueRepository(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		ids, err := NewQueueRepository(db).Load()
		if err != nil || len(ids) != 0 {
			t.Errorf("expected empty queue, got %v / %v", ids, err)
		}
	})

	t.Run("Save Replaces Previous Queue", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewQueueRepository(db)
		first := []models.ResourceID{tu.TrackID(1), tu.TrackID(2)}
		second := []models.ResourceID{tu.PlaylistID(1), tu.TrackID(3), tu.AlbumID(1)}

		for _, ids := range [][]models.ResourceID{first, second} {
			if err := repo.Save(ids); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		got, err := repo.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, second) {
			t.Errorf("expected %v, got %v", second, got)
		}
	})

	t.Run("Skips Corrupt Rows", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewQueueRepository(db)
		if err := repo.Save([]models.ResourceID{tu.TrackID(1)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := db.Exec("INSERT INTO queue_items (position, uri) VALUES (5, 'spotify:episode:x')"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := repo.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 id, got %v", got)
		}
	})
}
