package queue

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/spotiq/internal/models"
	"github.com/desertthunder/spotiq/internal/shared"
	tu "github.com/desertthunder/spotiq/internal/testing"
)

func TestSelection(t *testing.T) {
	ctx := context.Background()
	ids := []models.ResourceID{tu.TrackID(1), tu.TrackID(2), tu.TrackID(3)}

	t.Run("Arrow Keys", func(t *testing.T) {
		tests := []struct {
			name    string
			start   int
			key     Key
			want    int
			changed bool
		}{
			{"down moves anchor", 0, KeyArrowDown, 1, true},
			{"up moves anchor", 2, KeyArrowUp, 1, true},
			{"down at last is a no-op", 2, KeyArrowDown, 2, false},
			{"up at first is a no-op", 0, KeyArrowUp, 0, false},
			{"other keys are ignored", 1, KeyEnter, 1, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				f.q.Restore(ids)
				entries := f.q.Entries()
				if err := f.q.Select(entries[tt.start]); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				if changed := f.q.MoveSelection(tt.key); changed != tt.changed {
					t.Errorf("expected changed=%v, got %v", tt.changed, changed)
				}
				if got := f.q.Selected(); len(got) != 1 || got[0] != entries[tt.want] {
					t.Errorf("expected selection at %d, got %v", tt.want, resources(got))
				}
			})
		}
	})

	t.Run("Arrow Without Selection", func(t *testing.T) {
		f := newFixture(t)
		f.q.AddResource(ctx, ids[0])
		f.q.AddResource(ctx, ids[1])
		loaded := f.q.Loaded()

		for _, key := range []Key{KeyArrowDown, KeyArrowUp} {
			if err := f.q.HandleKey(ctx, key); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if len(f.q.Selected()) != 0 {
			t.Errorf("expected no selection, got %v", resources(f.q.Selected()))
		}
		if f.q.Loaded() != loaded {
			t.Error("arrow keys must not change the loaded entry")
		}
	})

	t.Run("SetSelection", func(t *testing.T) {
		f := newFixture(t)
		f.q.Restore(ids)
		entries := f.q.Entries()
		stray := &TrackEntry{q: f.q, id: tu.TrackID(99)}

		f.q.SetSelection(entries[0], stray, entries[2], entries[0])

		if got := f.q.Selected(); !slices.Equal(got, []Entry{entries[0], entries[2]}) {
			t.Errorf("unexpected selection %v", resources(got))
		}
		if f.q.Anchor() != entries[2] {
			t.Error("expected the last selected entry to be the anchor")
		}
		if f.q.MoveSelection(KeyArrowUp); !slices.Equal(f.q.Selected(), []Entry{entries[1]}) {
			t.Errorf("expected single anchor at 1, got %v", resources(f.q.Selected()))
		}
		if err := f.q.Select(stray); !errors.Is(err, shared.ErrNotQueued) {
			t.Errorf("expected ErrNotQueued, got %v", err)
		}
	})

	t.Run("Enter Plays Anchor", func(t *testing.T) {
		f := newFixture(t)
		f.q.Restore(ids)
		_ = f.q.Select(f.q.Entries()[1])

		if err := f.q.HandleKey(ctx, KeyEnter); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := []string{"load " + ids[1].String(), "play"}; !slices.Equal(f.player.Commands(), want) {
			t.Errorf("expected %v, got %v", want, f.player.Commands())
		}
	})

	t.Run("Delete Removes Anchor", func(t *testing.T) {
		f := newFixture(t)
		f.q.Restore(ids)
		entries := f.q.Entries()
		_ = f.q.Select(entries[2])

		if err := f.q.HandleKey(ctx, KeyDelete); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := resources(f.q.Entries()); !slices.Equal(got, ids[:2]) {
			t.Errorf("expected %v, got %v", ids[:2], got)
		}
		if f.q.Anchor() != entries[1] {
			t.Errorf("expected selection to move to the new last entry, got %v", f.q.Anchor())
		}
	})

	t.Run("Unknown Key", func(t *testing.T) {
		f := newFixture(t)
		if err := f.q.HandleKey(ctx, Key(0)); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
