package queue

import (
	"context"
	"slices"

	"github.com/desertthunder/spotiq/internal/shared"
)

// Key is a keyboard command understood by [Queue.HandleKey].
type Key int

const (
	KeyArrowUp Key = iota + 1
	KeyArrowDown
	KeyEnter
	KeyDelete
)

func (k Key) String() string {
	switch k {
	case KeyArrowUp:
		return "up"
	case KeyArrowDown:
		return "down"
	case KeyEnter:
		return "enter"
	case KeyDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Selected returns a copy of the selection. The last element is the anchor.
func (q *Queue) Selected() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.selected)
}

// Anchor returns the selection anchor, or nil.
func (q *Queue) Anchor() Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.anchorLocked()
}

func (q *Queue) anchorLocked() Entry {
	if len(q.selected) == 0 {
		return nil
	}
	return q.selected[len(q.selected)-1]
}

// Select makes e the only selected entry.
func (q *Queue) Select(e Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexLocked(e) < 0 {
		return shared.ErrNotQueued
	}
	q.selected = []Entry{e}
	return nil
}

// SetSelection replaces the selection. Entries not in the queue and duplicates are dropped.
func (q *Queue) SetSelection(entries ...Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.selected = q.selected[:0:0]
	for _, e := range entries {
		if q.indexLocked(e) >= 0 && !slices.Contains(q.selected, e) {
			q.selected = append(q.selected, e)
		}
	}
}

// MoveSelection moves the anchor to the adjacent entry for [KeyArrowUp] and [KeyArrowDown].
//
// It reports whether the selection changed. Without a selection, at either end of the queue, or for any other
// key it does nothing.
func (q *Queue) MoveSelection(key Key) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	var step int
	switch key {
	case KeyArrowUp:
		step = -1
	case KeyArrowDown:
		step = 1
	default:
		return false
	}

	idx := q.indexLocked(q.anchorLocked())
	if idx < 0 {
		return false
	}
	target := idx + step
	if target < 0 || target >= len(q.entries) {
		return false
	}
	q.selected = []Entry{q.entries[target]}
	return true
}

// HandleKey applies a keyboard command to the selection.
//
// Arrows move the anchor, Enter plays it and Delete removes it, selecting the entry that takes its place.
func (q *Queue) HandleKey(ctx context.Context, key Key) error {
	switch key {
	case KeyArrowUp, KeyArrowDown:
		q.MoveSelection(key)
		return nil
	case KeyEnter:
		anchor := q.Anchor()
		if anchor == nil {
			return nil
		}
		return anchor.Play(ctx)
	case KeyDelete:
		q.mu.Lock()
		defer q.mu.Unlock()

		idx := q.removeLocked(q.anchorLocked())
		if idx < 0 || len(q.entries) == 0 {
			return nil
		}
		q.selected = []Entry{q.entries[min(idx, len(q.entries)-1)]}
		return nil
	default:
		return shared.ErrInvalidInput
	}
}

func (q *Queue) pruneSelectionLocked(e Entry) {
	q.selected = slices.DeleteFunc(q.selected, func(s Entry) bool { return s == e })
}
