package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotiq/internal/models"
)

// QueueRepository persists the queue as an ordered list of canonical URIs.
type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Save replaces the saved queue with ids in a single transaction.
func (r *QueueRepository) Save(ids []models.ResourceID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM queue_items"); err != nil {
		return fmt.Errorf("failed to clear saved queue: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO queue_items (position, uri, saved_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, id := range ids {
		if _, err := stmt.Exec(i, id.String(), now); err != nil {
			return fmt.Errorf("failed to save queue item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit queue: %w", err)
	}
	return nil
}

// Load returns the saved queue in order. Rows whose URI no longer parses are skipped.
func (r *QueueRepository) Load() ([]models.ResourceID, error) {
	rows, err := r.db.Query("SELECT uri FROM queue_items ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query saved queue: %w", err)
	}
	defer rows.Close()

	var ids []models.ResourceID
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		id, err := models.ParseResourceID(uri)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}
