package shared

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMs is how long a connection waits on a locked database before failing. Metadata write-back and queue
// snapshots run from background goroutines and regularly overlap.
const busyTimeoutMs = 5000

// NewDatabase opens the SQLite file backing the track cache and saved queue, creating its directory if needed.
//
// ":memory:" and "file:" URIs are passed to the driver untouched.
func NewDatabase(path string) (*sql.DB, error) {
	dsn := path
	if isPlainPath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", path, busyTimeoutMs)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func isPlainPath(path string) bool {
	return path != ":memory:" && !strings.HasPrefix(path, "file:")
}

// ConfigureDatabase applies the [database] pool limits from config.toml.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
