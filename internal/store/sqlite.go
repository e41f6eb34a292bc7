// ABOUTME: SQLite implementation of BlobStore using modernc.org/sqlite
// ABOUTME: Stores the blob in a single key-value table created on open

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements BlobStore on top of a SQLite key-value table
type SQLiteStore struct {
	db     *sql.DB
	key    string
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and binds the
// store to key. An empty key falls back to DefaultKey.
// Parent directories are created if needed.
func NewSQLiteStore(path, key string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if key == "" {
		key = DefaultKey
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		key:    key,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "key", key)
	return s, nil
}

// createSchema creates the blob table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Read returns the blob stored under the store's key.
// Returns ErrNotFound if nothing was written yet.
func (s *SQLiteStore) Read(ctx context.Context) ([]byte, error) {
	query := `SELECT data FROM blobs WHERE key = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying blob: %w", err)
	}

	return data, nil
}

// Write replaces the blob stored under the store's key.
func (s *SQLiteStore) Write(ctx context.Context, data []byte) error {
	query := `
		INSERT OR REPLACE INTO blobs (key, data, updated_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		s.key,
		data,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving blob: %w", err)
	}

	s.logger.Debug("saved blob", "key", s.key, "size", len(data))
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}
