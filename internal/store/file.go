// ABOUTME: File-backed BlobStore writing the blob as a single JSON file
// ABOUTME: Writes go through a temp file and rename so a crash never leaves half a blob

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore implements BlobStore with one file on disk
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store that keeps its blob at path.
// The parent directory is created if needed; the file itself is created on
// the first Write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{
		path:   path,
		logger: slog.Default().With("component", "store", "path", path),
	}, nil
}

// Read returns the file contents, or ErrNotFound if the file does not exist.
func (f *FileStore) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob file: %w", err)
	}
	return data, nil
}

// Write atomically replaces the file contents.
func (f *FileStore) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing blob file: %w", err)
	}

	f.logger.Debug("saved blob", "size", len(data))
	return nil
}

// Close is a no-op; FileStore holds no open handles between calls.
func (f *FileStore) Close() error {
	return nil
}
