// ABOUTME: BlobStore interface for the single persisted conversation record
// ABOUTME: Defines the key-value contract every storage backend implements

package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no blob has been written under the key yet
var ErrNotFound = errors.New("not found")

// DefaultKey is the stable key the conversation collection is stored under
const DefaultKey = "conversations"

// BlobStore holds one serialized blob under one stable key.
// Read returns ErrNotFound when nothing was written yet. Write replaces the
// previous blob entirely; there is no schema and no migration.
type BlobStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error

	// Close releases any resources held by the store
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open constructs the BlobStore for the named backend
func Open(backend, path, key string) (BlobStore, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path, key)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
