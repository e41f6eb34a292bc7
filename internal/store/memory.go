// ABOUTME: In-memory BlobStore implementation for testing
// ABOUTME: Records every write so tests can assert on write-through behaviour

package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory BlobStore for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	data   []byte
	set    bool
	writes int

	// ReadErr and WriteErr, when set, are returned by Read and Write.
	ReadErr  error
	WriteErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates a MemoryStore pre-seeded with data.
func NewMemoryStoreWith(data []byte) *MemoryStore {
	m := &MemoryStore{}
	m.data = append([]byte(nil), data...)
	m.set = true
	return m
}

// Read returns a copy of the stored blob.
func (m *MemoryStore) Read(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if !m.set {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

// Write stores a copy of data.
func (m *MemoryStore) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteErr != nil {
		return m.WriteErr
	}
	// Make a copy to avoid external modification
	m.data = append([]byte(nil), data...)
	m.set = true
	m.writes++
	return nil
}

// Writes returns how many successful writes the store has received.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
