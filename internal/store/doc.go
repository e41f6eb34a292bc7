// Package store provides the key-value blob storage the conversation
// collection is persisted to.
//
// # Backends
//
// Every backend implements BlobStore: one blob under one stable key, read
// once at startup and replaced wholesale on every change.
//
//   - FileStore: a JSON file, written to a temp file and renamed into place
//   - SQLiteStore: a single-table SQLite database (modernc.org/sqlite, no cgo)
//   - MemoryStore: in-process storage with injectable failures for tests
//
// Open selects a backend by name ("file" or "sqlite").
//
// # SQLite Configuration
//
// The SQLite backend enables WAL mode for file databases and keeps a single
// open connection so ":memory:" databases survive across calls:
//
//	PRAGMA journal_mode=WAL;
//
// Default file locations live under the user data directory:
//
//   - file:   ~/.local/share/ultimate-super-space/conversations.json
//   - sqlite: ~/.local/share/ultimate-super-space/chat.db
//
// # Error Handling
//
// Read returns ErrNotFound when nothing was stored yet. Other failures are
// wrapped with context and returned; callers decide whether to continue.
package store
