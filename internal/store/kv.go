// Package store provides the device-local key-value storage soundtrip
// persists its history and preferences into.
//
// Two backends are available:
//   - SQLite (drivers "sqlite" via modernc.org/sqlite, "sqlite3" via mattn/go-sqlite3)
//   - Memory (tests and the "memory" driver)
//
// Writes are single-key upserts, so a value is either the old or the new
// one after an interrupted write.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// KV is a string key-value store.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// Open opens a store for the given driver. path is ignored by "memory".
func Open(driver, path string) (KV, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case DriverModernc, DriverCgo:
		return NewSQLite(driver, path)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
