// Package store provides the durable key/value interface and its SQLite and
// diskv implementations.
package store

import (
	"context"
	"fmt"
)

// KV is a durable key to string mapping. Each Set is atomic for its key;
// there is no multi-key transaction.
type KV interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists stored keys with the given prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close closes the store.
	Close() error
}

// Backend names a KV implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendDiskv  Backend = "diskv"
)

// Open opens the KV backend at path.
func Open(backend Backend, path string) (KV, error) {
	switch backend {
	case "", BackendSQLite:
		return NewSQLiteStore(path)
	case BackendDiskv:
		return NewDiskvStore(path)
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: sqlite, diskv)", backend)
	}
}
