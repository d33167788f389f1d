// Package kv provides the key-value store used for issued-token tracking.
// Backends (Valkey/Redis, in-memory) are swappable behind one interface so
// the auth service does not care which deployment mode it runs in.
package kv

import (
	"context"
	"time"
)

// Store defines a minimal key-value interface with TTL support.
type Store interface {
	// Set stores a value with the given key and TTL. A TTL of 0 means the
	// key does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value by key. Returns ErrNotFound when the key does
	// not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Returns nil when the key does not exist.
	Delete(ctx context.Context, key string) error

	// Ping reports whether the backend is reachable. Used by the health
	// endpoint's dependency probe.
	Ping(ctx context.Context) error

	// Close closes the connection to the store.
	Close() error
}
