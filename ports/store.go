package ports

import (
	"context"
	"time"
)

// Store is the shared key-value cache with per-key expiry.
// Implementations return core.ErrKeyNotFound when a key is absent or
// expired; any other error means the store itself is unavailable.
type Store interface {
	// Set writes a key with a value and expiration time
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key
	Get(ctx context.Context, key string) (string, error)

	// GetDel atomically retrieves a value and removes the key.
	// Under concurrent calls for the same key, at most one caller
	// receives the value; the rest get core.ErrKeyNotFound.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete removes a key
	Delete(ctx context.Context, key string) error
}
