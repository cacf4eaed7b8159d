package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/qrlink/core"
	"github.com/layer-3/qrlink/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-memory implementation of the Store interface.
// Expired entries are dropped lazily on access.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.Mutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Set writes a key with a value and expiration time
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", core.ErrKeyNotFound
	}
	if entry.expired(time.Now()) {
		delete(s.entries, key)
		return "", core.ErrKeyNotFound
	}
	return entry.value, nil
}

// GetDel retrieves a value and removes the key under a single lock hold,
// so concurrent callers cannot both observe the same value.
func (s *MemoryStore) GetDel(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return "", core.ErrKeyNotFound
	}
	delete(s.entries, key)
	if entry.expired(time.Now()) {
		return "", core.ErrKeyNotFound
	}
	return entry.value, nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

var _ ports.Store = (*MemoryStore)(nil)
