// Package cache memoizes provider asks by (identity, prompt).
package cache

import (
	"context"
	"sync"
)

// Key identifies one memoized ask. Two keys are equal only when both the
// provider identity and the full prompt text match.
type Key struct {
	Identity string
	Prompt   string
}

// Store holds responses by key. Entries are never expired; the last Set
// for a key wins.
type Store interface {
	Get(ctx context.Context, key Key) (string, bool, error)
	Set(ctx context.Context, key Key, response string) error
	Contains(ctx context.Context, key Key) (bool, error)
	Len(ctx context.Context) (int, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]string)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key Key, response string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = response
	return nil
}

func (m *MemoryStore) Contains(_ context.Context, key Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
