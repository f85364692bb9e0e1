package cache

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by a Backend when no entry exists for a key.
	ErrNotFound = errors.New("cache entry not found")
	// ErrConflict is returned when a different value is stored under an
	// existing key. The existing entry is kept.
	ErrConflict = errors.New("cache entry already holds a different value")
	// ErrInvalidKey is returned for keys that are not content digests.
	ErrInvalidKey = errors.New("invalid cache key")
)

// Backend is durable get/set storage by digest. PutIfAbsent must be atomic per
// key: it creates the entry only when none exists and reports whether it did.
// Readers must never observe a partially written entry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error)
}

// Memory is an in-process Backend.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) PutIfAbsent(_ context.Context, key string, data []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	m.entries[key] = append([]byte(nil), data...)
	return true, nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
