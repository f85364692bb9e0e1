package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Cache is a typed JSON view over a Backend. Entries are first-writer-wins:
// once a digest holds a value, a later Store with different bytes is refused
// with ErrConflict and the existing entry stays.
type Cache[T any] struct {
	backend Backend
	logger  *zap.Logger
}

func New[T any](backend Backend, logger *zap.Logger) *Cache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache[T]{backend: backend, logger: logger}
}

// Lookup returns the decoded entry for hash. The bool is false on a miss.
func (c *Cache[T]) Lookup(ctx context.Context, hash string) (*T, bool, error) {
	data, ok, err := c.LookupRaw(ctx, hash)
	if err != nil || !ok {
		return nil, ok, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry %s: %w", hash, err)
	}
	return &v, true, nil
}

// LookupRaw returns the stored bytes unchanged.
func (c *Cache[T]) LookupRaw(ctx context.Context, hash string) ([]byte, bool, error) {
	if err := checkKey(hash); err != nil {
		return nil, false, err
	}

	data, err := c.backend.Get(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Store saves value under hash unless an entry already exists. Storing the
// same bytes again is a no-op.
func (c *Cache[T]) Store(ctx context.Context, hash string, value *T) error {
	if err := checkKey(hash); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", hash, err)
	}

	created, err := c.backend.PutIfAbsent(ctx, hash, data)
	if err != nil {
		return err
	}
	if created {
		c.logger.Debug("Cache entry stored", zap.String("hash", hash), zap.Int("bytes", len(data)))
		return nil
	}

	existing, err := c.backend.Get(ctx, hash)
	if err != nil {
		return fmt.Errorf("reading existing cache entry %s: %w", hash, err)
	}
	if bytes.Equal(existing, data) {
		return nil
	}

	c.logger.Warn("Cache entry already holds a different value", zap.String("hash", hash))
	return fmt.Errorf("%w: %s", ErrConflict, hash)
}
