package session

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps session state in process memory.
type MemoryStore struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get decodes the value at key into v.
func (s *MemoryStore) Get(ctx context.Context, key string, v any) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.RLock()
	raw, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(raw, v)
}

// Set stores v at key. The value is copied, so later changes to v are not visible.
func (s *MemoryStore) Set(ctx context.Context, key string, v any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	raw, err := encode(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
