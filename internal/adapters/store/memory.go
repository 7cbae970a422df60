package store

import (
	"context"
	"sort"
	"sync"

	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

// MemoryStore is an in-memory implementation of the store contract, used in
// tests and demo setups. Writes are serialized by a single mutex; scans see a
// consistent snapshot.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
	}
}

// Get retrieves the value stored for key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.records[key]
	if !ok {
		return nil, shared.ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put upserts the value stored for key
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = stored
	return nil
}

// PutIfAbsent stores the value only if the key does not exist yet
func (s *MemoryStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; ok {
		return shared.ErrKeyExists
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	s.records[key] = stored
	return nil
}

// Scan visits every key/value pair in key order
func (s *MemoryStore) Scan(ctx context.Context, fn func(key string, value []byte) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	snapshot := make(map[string][]byte, len(s.records))
	for key, value := range s.records {
		snapshot[key] = value
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, key := range keys {
		if err := fn(key, snapshot[key]); err != nil {
			return err
		}
	}
	return nil
}

// Close releases nothing; it exists to satisfy the store contract
func (s *MemoryStore) Close() error {
	return nil
}
