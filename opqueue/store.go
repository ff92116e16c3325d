package opqueue

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when an operation id is absent from the store.
var ErrNotFound = errors.New("opqueue: operation not found")

// Store is a durable hash of operation id to serialized record.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get and Delete on a missing id return ErrNotFound.
type Store interface {
	Set(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	All(ctx context.Context) (map[string][]byte, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore is an in-process Store for tests and single-process
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Set(ctx context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.records[id] = cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) All(ctx context.Context) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.records))
	for id, data := range s.records {
		out[id] = data
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}
