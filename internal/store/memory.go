package store

import (
	"fmt"
	"sync"

	"strata.dev/strata/internal/model"
)

// MemoryStore is an in-process ObjectStore, used by tests and as the object
// cache behind a transaction before anything is durable.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[model.ID][]byte
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[model.ID][]byte)}
}

// Get returns the object bytes for id.
func (s *MemoryStore) Get(id model.ID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", id)
	}
	return data, nil
}

// Put stores data under its digest. Re-putting existing content is a no-op.
func (s *MemoryStore) Put(data []byte) (model.ID, error) {
	id := model.ComputeID(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[id]; !ok {
		s.objects[id] = append([]byte(nil), data...)
	}
	return id, nil
}

// Has reports whether the object exists.
func (s *MemoryStore) Has(id model.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[id]
	return ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
