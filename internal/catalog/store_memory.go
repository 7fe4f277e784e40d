package catalog

import (
	"context"
	"sync"
)

// MemoryStore is the in-process fallback cache, used when no Redis URL is
// configured. Entries live until process exit; freshness is the Service's
// concern.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (s *MemoryStore) Put(_ context.Context, id string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry
	return nil
}

func (s *MemoryStore) All(_ context.Context) (map[string]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make(map[string]*Entry, len(s.entries))
	for id, entry := range s.entries {
		all[id] = entry
	}
	return all, nil
}
