package chunkstore

import (
	"bytes"
	"sync"

	"github.com/opd-ai/mpid/identity"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[identity.ID][]byte
	size    uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[identity.ID][]byte)}
}

func (s *MemoryStore) Has(id identity.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

func (s *MemoryStore) Get(id identity.ID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Put(id identity.ID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[id]; ok {
		if !bytes.Equal(existing, data) {
			return ErrImmutable
		}
		return nil
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.entries[id] = stored
	s.size += uint64(len(stored))
	return nil
}

func (s *MemoryStore) Delete(id identity.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	s.size -= uint64(len(data))
	return nil
}

func (s *MemoryStore) Names() ([]identity.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]identity.ID, 0, len(s.entries))
	for id := range s.entries {
		names = append(names, id)
	}
	identity.Sort(names)
	return names, nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Size returns the total number of stored bytes.
func (s *MemoryStore) Size() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}
