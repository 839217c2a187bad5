package store

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
)

// MemoryStore is an in-memory SnapshotStore. Documents are kept encoded so
// reads hand out independent copies, like the file store does.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	writes int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

// Read decodes the document for key into v.
func (s *MemoryStore) Read(ctx context.Context, key string, v any) error {
	s.mu.RLock()
	data, ok := s.docs[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// Write replaces the document for key.
func (s *MemoryStore) Write(ctx context.Context, key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = data
	s.writes++
	return nil
}

// Exists reports whether a document exists for key.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.docs[key]
	return ok, nil
}

// Raw returns the encoded document for key.
func (s *MemoryStore) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[key]
	return data, ok
}

// Writes returns how many writes have been made.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

var _ SnapshotStore = (*MemoryStore)(nil)
