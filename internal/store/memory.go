package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of RecordStore
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	closed      bool
}

// NewMemoryStore creates a new in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Document),
	}
}

// Ping verifies the store has not been closed
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}

// ExistsAndNonEmpty reports whether the collection holds documents
func (s *MemoryStore) ExistsAndNonEmpty(ctx context.Context, collection string) (bool, error) {
	n, err := s.Count(ctx, collection)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of documents in a collection
func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	return len(s.collections[collection]), nil
}

// BulkInsert appends documents to a collection
func (s *MemoryStore) BulkInsert(ctx context.Context, collection string, docs []Document) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	s.collections[collection] = append(s.collections[collection], stamp(docs)...)
	return len(docs), nil
}

// ReadAll returns copies of every document in a collection
func (s *MemoryStore) ReadAll(ctx context.Context, collection string) ([]Document, error) {
	if err := ValidateCollection(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	stored := s.collections[collection]
	out := make([]Document, 0, len(stored))
	for _, doc := range stored {
		out = append(out, cloneDocument(doc))
	}
	return out, nil
}

// ReplaceAll swaps the collection contents for docs
func (s *MemoryStore) ReplaceAll(ctx context.Context, collection string, docs []Document) (int, error) {
	if err := ValidateCollection(collection); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	s.collections[collection] = stamp(docs)
	return len(docs), nil
}

// Close marks the store closed; later calls fail
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) checkOpen() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// stamp copies docs and assigns each a fresh identity
func stamp(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		c := cloneDocument(doc)
		c[IDField] = uuid.NewString()
		out = append(out, c)
	}
	return out
}
