package memory

import (
	"context"
	"sync"

	"github.com/simaogato/networth-backend/internal/domain"
)

// Store keeps the document in process memory. Nothing survives a restart.
type Store struct {
	mu  sync.RWMutex
	doc *domain.Document
}

// NewStore creates an in-memory snapshot store holding a copy of initial (nil for empty)
func NewStore(initial *domain.Document) *Store {
	return &Store{doc: initial.Clone()}
}

// Load returns a copy of the held document
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone(), nil
}

// Save replaces the held document with a copy of doc
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	return nil
}
