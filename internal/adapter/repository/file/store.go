package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/simaogato/networth-backend/internal/domain"
)

// Store keeps the document in a single JSON file, the layout of finance_data.json
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a file-backed snapshot store. The file is created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the document file
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file yields an empty document.
func (s *Store) Load(ctx context.Context) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewDocument(), nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: fmt.Errorf("failed to read %s: %w", s.path, err)}
	}

	doc, err := domain.UnmarshalDocument(data)
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	return doc, nil
}

// Save overwrites the document atomically: it writes a temp file next to the
// target and renames it, so readers never observe a partial document.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	data, err := doc.MarshalIndent()
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, data); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
