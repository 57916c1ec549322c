package seeder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/simaogato/networth-backend/internal/domain"
)

// DocumentSeeder imports an existing finance_data.json into a store that holds nothing yet
type DocumentSeeder struct {
	store  domain.SnapshotStore
	logger *slog.Logger
}

// NewDocumentSeeder creates a new DocumentSeeder instance
func NewDocumentSeeder(store domain.SnapshotStore, logger *slog.Logger) *DocumentSeeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentSeeder{
		store:  store,
		logger: logger,
	}
}

// Seed saves the document read from source if the store is empty.
// A store that already holds accounts or history is never overwritten.
// It reports whether the document was imported.
func (s *DocumentSeeder) Seed(ctx context.Context, source io.Reader) (bool, error) {
	// Check the target first so a bad source does not matter when nothing would be written
	current, err := s.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load document: %w", err)
	}
	if !current.IsEmpty() {
		s.logger.InfoContext(ctx, "store already holds data, skipping import",
			"accounts", len(current.Accounts),
			"history", len(current.History),
		)
		return false, nil
	}

	doc, err := domain.DecodeDocument(source)
	if err != nil {
		return false, &domain.ValidationError{Field: "document", Reason: err.Error()}
	}
	if err := doc.Validate(); err != nil {
		return false, err
	}
	if doc.IsEmpty() {
		return false, nil
	}

	if err := s.store.Save(ctx, doc); err != nil {
		return false, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.InfoContext(ctx, "document imported",
		"accounts", len(doc.Accounts),
		"history", len(doc.History),
	)
	return true, nil
}

// SeedFile imports the document stored at path. A missing file is not an error.
func (s *DocumentSeeder) SeedFile(ctx context.Context, path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.InfoContext(ctx, "no document to import", "path", path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return s.Seed(ctx, f)
}
