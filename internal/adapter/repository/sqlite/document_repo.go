package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
)

// DefaultDocumentID identifies the row holding the single document
const DefaultDocumentID = "default"

// timeLayout sorts lexicographically in chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DocumentRepository implements domain.SnapshotStore on SQLite
type DocumentRepository struct {
	db  *DB
	id  string
	now func() time.Time
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db, id: DefaultDocumentID, now: time.Now}
}

// Load retrieves the document, or an empty one if it was never saved
func (r *DocumentRepository) Load(ctx context.Context) (*domain.Document, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = ?`, r.id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewDocument(), nil
		}
		return nil, &domain.StorageError{Op: "load", Err: fmt.Errorf("failed to get document: %w", err)}
	}

	doc, err := domain.UnmarshalDocument([]byte(body))
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	return doc, nil
}

// Save overwrites the document and appends a revision row in one transaction
func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	if err := r.save(ctx, doc, string(body)); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	return nil
}

func (r *DocumentRepository) save(ctx context.Context, doc *domain.Document, body string) error {
	savedAt := r.now().UTC().Format(timeLayout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET body = excluded.body, updated_at = excluded.updated_at
	`, r.id, body, savedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	total := decimal.Zero
	for _, acc := range doc.Accounts {
		total = total.Add(acc.Balance)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_revisions (id, document_id, total, account_count, history_count, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), r.id, total.String(), len(doc.Accounts), len(doc.History), savedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Revisions lists the most recent saves, newest first
func (r *DocumentRepository) Revisions(ctx context.Context, limit int) ([]domain.Revision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, total, account_count, history_count, saved_at
		FROM document_revisions
		WHERE document_id = ?
		ORDER BY saved_at DESC
		LIMIT ?
	`, r.id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revisions := []domain.Revision{}
	for rows.Next() {
		var rev domain.Revision
		var totalStr, savedAtStr string
		if err := rows.Scan(&rev.ID, &totalStr, &rev.AccountCount, &rev.HistoryCount, &savedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		if rev.Total, err = decimal.NewFromString(totalStr); err != nil {
			return nil, fmt.Errorf("failed to parse revision total: %w", err)
		}
		if rev.SavedAt, err = time.Parse(timeLayout, savedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse revision time: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revisions: %w", err)
	}
	return revisions, nil
}
