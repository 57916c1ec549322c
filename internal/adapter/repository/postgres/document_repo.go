package postgres

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

// DocumentRepository implements domain.SnapshotStore and domain.RevisionLister
type DocumentRepository struct {
	db *DB
	id string
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db, id: DefaultDocumentID}
}

// Load retrieves the document, or an empty one if it was never saved
func (r *DocumentRepository) Load(ctx context.Context) (*domain.Document, error) {
	query := `
		SELECT body
		FROM documents
		WHERE id = $1
	`

	var body []byte
	err := r.db.QueryRowContext(ctx, query, r.id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewDocument(), nil
		}
		return nil, &domain.StorageError{Op: "load", Err: fmt.Errorf("failed to get document: %w", err)}
	}

	doc, err := domain.UnmarshalDocument(body)
	if err != nil {
		return nil, &domain.StorageError{Op: "load", Err: err}
	}
	return doc, nil
}

// Save overwrites the document and appends a revision row in one database transaction
func (r *DocumentRepository) Save(ctx context.Context, doc *domain.Document) error {
	body, err := doc.Marshal()
	if err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	if err := r.save(ctx, doc, body); err != nil {
		return &domain.StorageError{Op: "save", Err: err}
	}
	return nil
}

func (r *DocumentRepository) save(ctx context.Context, doc *domain.Document, body []byte) error {
	// Start a database transaction
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	// Upsert the document
	upsertQuery := `
		INSERT INTO documents (id, body, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`
	if _, err := dbTx.ExecContext(ctx, upsertQuery, r.id, string(body)); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	// Record the revision
	total := decimal.Zero
	for _, acc := range doc.Accounts {
		total = total.Add(acc.Balance)
	}
	revisionQuery := `
		INSERT INTO document_revisions (id, document_id, total, account_count, history_count)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = dbTx.ExecContext(ctx, revisionQuery,
		uuid.New(),
		r.id,
		total.String(),
		len(doc.Accounts),
		len(doc.History),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document revision: %w", err)
	}

	// Commit the transaction
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Revisions lists the most recent saves, newest first
func (r *DocumentRepository) Revisions(ctx context.Context, limit int) ([]domain.Revision, error) {
	query := `
		SELECT id, total, account_count, history_count, saved_at
		FROM document_revisions
		WHERE document_id = $1
		ORDER BY saved_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, r.id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revisions := []domain.Revision{}
	for rows.Next() {
		var rev domain.Revision
		var totalStr string
		var savedAt time.Time
		if err := rows.Scan(&rev.ID, &totalStr, &rev.AccountCount, &rev.HistoryCount, &savedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}

		// Parse total (NUMERIC)
		total, err := decimal.NewFromString(totalStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total: %w", err)
		}
		rev.Total = total
		rev.SavedAt = savedAt.UTC()
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revisions: %w", err)
	}
	return revisions, nil
}
