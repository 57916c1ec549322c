package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotStore defines the interface for document persistence operations
type SnapshotStore interface {
	// Load returns the stored document, or an empty document if none exists yet.
	// Unreadable or corrupt data fails with a *StorageError.
	Load(ctx context.Context) (*Document, error)

	// Save fully overwrites the stored document.
	// There is no concurrency token: the last writer wins.
	Save(ctx context.Context, doc *Document) error
}

// Revision summarizes one saved version of the document
type Revision struct {
	ID           string          `json:"id"`
	Total        decimal.Decimal `json:"total"`
	AccountCount int             `json:"accountCount"`
	HistoryCount int             `json:"historyCount"`
	SavedAt      time.Time       `json:"savedAt"`
}

// RevisionLister is implemented by stores that keep a log of saves
type RevisionLister interface {
	// Revisions returns at most limit revisions, newest first
	Revisions(ctx context.Context, limit int) ([]Revision, error)
}

// AssetStore defines the interface for storing binary assets such as account logos
type AssetStore interface {
	// Upload stores the content out of band and returns a reference path for Account.Logo.
	// Failures are reported as *UploadError.
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

// EventType identifies what changed in the document
type EventType string

const (
	EventAccountAdded     EventType = "account.added"
	EventAccountEdited    EventType = "account.edited"
	EventAccountDeleted   EventType = "account.deleted"
	EventBalancesRecorded EventType = "balances.recorded"
	EventDocumentReplaced EventType = "document.replaced"
)

// Event describes a saved change of the document
type Event struct {
	Type      EventType       `json:"type"`
	At        time.Time       `json:"at"`
	AccountID string          `json:"accountId,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Entry     *HistoryEntry   `json:"entry,omitempty"`
}

// EventPublisher defines the interface for broadcasting document changes
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
