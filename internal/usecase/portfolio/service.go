package portfolio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/aggregation"
	"github.com/simaogato/networth-backend/internal/usecase/mutation"
)

// DocumentObserver is notified with every document successfully saved
type DocumentObserver interface {
	ObserveDocument(doc *domain.Document)
}

// AccountInput represents the input for creating or editing an account.
// An empty ID on creation gets a fresh UUID.
type AccountInput struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Type    domain.AccountType `json:"type"`
	IBAN    string             `json:"iban"`
	Logo    string             `json:"logo"`
	Balance decimal.Decimal    `json:"balance"`
}

func (in AccountInput) account() domain.Account {
	return domain.Account{
		ID:      strings.TrimSpace(in.ID),
		Name:    strings.TrimSpace(in.Name),
		Type:    strings.TrimSpace(in.Type),
		IBAN:    strings.TrimSpace(in.IBAN),
		Logo:    in.Logo,
		Balance: in.Balance,
	}
}

// PortfolioService applies user intents to the stored document.
// Each call loads the document, computes the next one and saves it whole.
// There is no concurrency token: concurrent writers race and the last write wins.
type PortfolioService struct {
	Store    domain.SnapshotStore
	Assets   domain.AssetStore
	Events   domain.EventPublisher
	Observer DocumentObserver
	Logger   *slog.Logger
	Now      func() time.Time
	NewID    func() string
}

// NewPortfolioService creates a new PortfolioService instance.
// assets and events may be nil when uploads or change events are not configured.
func NewPortfolioService(
	store domain.SnapshotStore,
	assets domain.AssetStore,
	events domain.EventPublisher,
	logger *slog.Logger,
) *PortfolioService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortfolioService{
		Store:  store,
		Assets: assets,
		Events: events,
		Logger: logger,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
}

// ReplaceDocument overwrites the stored document with doc
func (s *PortfolioService) ReplaceDocument(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	if doc == nil {
		return nil, &domain.ValidationError{Field: "document", Reason: "document cannot be empty"}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	next := doc.Clone()
	if err := s.Store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}
	s.afterSave(ctx, domain.EventDocumentReplaced, "", next)
	return next, nil
}

// AddAccount creates a new account
func (s *PortfolioService) AddAccount(ctx context.Context, input AccountInput) (*domain.Document, error) {
	account := input.account()
	if account.ID == "" {
		account.ID = s.NewID()
	}
	return s.apply(ctx, domain.EventAccountAdded, account.ID, func(doc *domain.Document) (*domain.Document, error) {
		return mutation.AddAccount(doc, account)
	})
}

// EditAccount replaces the account identified by input.ID
func (s *PortfolioService) EditAccount(ctx context.Context, input AccountInput) (*domain.Document, error) {
	account := input.account()
	return s.apply(ctx, domain.EventAccountEdited, account.ID, func(doc *domain.Document) (*domain.Document, error) {
		return mutation.EditAccount(doc, account)
	})
}

// DeleteAccount removes an account, leaving history untouched
func (s *PortfolioService) DeleteAccount(ctx context.Context, id string) (*domain.Document, error) {
	return s.apply(ctx, domain.EventAccountDeleted, id, func(doc *domain.Document) (*domain.Document, error) {
		return mutation.DeleteAccount(doc, id)
	})
}

// RecordBalances updates balances and appends a snapshot.
// Accounts not present in balances keep their current balance in the snapshot.
func (s *PortfolioService) RecordBalances(ctx context.Context, balances map[string]decimal.Decimal) (*domain.Document, error) {
	now := s.Now()
	return s.apply(ctx, domain.EventBalancesRecorded, "", func(doc *domain.Document) (*domain.Document, error) {
		return mutation.RecordBalances(doc, balances, now)
	})
}

// Snapshot appends a snapshot of the current balances without changing them
func (s *PortfolioService) Snapshot(ctx context.Context) (*domain.Document, error) {
	return s.RecordBalances(ctx, nil)
}

// UploadLogo stores a logo image and returns the reference to put in Account.Logo
func (s *PortfolioService) UploadLogo(ctx context.Context, filename string, content io.Reader) (string, error) {
	if s.Assets == nil {
		return "", &domain.UploadError{Reason: "uploads are not configured"}
	}
	path, err := s.Assets.Upload(ctx, filename, content)
	if err != nil {
		return "", fmt.Errorf("failed to upload logo: %w", err)
	}
	s.Logger.InfoContext(ctx, "logo uploaded", "path", path)
	return path, nil
}

// SetAccountLogo uploads a logo and attaches it to an account.
// Logic:
//  1. Check the account exists so no orphan file is written for a bad id
//  2. Upload; a failed upload leaves the document untouched
//  3. Edit the account with the returned path
func (s *PortfolioService) SetAccountLogo(ctx context.Context, id, filename string, content io.Reader) (*domain.Document, error) {
	// 1. Check the account exists
	doc, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if !doc.HasAccount(id) {
		return nil, &domain.NotFoundError{Resource: "account", ID: id}
	}

	// 2. Upload
	path, err := s.UploadLogo(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	// 3. Edit the account
	return s.apply(ctx, domain.EventAccountEdited, id, func(doc *domain.Document) (*domain.Document, error) {
		account, ok := doc.Account(id)
		if !ok {
			return nil, &domain.NotFoundError{Resource: "account", ID: id}
		}
		account.Logo = path
		return mutation.EditAccount(doc, account)
	})
}

// apply runs the load, mutate, save cycle
func (s *PortfolioService) apply(
	ctx context.Context,
	eventType domain.EventType,
	accountID string,
	mutate func(*domain.Document) (*domain.Document, error),
) (*domain.Document, error) {
	doc, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	next, err := mutate(doc)
	if err != nil {
		return nil, err
	}

	if err := s.Store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.afterSave(ctx, eventType, accountID, next)
	return next, nil
}

// afterSave notifies the observer and publishes the change event.
// The document is already saved, so a publishing failure is only logged.
func (s *PortfolioService) afterSave(ctx context.Context, eventType domain.EventType, accountID string, doc *domain.Document) {
	total := aggregation.CurrentTotal(doc.Accounts)
	s.Logger.InfoContext(ctx, "document saved",
		"event", eventType,
		"account_id", accountID,
		"accounts", len(doc.Accounts),
		"history", len(doc.History),
		"total", total.String(),
	)

	if s.Observer != nil {
		s.Observer.ObserveDocument(doc)
	}
	if s.Events == nil {
		return
	}

	event := domain.Event{
		Type:      eventType,
		At:        s.Now(),
		AccountID: accountID,
		Total:     total,
	}
	if eventType == domain.EventBalancesRecorded && len(doc.History) > 0 {
		entry := doc.History[len(doc.History)-1].Clone()
		event.Entry = &entry
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		s.Logger.WarnContext(ctx, "failed to publish event", "event", eventType, "error", err)
	}
}
