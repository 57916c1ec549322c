package dashboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
	"github.com/simaogato/networth-backend/internal/usecase/aggregation"
	"github.com/simaogato/networth-backend/internal/usecase/composition"
)

// Composition groupings accepted by GetComposition
const (
	GroupByAccount = "account"
	GroupByType    = "type"
)

// AccountChangeView is a per-account change with its display hint
type AccountChangeView struct {
	aggregation.AccountChange
	Material bool `json:"material"`
}

// AccountView is an account as shown on the dashboard
type AccountView struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Type    domain.AccountType `json:"type"`
	Logo    string             `json:"logo"`
	Balance decimal.Decimal    `json:"balance"`
	Change  AccountChangeView  `json:"change"`
}

// Summary represents the headline figures of the dashboard
type Summary struct {
	Total        decimal.Decimal      `json:"total"`
	AccountCount int                  `json:"accountCount"`
	Change       aggregation.Change   `json:"change"`
	Latest       *domain.HistoryEntry `json:"latest"`
	Previous     *domain.HistoryEntry `json:"previous"`
	Accounts     []AccountView        `json:"accounts"`
}

// SeriesKey describes one per-account series of the chart
type SeriesKey struct {
	ID   string             `json:"id"`
	Name string             `json:"name"`
	Type domain.AccountType `json:"type"`
}

// Series represents the chart dataset for a timeframe and type filter
type Series struct {
	Timeframe domain.Timeframe        `json:"timeframe"`
	TotalOnly bool                    `json:"totalOnly"`
	Keys      []SeriesKey             `json:"keys"`
	Rows      []aggregation.SeriesRow `json:"rows"`
}

// DashboardService derives read-only views from the stored document
type DashboardService struct {
	Store domain.SnapshotStore
	Now   func() time.Time
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(store domain.SnapshotStore) *DashboardService {
	return &DashboardService{
		Store: store,
		Now:   time.Now,
	}
}

// GetDocument returns the stored document as is
func (s *DashboardService) GetDocument(ctx context.Context) (*domain.Document, error) {
	doc, err := s.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// GetSummary calculates the headline figures
// Logic:
//  1. Load the document
//  2. Total: live sum of current balances
//  3. Change: live total against the second-to-last snapshot
//  4. Per account: balance against its value in that same snapshot
func (s *DashboardService) GetSummary(ctx context.Context) (*Summary, error) {
	// 1. Load the document
	doc, err := s.GetDocument(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Total
	total := aggregation.CurrentTotal(doc.Accounts)

	// 3. Change vs previous snapshot
	latest, previous := aggregation.LatestAndPrevious(aggregation.OrderedHistory(doc.History))

	// 4. Per account
	accounts := make([]AccountView, 0, len(doc.Accounts))
	for _, acc := range doc.Accounts {
		change := aggregation.PerAccountChange(acc, previous)
		accounts = append(accounts, AccountView{
			ID:      acc.ID,
			Name:    acc.Name,
			Type:    acc.Type,
			Logo:    acc.Logo,
			Balance: acc.Balance,
			Change:  AccountChangeView{AccountChange: change, Material: change.IsMaterial()},
		})
	}

	return &Summary{
		Total:        total,
		AccountCount: len(doc.Accounts),
		Change:       aggregation.ChangeVsPrevious(total, previous),
		Latest:       latest,
		Previous:     previous,
		Accounts:     accounts,
	}, nil
}

// GetSeries builds the chart dataset.
// timeframe is a preset label (empty means ALL); typeFilter is "all", "total" or an account type.
func (s *DashboardService) GetSeries(ctx context.Context, timeframe, typeFilter string) (*Series, error) {
	tf, err := domain.ParseTimeframe(timeframe)
	if err != nil {
		return nil, err
	}

	doc, err := s.GetDocument(ctx)
	if err != nil {
		return nil, err
	}

	selection := aggregation.SelectSeries(doc.Accounts, typeFilter)
	keys := make([]SeriesKey, 0, len(selection.AccountIDs))
	for _, id := range selection.AccountIDs {
		acc, _ := doc.Account(id)
		keys = append(keys, SeriesKey{ID: acc.ID, Name: acc.Name, Type: acc.Type})
	}

	rows := slices.Collect(aggregation.FilterSeries(doc.History, tf, selection.AccountIDs, s.Now()))
	if rows == nil {
		rows = []aggregation.SeriesRow{}
	}

	return &Series{
		Timeframe: tf,
		TotalOnly: selection.TotalOnly,
		Keys:      keys,
		Rows:      rows,
	}, nil
}

// GetComposition breaks current balances down by account (default) or by type
func (s *DashboardService) GetComposition(ctx context.Context, by string) (*composition.Breakdown, error) {
	if by != "" && by != GroupByAccount && by != GroupByType {
		return nil, &domain.ValidationError{Field: "by", Reason: fmt.Sprintf("unknown grouping %q", by)}
	}

	doc, err := s.GetDocument(ctx)
	if err != nil {
		return nil, err
	}

	var items []composition.Item
	if by == GroupByType {
		items = composition.ByType(doc.Accounts)
	} else {
		items = composition.ByAccount(doc.Accounts)
	}

	breakdown := composition.NewBreakdown(items)
	return &breakdown, nil
}

// GetAccountTypes returns the default account types followed by any other type in use
func (s *DashboardService) GetAccountTypes(ctx context.Context) ([]domain.AccountType, error) {
	doc, err := s.GetDocument(ctx)
	if err != nil {
		return nil, err
	}

	types := domain.DefaultAccountTypes()
	for _, acc := range doc.Accounts {
		if acc.Type != "" && !slices.Contains(types, acc.Type) {
			types = append(types, acc.Type)
		}
	}
	return types, nil
}
