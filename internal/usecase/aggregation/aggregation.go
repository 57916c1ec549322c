// Package aggregation computes headline figures and chart series from accounts and history.
//
// Every function is pure: inputs are never mutated and nothing is cached between calls.
// Numeric edge cases (empty history, zero denominators, accounts missing from older
// snapshots) resolve to defined fallback values instead of errors.
package aggregation

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// MaterialChangeThreshold is the percent magnitude below which a change is
// not worth highlighting. Consumers decide; the engine never rounds.
var MaterialChangeThreshold = decimal.RequireFromString("0.01")

// Change is the period-over-period movement of the total
type Change struct {
	Delta   decimal.Decimal `json:"delta"`
	Percent decimal.Decimal `json:"percent"`
}

// AccountChange is the movement of a single account since the previous snapshot.
// Available is false when the previous snapshot has no usable balance for the account.
type AccountChange struct {
	Available bool            `json:"available"`
	Previous  decimal.Decimal `json:"previous"`
	Percent   decimal.Decimal `json:"percent"`
}

// IsMaterial reports whether the change is large enough to display
func (c AccountChange) IsMaterial() bool {
	return c.Available && c.Percent.Abs().GreaterThanOrEqual(MaterialChangeThreshold)
}

// CurrentTotal sums the balance of every account. It returns zero for an empty set.
func CurrentTotal(accounts []domain.Account) decimal.Decimal {
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance)
	}
	return total
}

// OrderedHistory returns a copy of history sorted ascending by date.
// The sort is stable: entries with the same date keep their relative order.
func OrderedHistory(history []domain.HistoryEntry) []domain.HistoryEntry {
	ordered := slices.Clone(history)
	slices.SortStableFunc(ordered, func(a, b domain.HistoryEntry) int {
		return a.Date.Compare(b.Date.Time)
	})
	return ordered
}

// LatestAndPrevious returns the last and second-to-last entries of an ordered history.
// Either is nil when the history is too short.
func LatestAndPrevious(ordered []domain.HistoryEntry) (latest, previous *domain.HistoryEntry) {
	n := len(ordered)
	if n >= 1 {
		latest = &ordered[n-1]
	}
	if n >= 2 {
		previous = &ordered[n-2]
	}
	return latest, previous
}

// ChangeVsPrevious compares the live total with the previous snapshot total.
// Without a previous snapshot both figures are zero; a zero previous total yields a zero percent.
func ChangeVsPrevious(currentTotal decimal.Decimal, previous *domain.HistoryEntry) Change {
	if previous == nil {
		return Change{Delta: decimal.Zero, Percent: decimal.Zero}
	}
	delta := currentTotal.Sub(previous.Total)
	percent := decimal.Zero
	if !previous.Total.IsZero() {
		percent = delta.Div(previous.Total).Mul(hundred)
	}
	return Change{Delta: delta, Percent: percent}
}

// PerAccountChange compares an account's balance with its value in the previous snapshot.
// A missing or zero previous balance reports no comparison rather than 0%.
func PerAccountChange(account domain.Account, previous *domain.HistoryEntry) AccountChange {
	if previous == nil {
		return AccountChange{}
	}
	prev, ok := previous.Balance(account.ID)
	if !ok || prev.IsZero() {
		return AccountChange{}
	}
	return AccountChange{
		Available: true,
		Previous:  prev,
		Percent:   account.Balance.Sub(prev).Div(prev).Mul(hundred),
	}
}
