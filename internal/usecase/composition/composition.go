// Package composition breaks current balances down into share-weighted buckets,
// either per account or per account type.
//
// Only strictly positive balances take part: a debt or an empty account has no slice.
// Callers needing gross totals use the aggregation package instead.
package composition

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Item is a named bucket of the composition
type Item struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// Slice is an item together with its share of the grand total, in percent
type Slice struct {
	Item
	Share decimal.Decimal `json:"share"`
}

// Breakdown is a complete composition view
type Breakdown struct {
	Total decimal.Decimal `json:"total"`
	Items []Slice         `json:"items"`
}

// ByAccount maps every account with a positive balance to {name, balance},
// sorted descending by value. Ties keep the account order.
func ByAccount(accounts []domain.Account) []Item {
	items := []Item{}
	for _, acc := range accounts {
		if !acc.Balance.IsPositive() {
			continue
		}
		items = append(items, Item{Name: acc.Name, Value: acc.Balance})
	}
	sortDescending(items)
	return items
}

// ByType sums positive balances per account type, sorted descending by value.
// Ties keep the order in which the types first appear.
func ByType(accounts []domain.Account) []Item {
	items := []Item{}
	index := map[string]int{}
	for _, acc := range accounts {
		if !acc.Balance.IsPositive() {
			continue
		}
		i, ok := index[acc.Type]
		if !ok {
			i = len(items)
			index[acc.Type] = i
			items = append(items, Item{Name: acc.Type, Value: decimal.Zero})
		}
		items[i].Value = items[i].Value.Add(acc.Balance)
	}
	sortDescending(items)
	return items
}

// ShareOf returns the item's share of total in percent, or zero when total is not positive
func ShareOf(item Item, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return item.Value.Div(total).Mul(hundred)
}

// Total sums the values of items
func Total(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Value)
	}
	return total
}

// NewBreakdown attaches shares to items, using their sum as the grand total
func NewBreakdown(items []Item) Breakdown {
	total := Total(items)
	out := make([]Slice, 0, len(items))
	for _, item := range items {
		out = append(out, Slice{Item: item, Share: ShareOf(item, total)})
	}
	return Breakdown{Total: total, Items: out}
}

func sortDescending(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return b.Value.Cmp(a.Value)
	})
}
