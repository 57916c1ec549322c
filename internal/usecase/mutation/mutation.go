// Package mutation produces the next Document from the current one and a user intent.
//
// Every operation works on a deep copy: on error the input is returned untouched and
// nothing is partially applied. Persistence belongs to the caller.
package mutation

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/networth-backend/internal/domain"
)

const resourceAccount = "account"

// AddAccount appends a new account. History is unchanged.
// The id is supplied by the caller and must not collide with an existing account.
func AddAccount(doc *domain.Document, account domain.Account) (*domain.Document, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if doc.HasAccount(account.ID) {
		return nil, &domain.ValidationError{
			Field:  "id",
			Reason: fmt.Sprintf("account id already exists: %s", account.ID),
		}
	}

	next := doc.Clone()
	next.Accounts = append(next.Accounts, account)
	return next, nil
}

// EditAccount replaces the account with the same id, keeping its position
func EditAccount(doc *domain.Document, account domain.Account) (*domain.Document, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	i := indexOf(doc, account.ID)
	if i < 0 {
		return nil, &domain.NotFoundError{Resource: resourceAccount, ID: account.ID}
	}

	next := doc.Clone()
	next.Accounts[i] = account
	return next, nil
}

// DeleteAccount removes the account with the given id.
// History entries keep their values for that id as orphaned keys.
func DeleteAccount(doc *domain.Document, id string) (*domain.Document, error) {
	i := indexOf(doc, id)
	if i < 0 {
		return nil, &domain.NotFoundError{Resource: resourceAccount, ID: id}
	}

	next := doc.Clone()
	next.Accounts = slices.Delete(next.Accounts, i, i+1)
	return next, nil
}

// SeedBalances maps every account id to its current balance
func SeedBalances(accounts []domain.Account) map[string]decimal.Decimal {
	seeded := make(map[string]decimal.Decimal, len(accounts))
	for _, acc := range accounts {
		seeded[acc.ID] = acc.Balance
	}
	return seeded
}

// RecordBalances applies new balances and appends a snapshot of them.
// Logic:
//  1. Reject ids that are not in the account set
//  2. Seed the snapshot map from current balances, then override with balances
//  3. Update every account from the snapshot map and sum the new total
//  4. Append {date: now, total, accounts: snapshot map}
//
// This is the only operation that creates a HistoryEntry.
func RecordBalances(doc *domain.Document, balances map[string]decimal.Decimal, now time.Time) (*domain.Document, error) {
	// 1. Reject unknown ids, reported in a stable order
	for _, id := range slices.Sorted(maps.Keys(balances)) {
		if !doc.HasAccount(id) {
			return nil, &domain.ValidationError{
				Field:  "balances",
				Reason: fmt.Sprintf("unknown account id: %s", id),
			}
		}
	}

	// 2. Seed then override
	snapshot := SeedBalances(doc.Accounts)
	maps.Copy(snapshot, balances)

	// 3. Update accounts
	next := doc.Clone()
	total := decimal.Zero
	for i := range next.Accounts {
		next.Accounts[i].Balance = snapshot[next.Accounts[i].ID]
		total = total.Add(next.Accounts[i].Balance)
	}

	// 4. Append the snapshot
	next.History = append(next.History, domain.HistoryEntry{
		Date:     domain.NewTimestamp(now),
		Total:    total,
		Accounts: snapshot,
	})
	return next, nil
}

func indexOf(doc *domain.Document, id string) int {
	return slices.IndexFunc(doc.Accounts, func(a domain.Account) bool { return a.ID == id })
}
