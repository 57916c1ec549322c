package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The persisted document stores balances and totals as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// AccountType is a free-form category label for an account
type AccountType = string

// Default account types offered when creating an account.
// Any other label is accepted as well.
const (
	AccountTypeChecking AccountType = "Cuenta Corriente"
	AccountTypeFunds    AccountType = "Fondos"
	AccountTypeETF      AccountType = "ETF"
	AccountTypeInterest AccountType = "Cuenta Remunerada"
)

// DefaultAccountTypes returns the account types offered by default, in display order
func DefaultAccountTypes() []AccountType {
	return []AccountType{
		AccountTypeChecking,
		AccountTypeFunds,
		AccountTypeETF,
		AccountTypeInterest,
	}
}

// Account represents a named financial account and its current balance
type Account struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Type    AccountType     `json:"type"`
	IBAN    string          `json:"iban"`
	Logo    string          `json:"logo"`
	Balance decimal.Decimal `json:"balance"`
}

// Validate ensures the account adheres to domain rules
// Returns a *ValidationError if validation fails
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return &ValidationError{Field: "id", Reason: "account id cannot be empty"}
	}
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: "account name cannot be empty"}
	}
	return nil
}
