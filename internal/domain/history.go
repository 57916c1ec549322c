package domain

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is an immutable snapshot of balances at one point in time.
// Accounts maps account id to the balance recorded for it; accounts created
// afterwards are absent and accounts deleted afterwards stay as orphaned keys.
type HistoryEntry struct {
	Date     Timestamp                  `json:"date"`
	Total    decimal.Decimal            `json:"total"`
	Accounts map[string]decimal.Decimal `json:"accounts"`
}

// Balance returns the balance recorded for the account id and whether it was present
func (e HistoryEntry) Balance(accountID string) (decimal.Decimal, bool) {
	v, ok := e.Accounts[accountID]
	return v, ok
}

// Clone returns a copy of the entry that shares no map with the receiver
func (e HistoryEntry) Clone() HistoryEntry {
	e.Accounts = maps.Clone(e.Accounts)
	if e.Accounts == nil {
		e.Accounts = map[string]decimal.Decimal{}
	}
	return e
}

// Timestamp is an ISO-8601 instant.
// It accepts RFC 3339 timestamps and plain dates on input, and writes the
// millisecond UTC layout produced by JavaScript's toISOString.
type Timestamp struct {
	time.Time
}

// ISOLayout is the layout written for every timestamp
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// NewTimestamp wraps t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses an RFC 3339 timestamp or a YYYY-MM-DD date (midnight UTC)
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Timestamp{}, &ValidationError{Field: "date", Reason: "invalid ISO-8601 date " + s}
	}
	return Timestamp{Time: t}, nil
}

// String returns the timestamp in ISOLayout, in UTC
func (t Timestamp) String() string {
	return t.UTC().Format(ISOLayout)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return &ValidationError{Field: "date", Reason: "date must be a string"}
	}
	parsed, err := ParseTimestamp(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
