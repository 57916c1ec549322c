package domain

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
)

// Document is the full persisted state: accounts plus history.
// It is the single unit exchanged with a SnapshotStore.
type Document struct {
	Accounts []Account      `json:"accounts"`
	History  []HistoryEntry `json:"history"`
}

// NewDocument returns an empty document with non-nil slices
func NewDocument() *Document {
	return &Document{
		Accounts: []Account{},
		History:  []HistoryEntry{},
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return NewDocument()
	}
	out := &Document{
		Accounts: slices.Clone(d.Accounts),
		History:  make([]HistoryEntry, 0, len(d.History)),
	}
	if out.Accounts == nil {
		out.Accounts = []Account{}
	}
	for _, e := range d.History {
		out.History = append(out.History, e.Clone())
	}
	return out
}

// Account returns the account with the given id
func (d *Document) Account(id string) (Account, bool) {
	i := d.accountIndex(id)
	if i < 0 {
		return Account{}, false
	}
	return d.Accounts[i], true
}

func (d *Document) accountIndex(id string) int {
	return slices.IndexFunc(d.Accounts, func(a Account) bool { return a.ID == id })
}

// HasAccount reports whether an account with the given id exists
func (d *Document) HasAccount(id string) bool {
	return d.accountIndex(id) >= 0
}

// Validate ensures every account is valid and account ids are unique
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Accounts))
	for _, acc := range d.Accounts {
		if err := acc.Validate(); err != nil {
			return err
		}
		if seen[acc.ID] {
			return &ValidationError{Field: "id", Reason: "duplicate account id: " + acc.ID}
		}
		seen[acc.ID] = true
	}
	return nil
}

// IsEmpty reports whether the document holds neither accounts nor history
func (d *Document) IsEmpty() bool {
	return d == nil || (len(d.Accounts) == 0 && len(d.History) == 0)
}

// normalize replaces nil slices and maps so the JSON layout always carries arrays and objects
func (d *Document) normalize() {
	if d.Accounts == nil {
		d.Accounts = []Account{}
	}
	if d.History == nil {
		d.History = []HistoryEntry{}
	}
	for i := range d.History {
		if d.History[i].Accounts == nil {
			d.History[i].Accounts = map[string]decimal.Decimal{}
		}
	}
}

// DecodeDocument reads a JSON document. Missing arrays decode as empty ones.
func DecodeDocument(r io.Reader) (*Document, error) {
	doc := NewDocument()
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// UnmarshalDocument decodes a JSON document from bytes
func UnmarshalDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc.normalize()
	return doc, nil
}

// Marshal encodes the document as compact JSON
func (d *Document) Marshal() ([]byte, error) {
	c := d.Clone()
	c.normalize()
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// MarshalIndent encodes the document the way the file store writes it
func (d *Document) MarshalIndent() ([]byte, error) {
	c := d.Clone()
	c.normalize()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}
