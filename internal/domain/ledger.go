package domain

import (
	"time"

	"github.com/ledgerforge/ledgerd/internal/id"
)

// Ledger is the tenant-scoped container for accounts and transactions.
// Currency and CurrencyExponent are immutable once set (spec.md §3).
type Ledger struct {
	ID               string
	OrganizationID   string
	Name             string
	Description      string
	Currency         string
	CurrencyExponent int
	Metadata         map[string]any
	Created          time.Time
	Updated          time.Time
}

// NewLedgerParams carries the fields a caller supplies when creating a
// ledger; server-assigned fields (ID, Created, Updated) are filled in.
type NewLedgerParams struct {
	OrganizationID   string
	Name             string
	Description      string
	Currency         string
	CurrencyExponent int
	Metadata         map[string]any
}

// NewLedger validates and constructs a Ledger. CurrencyExponent must be
// in [0,18] per spec.md §8's boundary rule.
func NewLedger(p NewLedgerParams) (*Ledger, error) {
	if p.OrganizationID == "" {
		return nil, errValidation("organizationId is required")
	}
	if p.Name == "" {
		return nil, errValidation("ledger name is required")
	}
	if p.Currency == "" {
		return nil, errValidation("currency is required")
	}
	if p.CurrencyExponent < 0 || p.CurrencyExponent > 18 {
		return nil, errValidation("currencyExponent must be in [0,18]")
	}

	now := time.Now().UTC()
	return &Ledger{
		ID:               id.New(id.KindLedger),
		OrganizationID:   p.OrganizationID,
		Name:             p.Name,
		Description:      p.Description,
		Currency:         p.Currency,
		CurrencyExponent: p.CurrencyExponent,
		Metadata:         p.Metadata,
		Created:          now,
		Updated:          now,
	}, nil
}
