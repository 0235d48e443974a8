package domain

import (
	"time"

	"github.com/ledgerforge/ledgerd/internal/id"
)

// SettlementStatus is the settlement lifecycle state (spec.md §4.5).
type SettlementStatus string

const (
	SettlementDrafting   SettlementStatus = "drafting"
	SettlementProcessing SettlementStatus = "processing"
	SettlementPending    SettlementStatus = "pending"
	SettlementPosted     SettlementStatus = "posted"
	SettlementArchiving  SettlementStatus = "archiving"
	SettlementArchived   SettlementStatus = "archived"
)

// CanTransitionTo implements the settlement state machine's legal
// transition table (spec.md §4.5). Mutations other than metadata are
// only allowed while drafting — callers enforce that separately.
func (s SettlementStatus) CanTransitionTo(next SettlementStatus) bool {
	switch s {
	case SettlementDrafting:
		return next == SettlementProcessing || next == SettlementArchiving
	case SettlementProcessing:
		return next == SettlementPending || next == SettlementArchiving
	case SettlementPending:
		return next == SettlementPosted || next == SettlementArchiving
	case SettlementPosted:
		return next == SettlementArchiving
	case SettlementArchiving:
		return next == SettlementArchived
	default: // archived is terminal
		return false
	}
}

// IsMutable reports whether add/remove-entries and field updates (other
// than metadata) are permitted in the current status.
func (s SettlementStatus) IsMutable() bool {
	return s == SettlementDrafting
}

// Settlement offsets posted Entries on SettledAccountID against
// ContraAccountID, ultimately producing a balancing Transaction.
type Settlement struct {
	ID                   string
	OrganizationID       string
	TransactionID        string // set once the balancing transaction is generated
	SettledAccountID     string
	ContraAccountID      string
	Amount               int64
	NormalBalance        NormalBalance
	Currency             string
	CurrencyExponent     int
	Status               SettlementStatus
	Description          string
	ExternalReference    string
	EffectiveAtUpperBound *time.Time
	AttachedEntries      map[string]struct{} // set of EntryID
	Metadata             map[string]any
	Created              time.Time
	Updated              time.Time
}

// NewSettlementParams carries caller-supplied fields for settlement
// creation. Currency/exponent/normalBalance are copied from the ledger
// and the settled account by the service layer before NewSettlement is
// called, per spec.md §4.2.
type NewSettlementParams struct {
	OrganizationID        string
	SettledAccountID      string
	ContraAccountID       string
	NormalBalance         NormalBalance
	Currency              string
	CurrencyExponent      int
	Description           string
	ExternalReference     string
	EffectiveAtUpperBound *time.Time
	Metadata              map[string]any
}

// NewSettlement constructs a Settlement in drafting status with no
// attached entries.
func NewSettlement(p NewSettlementParams) (*Settlement, error) {
	if p.OrganizationID == "" {
		return nil, errValidation("organizationId is required")
	}
	if p.SettledAccountID == "" || p.ContraAccountID == "" {
		return nil, errValidation("settledAccountId and contraAccountId are required")
	}
	if p.SettledAccountID == p.ContraAccountID {
		return nil, errValidation("settledAccountId and contraAccountId must differ")
	}
	if !p.NormalBalance.Valid() {
		return nil, errValidation("normalBalance must be debit or credit")
	}

	now := time.Now().UTC()
	return &Settlement{
		ID:                    id.New(id.KindLedgerSettlement),
		OrganizationID:        p.OrganizationID,
		SettledAccountID:      p.SettledAccountID,
		ContraAccountID:       p.ContraAccountID,
		NormalBalance:         p.NormalBalance,
		Currency:              p.Currency,
		CurrencyExponent:      p.CurrencyExponent,
		Status:                SettlementDrafting,
		Description:           p.Description,
		ExternalReference:     p.ExternalReference,
		EffectiveAtUpperBound: p.EffectiveAtUpperBound,
		AttachedEntries:       make(map[string]struct{}),
		Metadata:              p.Metadata,
		Created:               now,
		Updated:               now,
	}, nil
}

// CanAttach checks the eligibility rule I8: an entry may be attached
// only if it belongs to SettledAccountID and is posted.
func (s *Settlement) CanAttach(e Entry) bool {
	return e.AccountID == s.SettledAccountID && e.Status == TransactionPosted
}
