package domain

import (
	"time"

	"github.com/ledgerforge/ledgerd/internal/id"
)

// TransactionStatus is the transaction lifecycle state (spec.md §4.4).
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionPosted   TransactionStatus = "posted"
	TransactionArchived TransactionStatus = "archived"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionPosted, TransactionArchived:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the transaction state machine allows
// moving from s to next (spec.md §4.4). Illegal transitions must
// surface as non-retryable apperr.Conflict errors at the service
// layer, not be silently permitted here.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionPending:
		return next == TransactionPosted || next == TransactionArchived
	case TransactionPosted:
		return next == TransactionArchived
	default: // archived is terminal
		return false
	}
}

// Transaction is an immutable (post-construction) record of a balanced
// set of Entries moving value between Accounts.
type Transaction struct {
	ID             string
	OrganizationID string
	LedgerID       string
	Entries        []Entry
	IdempotencyKey string
	Description    string
	Status         TransactionStatus
	EffectiveAt    time.Time
	Metadata       map[string]any
	Created        time.Time
	Updated        time.Time
}

// NewTransactionParams carries caller-supplied fields for transaction
// creation; Entries must already carry AccountID/Direction/Amount and,
// per I3, a currency/exponent that the caller believes matches the
// ledger (checked against the ledger by TransactionService.Create
// before construction).
type NewTransactionParams struct {
	OrganizationID string
	LedgerID       string
	Entries        []Entry
	IdempotencyKey string
	Description    string
	Status         TransactionStatus
	EffectiveAt    time.Time
	Metadata       map[string]any
}

// NewTransaction validates I1 (balanced) and I2 (one entry per account)
// at construction time, per spec.md §4.1: "entries already validated for
// I1 and I2 at entity construction."
func NewTransaction(p NewTransactionParams) (*Transaction, error) {
	if p.OrganizationID == "" {
		return nil, errValidation("organizationId is required")
	}
	if p.LedgerID == "" {
		return nil, errValidation("ledgerId is required")
	}
	if len(p.Entries) < 2 {
		return nil, errValidation("transaction must have at least 2 entries")
	}
	status := p.Status
	if status == "" {
		status = TransactionPending
	}
	if status != TransactionPending && status != TransactionPosted {
		return nil, errValidation("transaction may only be created as pending or posted")
	}

	seenAccounts := make(map[string]struct{}, len(p.Entries))
	var debitSum, creditSum int64
	for i := range p.Entries {
		e := &p.Entries[i]
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seenAccounts[e.AccountID]; dup {
			return nil, errValidation("duplicate account in transaction entries (I2)")
		}
		seenAccounts[e.AccountID] = struct{}{}

		if e.Direction == Debit {
			debitSum += e.Amount
		} else {
			creditSum += e.Amount
		}
	}
	if debitSum != creditSum {
		return nil, errValidation("transaction is not balanced: sum(debits) must equal sum(credits)")
	}

	now := time.Now().UTC()
	effectiveAt := p.EffectiveAt
	if effectiveAt.IsZero() {
		effectiveAt = now
	}

	txID := id.New(id.KindLedgerTransaction)
	entries := make([]Entry, len(p.Entries))
	for i, e := range p.Entries {
		e.ID = id.New(id.KindLedgerTransfer)
		e.OrganizationID = p.OrganizationID
		e.TransactionID = txID
		e.Status = status
		entries[i] = e
	}

	return &Transaction{
		ID:             txID,
		OrganizationID: p.OrganizationID,
		LedgerID:       p.LedgerID,
		Entries:        entries,
		IdempotencyKey: p.IdempotencyKey,
		Description:    p.Description,
		Status:         status,
		EffectiveAt:    effectiveAt,
		Metadata:       p.Metadata,
		Created:        now,
		Updated:        now,
	}, nil
}

// SameContent reports whether two transactions carry equivalent entries
// (same accounts, directions, amounts) — used to decide whether an
// idempotency-key replay may be answered with the stored transaction
// (spec.md §7, "MAY respond 200 with the stored transaction").
func (t *Transaction) SameContent(other *Transaction) bool {
	if len(t.Entries) != len(other.Entries) {
		return false
	}
	byAccount := make(map[string]Entry, len(t.Entries))
	for _, e := range t.Entries {
		byAccount[e.AccountID] = e
	}
	for _, oe := range other.Entries {
		e, ok := byAccount[oe.AccountID]
		if !ok || e.Direction != oe.Direction || e.Amount != oe.Amount || e.Currency != oe.Currency {
			return false
		}
	}
	return true
}
