package domain

import (
	"time"

	"github.com/ledgerforge/ledgerd/internal/id"
)

// AccountBalances is a snapshot of an account's balance fields at a
// point in time, used as the starting/ending balances of a statement.
type AccountBalances struct {
	PendingAmount    int64
	PostedAmount     int64
	AvailableAmount  int64
	PendingCredits   int64
	PendingDebits    int64
	PostedCredits    int64
	PostedDebits     int64
	AvailableCredits int64
	AvailableDebits  int64
}

// SnapshotBalances extracts the AccountBalances view from an Account.
func SnapshotBalances(a Account) AccountBalances {
	return AccountBalances{
		PendingAmount:    a.PendingAmount,
		PostedAmount:     a.PostedAmount,
		AvailableAmount:  a.AvailableAmount,
		PendingCredits:   a.PendingCredits,
		PendingDebits:    a.PendingDebits,
		PostedCredits:    a.PostedCredits,
		PostedDebits:     a.PostedDebits,
		AvailableCredits: a.AvailableCredits,
		AvailableDebits:  a.AvailableDebits,
	}
}

// AccountStatement is the generated record of an account's activity
// between StartDatetime (inclusive) and EndDatetime (exclusive).
type AccountStatement struct {
	ID                  string
	LedgerID            string
	AccountID           string
	StartDatetime       time.Time
	EndDatetime         time.Time
	LedgerAccountVersion int64
	StartingBalances    AccountBalances
	EndingBalances      AccountBalances
	Currency            string
	CurrencyExponent    int
	Created             time.Time
	Updated             time.Time
}

// NewAccountStatementParams carries the inputs needed to generate a
// statement; StartingBalances/EndingBalances/LedgerAccountVersion are
// supplied by the repository (spec.md §12 supplement), not the caller.
type NewAccountStatementParams struct {
	LedgerID             string
	AccountID            string
	StartDatetime        time.Time
	EndDatetime          time.Time
	LedgerAccountVersion int64
	StartingBalances     AccountBalances
	EndingBalances       AccountBalances
	Currency             string
	CurrencyExponent     int
}

// NewAccountStatement validates and constructs an AccountStatement.
func NewAccountStatement(p NewAccountStatementParams) (*AccountStatement, error) {
	if p.LedgerID == "" || p.AccountID == "" {
		return nil, errValidation("ledgerId and accountId are required")
	}
	if !p.EndDatetime.After(p.StartDatetime) {
		return nil, errValidation("endDatetime must be after startDatetime")
	}

	now := time.Now().UTC()
	return &AccountStatement{
		ID:                   id.New(id.KindLedgerAccountStmt),
		LedgerID:             p.LedgerID,
		AccountID:            p.AccountID,
		StartDatetime:        p.StartDatetime,
		EndDatetime:          p.EndDatetime,
		LedgerAccountVersion: p.LedgerAccountVersion,
		StartingBalances:     p.StartingBalances,
		EndingBalances:       p.EndingBalances,
		Currency:             p.Currency,
		CurrencyExponent:     p.CurrencyExponent,
		Created:              now,
		Updated:              now,
	}, nil
}
