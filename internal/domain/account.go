package domain

import (
	"time"

	"github.com/ledgerforge/ledgerd/internal/id"
)

// NormalBalance is the side an account's balance is expected to
// accumulate on. Immutable after creation (spec.md §3).
type NormalBalance string

const (
	NormalBalanceDebit  NormalBalance = "debit"
	NormalBalanceCredit NormalBalance = "credit"
)

func (n NormalBalance) Valid() bool {
	return n == NormalBalanceDebit || n == NormalBalanceCredit
}

// Account holds live per-account balances in minor units. All monetary
// fields are signed int64s (I4); LockVersion is the optimistic
// concurrency token (I5).
type Account struct {
	ID               string
	OrganizationID   string
	LedgerID         string
	Name             string
	Description      string
	NormalBalance    NormalBalance
	PendingAmount    int64
	PostedAmount     int64
	AvailableAmount  int64
	PendingCredits   int64
	PendingDebits    int64
	PostedCredits    int64
	PostedDebits     int64
	AvailableCredits int64
	AvailableDebits  int64
	LockVersion      int64
	Metadata         map[string]any
	Created          time.Time
	Updated          time.Time
}

// NewAccountParams carries caller-supplied fields for account creation.
type NewAccountParams struct {
	OrganizationID string
	LedgerID       string
	Name           string
	Description    string
	NormalBalance  NormalBalance
	Metadata       map[string]any
}

// NewAccount validates and constructs a fresh Account with all balances
// and LockVersion at zero.
func NewAccount(p NewAccountParams) (*Account, error) {
	if p.OrganizationID == "" {
		return nil, errValidation("organizationId is required")
	}
	if p.LedgerID == "" {
		return nil, errValidation("ledgerId is required")
	}
	if p.Name == "" {
		return nil, errValidation("account name is required")
	}
	if !p.NormalBalance.Valid() {
		return nil, errValidation("normalBalance must be debit or credit")
	}

	now := time.Now().UTC()
	return &Account{
		ID:             id.New(id.KindLedgerAccount),
		OrganizationID: p.OrganizationID,
		LedgerID:       p.LedgerID,
		Name:           p.Name,
		Description:    p.Description,
		NormalBalance:  p.NormalBalance,
		LockVersion:    0,
		Metadata:       p.Metadata,
		Created:        now,
		Updated:        now,
	}, nil
}

// ApplyEntry returns a new Account value reflecting the effect of entry,
// per spec.md §4.1 Phase 2. It does not touch LockVersion — the
// increment happens at serialization time in Phase 3. posted reports
// whether the entry is being applied as a posted entry (true) or a
// pending one (false); for transactions created directly in posted
// status both the posted and available fields move together, and for
// pending-status transactions the pending fields move, plus the
// available fields for outgoing (decreasing) entries only (I7).
func (a Account) ApplyEntry(direction Direction, amount int64, posted bool) Account {
	next := a

	increasing := (a.NormalBalance == NormalBalanceDebit && direction == Debit) ||
		(a.NormalBalance == NormalBalanceCredit && direction == Credit)

	if posted {
		if direction == Debit {
			next.PostedDebits += amount
		} else {
			next.PostedCredits += amount
		}
		if increasing {
			next.PostedAmount += amount
			next.AvailableAmount += amount
		} else {
			next.PostedAmount -= amount
			next.AvailableAmount -= amount
		}
		if direction == Debit {
			next.AvailableDebits += amount
		} else {
			next.AvailableCredits += amount
		}
		return next
	}

	// Pending entries move only the pending fields; per I7 available
	// reflects pending *outgoing* entries (decreasing ones) too, so that
	// funds committed to a not-yet-posted outflow are not double-spent.
	if direction == Debit {
		next.PendingDebits += amount
	} else {
		next.PendingCredits += amount
	}
	if increasing {
		next.PendingAmount += amount
	} else {
		next.PendingAmount -= amount
		next.AvailableAmount -= amount
		if direction == Debit {
			next.AvailableDebits += amount
		} else {
			next.AvailableCredits += amount
		}
	}
	return next
}

// PostPending moves amount/direction out of the pending fields and into
// the posted fields, for the pending->posted transition (spec.md §4.4).
// It mirrors ApplyEntry(direction, amount, posted=true) for the posted
// side while reversing the pending-side effect of the original entry.
func (a Account) PostPending(direction Direction, amount int64) Account {
	next := a

	increasing := (a.NormalBalance == NormalBalanceDebit && direction == Debit) ||
		(a.NormalBalance == NormalBalanceCredit && direction == Credit)

	if direction == Debit {
		next.PendingDebits -= amount
	} else {
		next.PendingCredits -= amount
	}
	if increasing {
		next.PendingAmount -= amount
	} else {
		next.PendingAmount += amount
		next.AvailableAmount += amount
		if direction == Debit {
			next.AvailableDebits -= amount
		} else {
			next.AvailableCredits -= amount
		}
	}

	return next.ApplyEntry(direction, amount, true)
}

// CheckBalanceIdentities verifies the posted and pending halves of
// invariant I7 for the account's current field values; the available
// fields are not checked.
func (a Account) CheckBalanceIdentities() bool {
	var expectedPosted, expectedPending int64
	if a.NormalBalance == NormalBalanceDebit {
		expectedPosted = a.PostedDebits - a.PostedCredits
		expectedPending = a.PendingDebits - a.PendingCredits
	} else {
		expectedPosted = a.PostedCredits - a.PostedDebits
		expectedPending = a.PendingCredits - a.PendingDebits
	}
	return expectedPosted == a.PostedAmount && expectedPending == a.PendingAmount
}
