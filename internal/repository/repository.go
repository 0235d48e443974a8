// Package repository defines the persistence ports consumed by the
// service layer. Concrete implementations live in internal/postgres.
package repository

import (
	"context"
	"time"

	"github.com/ledgerforge/ledgerd/internal/domain"
)

// LedgerRepository persists Ledger entities.
type LedgerRepository interface {
	Create(ctx context.Context, l *domain.Ledger) error
	Get(ctx context.Context, organizationID, ledgerID string) (*domain.Ledger, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Ledger, error)
	Delete(ctx context.Context, organizationID, ledgerID string) error
}

// AccountRepository persists Account entities and serves non-locking
// batch reads. The transaction engine's Phase 1 read goes through
// TransactionRepository.ReadAccountsForUpdate, not through this port.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, organizationID, ledgerID, accountID string) (*domain.Account, error)
	// GetBatch fetches all accounts in accountIDs scoped to the tenant, with
	// no row locks (spec.md §4.1 Phase 1). Missing ids are simply absent
	// from the result map; callers must detect that themselves.
	GetBatch(ctx context.Context, organizationID, ledgerID string, accountIDs []string) (map[string]*domain.Account, error)
	List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Account, error)
	Delete(ctx context.Context, organizationID, ledgerID, accountID string) error
}

// TransactionRepository is the transaction engine's persistence port:
// ReadAccountsForUpdate serves Phase 1 and CreateTransaction/
// PostTransaction serve Phase 3 of the read-validate-write pipeline of
// spec.md §4.1 (Phase 2 runs in memory in the service layer);
// everything else is plain CRUD.
type TransactionRepository interface {
	// CreateTransaction executes Phase 3 for a brand-new transaction.
	// accounts is the already-mutated (Phase 2) set of Account values the
	// caller wants written; the repository re-derives the WHERE
	// lock_version clause from each Account's LockVersion field.
	CreateTransaction(ctx context.Context, tx *domain.Transaction, accounts []*domain.Account) (*domain.Transaction, error)

	// PostTransaction executes the same Phase 3 write to move a pending
	// transaction's entries into posted state, writing the given
	// already-mutated Account set (spec.md §4.4).
	PostTransaction(ctx context.Context, tx *domain.Transaction, accounts []*domain.Account) (*domain.Transaction, error)

	Get(ctx context.Context, organizationID, ledgerID, transactionID string) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, organizationID, ledgerID, idempotencyKey string) (*domain.Transaction, error)
	List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Transaction, error)
	Archive(ctx context.Context, organizationID, ledgerID, transactionID string) error

	// ReadAccountsForUpdate performs Phase 1: a plain, non-locking batch
	// select of the accounts referenced by accountIDs.
	ReadAccountsForUpdate(ctx context.Context, organizationID, ledgerID string, accountIDs []string) (map[string]*domain.Account, error)
}

// SettlementRepository persists Settlement entities and their attached
// entry sets.
type SettlementRepository interface {
	Create(ctx context.Context, s *domain.Settlement) error
	Get(ctx context.Context, organizationID, settlementID string) (*domain.Settlement, error)
	List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Settlement, error)
	AddEntries(ctx context.Context, organizationID, settlementID string, entryIDs []string) error
	RemoveEntries(ctx context.Context, organizationID, settlementID string, entryIDs []string) error
	// UpdateStatus performs an optimistic-style guarded transition: it
	// succeeds only if the settlement's current status equals from.
	UpdateStatus(ctx context.Context, organizationID, settlementID string, from, to domain.SettlementStatus, transactionID string) error
	EntriesEligibleForAttachment(ctx context.Context, organizationID, settledAccountID string, entryIDs []string) ([]domain.Entry, error)
	// EntriesByID fetches entries by id with no attachment-eligibility
	// filter, used to price entries already attached to a settlement.
	EntriesByID(ctx context.Context, organizationID string, entryIDs []string) ([]domain.Entry, error)
}

// MonitorRepository persists BalanceMonitor entities.
type MonitorRepository interface {
	Create(ctx context.Context, m *domain.BalanceMonitor) error
	Get(ctx context.Context, monitorID string) (*domain.BalanceMonitor, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.BalanceMonitor, error)
	Delete(ctx context.Context, monitorID string) error
}

// StatementRepository persists AccountStatement entities and supplies the
// balance-at-time lookups needed to compute StartingBalances/EndingBalances.
type StatementRepository interface {
	Create(ctx context.Context, s *domain.AccountStatement) error
	Get(ctx context.Context, statementID string) (*domain.AccountStatement, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.AccountStatement, error)
	// BalancesAsOf returns an account's balances at t by reversing, on
	// PostedAmount and AvailableAmount, the posted entries created after t;
	// the other balance fields are returned at their current values.
	BalancesAsOf(ctx context.Context, accountID string, t time.Time) (domain.AccountBalances, int64, error)
}
