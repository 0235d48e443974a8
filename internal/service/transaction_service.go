package service

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/logger"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// TransactionService orchestrates the transaction engine (spec.md §4.1,
// §4.3, §4.4): it wraps the repository's three-phase pipeline in the
// bounded retry policy, enforces I3 against the owning Ledger, resolves
// idempotency-key replays, and drives the pending->posted transition.
type TransactionService struct {
	transactions repository.TransactionRepository
	ledgers      repository.LedgerRepository
	retryPolicy  RetryPolicy
	log          *logger.Logger
}

func NewTransactionService(transactions repository.TransactionRepository, ledgers repository.LedgerRepository, retryPolicy RetryPolicy, log *logger.Logger) *TransactionService {
	return &TransactionService{transactions: transactions, ledgers: ledgers, retryPolicy: retryPolicy, log: log}
}

// CreateParams carries the caller-supplied fields for Create; OrganizationID
// and LedgerID MUST come from the authenticated token and URL path
// (spec.md §9 open question) — callers must never synthesize a default.
type CreateParams struct {
	OrganizationID string
	LedgerID       string
	Entries        []domain.Entry
	IdempotencyKey string
	Description    string
	Status         domain.TransactionStatus
}

// Create validates I3 against the ledger, then runs the three-phase
// engine under the retry wrapper. On an idempotency-key collision with
// an existing transaction carrying identical content it returns the
// stored transaction with no error, per spec.md §7's "MAY respond 200"
// option.
func (s *TransactionService) Create(ctx context.Context, p CreateParams) (*domain.Transaction, error) {
	ledger, err := s.ledgers.Get(ctx, p.OrganizationID, p.LedgerID)
	if err != nil {
		return nil, err
	}

	for i := range p.Entries {
		if p.Entries[i].Currency != ledger.Currency || p.Entries[i].CurrencyExponent != ledger.CurrencyExponent {
			return nil, apperr.Validation("entry currency does not match ledger currency (I3)")
		}
	}

	tx, err := domain.NewTransaction(domain.NewTransactionParams{
		OrganizationID: p.OrganizationID,
		LedgerID:       p.LedgerID,
		Entries:        p.Entries,
		IdempotencyKey: p.IdempotencyKey,
		Description:    p.Description,
		Status:         p.Status,
	})
	if err != nil {
		return nil, err
	}

	if p.IdempotencyKey != "" {
		existing, err := s.transactions.GetByIdempotencyKey(ctx, p.OrganizationID, p.LedgerID, p.IdempotencyKey)
		if err == nil {
			if tx.SameContent(existing) {
				return existing, nil
			}
			return nil, apperr.Conflict("idempotency key already used with different content")
		}
		if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.KindNotFound {
			return nil, err
		}
	}

	return WithRetry(ctx, s.log, s.retryPolicy, func(ctx context.Context) (*domain.Transaction, error) {
		return s.commit(ctx, tx)
	})
}

// commit performs one full pass of the three-phase pipeline: Phase 1
// read, Phase 2 in-memory apply, Phase 3 write. Each retry re-enters
// here so Phase 1 always observes fresh account state (spec.md §4.3).
func (s *TransactionService) commit(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	accountIDs := make([]string, len(tx.Entries))
	for i, e := range tx.Entries {
		accountIDs[i] = e.AccountID
	}

	accountsByID, err := s.transactions.ReadAccountsForUpdate(ctx, tx.OrganizationID, tx.LedgerID, accountIDs)
	if err != nil {
		return nil, err
	}

	posted := tx.Status == domain.TransactionPosted
	mutated := make([]*domain.Account, 0, len(tx.Entries))
	for _, e := range tx.Entries {
		account, ok := accountsByID[e.AccountID]
		if !ok {
			return nil, apperr.NotFound("account " + e.AccountID)
		}
		next := account.ApplyEntry(e.Direction, e.Amount, posted)
		mutated = append(mutated, &next)
	}

	return s.transactions.CreateTransaction(ctx, tx, mutated)
}

func (s *TransactionService) Get(ctx context.Context, organizationID, ledgerID, transactionID string) (*domain.Transaction, error) {
	return s.transactions.Get(ctx, organizationID, ledgerID, transactionID)
}

func (s *TransactionService) List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Transaction, error) {
	return s.transactions.List(ctx, organizationID, ledgerID, limit, offset)
}

// Post transitions a pending transaction to posted (spec.md §4.4): it
// moves each account's pending-field contribution into the posted
// fields under the same three-phase protocol, via the retry wrapper.
func (s *TransactionService) Post(ctx context.Context, organizationID, ledgerID, transactionID string) (*domain.Transaction, error) {
	return WithRetry(ctx, s.log, s.retryPolicy, func(ctx context.Context) (*domain.Transaction, error) {
		return s.post(ctx, organizationID, ledgerID, transactionID)
	})
}

func (s *TransactionService) post(ctx context.Context, organizationID, ledgerID, transactionID string) (*domain.Transaction, error) {
	tx, err := s.transactions.Get(ctx, organizationID, ledgerID, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.Status.CanTransitionTo(domain.TransactionPosted) {
		return nil, apperr.Conflict("transaction cannot transition to posted from " + string(tx.Status))
	}

	accountIDs := make([]string, len(tx.Entries))
	for i, e := range tx.Entries {
		accountIDs[i] = e.AccountID
	}
	accountsByID, err := s.transactions.ReadAccountsForUpdate(ctx, organizationID, ledgerID, accountIDs)
	if err != nil {
		return nil, err
	}

	mutated := make([]*domain.Account, 0, len(tx.Entries))
	for _, e := range tx.Entries {
		account, ok := accountsByID[e.AccountID]
		if !ok {
			return nil, apperr.NotFound("account " + e.AccountID)
		}
		next := account.PostPending(e.Direction, e.Amount)
		mutated = append(mutated, &next)
	}

	tx.Status = domain.TransactionPosted
	for i := range tx.Entries {
		tx.Entries[i].Status = domain.TransactionPosted
	}

	return s.transactions.PostTransaction(ctx, tx, mutated)
}

// Archive moves a transaction to the terminal archived state. Archiving
// a posted transaction requires allowPostedDeletion (a test-only escape
// hatch; spec.md §6 environment variables).
func (s *TransactionService) Archive(ctx context.Context, organizationID, ledgerID, transactionID string, allowPostedDeletion bool) error {
	tx, err := s.transactions.Get(ctx, organizationID, ledgerID, transactionID)
	if err != nil {
		return err
	}
	if !tx.Status.CanTransitionTo(domain.TransactionArchived) {
		return apperr.Conflict("transaction cannot be archived from " + string(tx.Status))
	}
	if tx.Status == domain.TransactionPosted && !allowPostedDeletion {
		return apperr.Forbidden("archiving a posted transaction is disabled outside test mode")
	}
	return s.transactions.Archive(ctx, organizationID, ledgerID, transactionID)
}
