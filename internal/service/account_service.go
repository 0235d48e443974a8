package service

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// AccountService exposes CRUD operations over accounts, scoped to the
// owning organization and ledger.
type AccountService struct {
	accounts repository.AccountRepository
	ledgers  repository.LedgerRepository
}

func NewAccountService(accounts repository.AccountRepository, ledgers repository.LedgerRepository) *AccountService {
	return &AccountService{accounts: accounts, ledgers: ledgers}
}

func (s *AccountService) Create(ctx context.Context, p domain.NewAccountParams) (*domain.Account, error) {
	if _, err := s.ledgers.Get(ctx, p.OrganizationID, p.LedgerID); err != nil {
		return nil, err
	}
	a, err := domain.NewAccount(p)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, organizationID, ledgerID, accountID string) (*domain.Account, error) {
	return s.accounts.Get(ctx, organizationID, ledgerID, accountID)
}

func (s *AccountService) List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Account, error) {
	return s.accounts.List(ctx, organizationID, ledgerID, limit, offset)
}

// Delete removes an account only when its posted and pending amounts
// are both zero,
// independent of the database's own foreign-key guard against accounts
// still referenced by entries.
func (s *AccountService) Delete(ctx context.Context, organizationID, ledgerID, accountID string) error {
	a, err := s.accounts.Get(ctx, organizationID, ledgerID, accountID)
	if err != nil {
		return err
	}
	if a.PostedAmount != 0 || a.PendingAmount != 0 {
		return apperr.Conflict("account cannot be deleted while it carries a non-zero balance")
	}
	return s.accounts.Delete(ctx, organizationID, ledgerID, accountID)
}
