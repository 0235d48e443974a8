package service

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// LedgerService exposes CRUD operations over ledgers, scoped to the
// calling organization.
type LedgerService struct {
	ledgers repository.LedgerRepository
}

func NewLedgerService(ledgers repository.LedgerRepository) *LedgerService {
	return &LedgerService{ledgers: ledgers}
}

func (s *LedgerService) Create(ctx context.Context, p domain.NewLedgerParams) (*domain.Ledger, error) {
	l, err := domain.NewLedger(p)
	if err != nil {
		return nil, err
	}
	if err := s.ledgers.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *LedgerService) Get(ctx context.Context, organizationID, ledgerID string) (*domain.Ledger, error) {
	return s.ledgers.Get(ctx, organizationID, ledgerID)
}

func (s *LedgerService) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Ledger, error) {
	return s.ledgers.List(ctx, organizationID, limit, offset)
}

// Delete removes a ledger. The database's foreign-key constraints
// reject deletion while accounts still reference the ledger, surfaced
// by the repository as a Conflict.
func (s *LedgerService) Delete(ctx context.Context, organizationID, ledgerID string) error {
	return s.ledgers.Delete(ctx, organizationID, ledgerID)
}
