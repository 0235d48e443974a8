package service

import (
	"context"
	"time"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// StatementService generates and retrieves account statements. A
// statement's starting balance is derived by folding entries posted
// after the window start out of the account's current balance
// (repository.StatementRepository.BalancesAsOf); the ending balance is
// the account's live snapshot when end is in the future, or the same
// fold applied at end otherwise.
type StatementService struct {
	statements repository.StatementRepository
	accounts   repository.AccountRepository
	ledgers    repository.LedgerRepository
}

func NewStatementService(statements repository.StatementRepository, accounts repository.AccountRepository, ledgers repository.LedgerRepository) *StatementService {
	return &StatementService{statements: statements, accounts: accounts, ledgers: ledgers}
}

func (s *StatementService) Generate(ctx context.Context, organizationID, ledgerID, accountID string, start, end time.Time) (*domain.AccountStatement, error) {
	if !end.After(start) {
		return nil, apperr.Validation("end must be after start")
	}

	ledger, err := s.ledgers.Get(ctx, organizationID, ledgerID)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.Get(ctx, organizationID, ledgerID, accountID)
	if err != nil {
		return nil, err
	}

	startingBalances, lockVersion, err := s.statements.BalancesAsOf(ctx, accountID, start)
	if err != nil {
		return nil, err
	}

	var endingBalances domain.AccountBalances
	if end.After(time.Now().UTC()) {
		endingBalances = domain.SnapshotBalances(*account)
	} else {
		endingBalances, _, err = s.statements.BalancesAsOf(ctx, accountID, end)
		if err != nil {
			return nil, err
		}
	}

	statement, err := domain.NewAccountStatement(domain.NewAccountStatementParams{
		LedgerID:             ledgerID,
		AccountID:            accountID,
		StartDatetime:        start,
		EndDatetime:          end,
		LedgerAccountVersion: lockVersion,
		StartingBalances:     startingBalances,
		EndingBalances:       endingBalances,
		Currency:             ledger.Currency,
		CurrencyExponent:     ledger.CurrencyExponent,
	})
	if err != nil {
		return nil, err
	}

	if err := s.statements.Create(ctx, statement); err != nil {
		return nil, err
	}
	return statement, nil
}

func (s *StatementService) Get(ctx context.Context, statementID string) (*domain.AccountStatement, error) {
	return s.statements.Get(ctx, statementID)
}

func (s *StatementService) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.AccountStatement, error) {
	return s.statements.ListByAccount(ctx, accountID, limit, offset)
}
