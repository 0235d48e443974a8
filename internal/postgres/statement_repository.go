package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
)

// StatementRepository implements repository.StatementRepository.
type StatementRepository struct {
	pool *pgxpool.Pool
}

func NewStatementRepository(pool *pgxpool.Pool) *StatementRepository {
	return &StatementRepository{pool: pool}
}

func (r *StatementRepository) Create(ctx context.Context, s *domain.AccountStatement) error {
	startBalJSON, err := json.Marshal(s.StartingBalances)
	if err != nil {
		return apperr.Internal("failed to marshal starting balances", err)
	}
	endBalJSON, err := json.Marshal(s.EndingBalances)
	if err != nil {
		return apperr.Internal("failed to marshal ending balances", err)
	}

	query := `
		INSERT INTO statements (
			id, ledger_id, account_id, start_datetime, end_datetime, ledger_account_version,
			starting_balances, ending_balances, currency, currency_exponent, created, updated
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID, s.LedgerID, s.AccountID, s.StartDatetime, s.EndDatetime, s.LedgerAccountVersion,
		startBalJSON, endBalJSON, s.Currency, s.CurrencyExponent, s.Created, s.Updated,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *StatementRepository) Get(ctx context.Context, statementID string) (*domain.AccountStatement, error) {
	query := statementSelectColumns + `FROM statements WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, statementID)
	s, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("account statement")
		}
		return nil, apperr.Internal("failed to get statement", err)
	}
	return s, nil
}

func (r *StatementRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.AccountStatement, error) {
	query := statementSelectColumns + `FROM statements WHERE account_id = $1 ORDER BY start_datetime ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list statements", err)
	}
	defer rows.Close()

	var out []*domain.AccountStatement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan statement", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BalancesAsOf derives an account's balance snapshot at time t by
// starting from the account's current balance fields and reversing, on
// PostedAmount and AvailableAmount, every posted entry created strictly
// after t. This avoids a full ledger replay. Only those two fields are
// reconstructed: the pending fields and the per-direction credit/debit
// totals are returned at their current values, entries still pending are
// not reversed, and an entry created before t but posted after t is
// counted as posted at t.
func (r *StatementRepository) BalancesAsOf(ctx context.Context, accountID string, t time.Time) (domain.AccountBalances, int64, error) {
	var balances domain.AccountBalances
	var normalBalance string
	var lockVersion int64
	err := r.pool.QueryRow(ctx, `
		SELECT normal_balance, pending_amount, posted_amount, available_amount,
		       pending_credits, pending_debits, posted_credits, posted_debits,
		       available_credits, available_debits, lock_version
		FROM accounts WHERE id = $1
	`, accountID).Scan(
		&normalBalance, &balances.PendingAmount, &balances.PostedAmount, &balances.AvailableAmount,
		&balances.PendingCredits, &balances.PendingDebits, &balances.PostedCredits, &balances.PostedDebits,
		&balances.AvailableCredits, &balances.AvailableDebits, &lockVersion,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AccountBalances{}, 0, apperr.NotFound("account")
		}
		return domain.AccountBalances{}, 0, apperr.Internal("failed to read account for statement", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT direction, amount, status
		FROM entries
		WHERE account_id = $1 AND created > $2
	`, accountID, t)
	if err != nil {
		return domain.AccountBalances{}, 0, apperr.Internal("failed to read entries for statement", err)
	}
	defer rows.Close()

	nb := domain.NormalBalance(normalBalance)
	for rows.Next() {
		var direction, status string
		var amount int64
		if err := rows.Scan(&direction, &amount, &status); err != nil {
			return domain.AccountBalances{}, 0, apperr.Internal("failed to scan entry for statement", err)
		}
		increasing := (nb == domain.NormalBalanceDebit && direction == string(domain.Debit)) ||
			(nb == domain.NormalBalanceCredit && direction == string(domain.Credit))
		sign := int64(1)
		if !increasing {
			sign = -1
		}
		if status == string(domain.TransactionPosted) {
			balances.PostedAmount -= sign * amount
			balances.AvailableAmount -= sign * amount
		}
	}
	if err := rows.Err(); err != nil {
		return domain.AccountBalances{}, 0, apperr.Internal("failed to read entries for statement", err)
	}

	return balances, lockVersion, nil
}

const statementSelectColumns = `
	SELECT id, ledger_id, account_id, start_datetime, end_datetime, ledger_account_version,
	       starting_balances, ending_balances, currency, currency_exponent, created, updated
`

func scanStatement(row pgx.Row) (*domain.AccountStatement, error) {
	var s domain.AccountStatement
	var startBalJSON, endBalJSON []byte
	err := row.Scan(&s.ID, &s.LedgerID, &s.AccountID, &s.StartDatetime, &s.EndDatetime, &s.LedgerAccountVersion,
		&startBalJSON, &endBalJSON, &s.Currency, &s.CurrencyExponent, &s.Created, &s.Updated)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(startBalJSON, &s.StartingBalances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal starting balances: %w", err)
	}
	if err := json.Unmarshal(endBalJSON, &s.EndingBalances); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ending balances: %w", err)
	}
	return &s, nil
}
