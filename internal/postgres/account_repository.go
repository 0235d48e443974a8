package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
)

// AccountRepository implements repository.AccountRepository over
// PostgreSQL. GetBatch is a non-locking batch read — it issues a single
// plain SELECT ... WHERE id = ANY($3), no FOR UPDATE, no advisory locks.
// The transaction engine's Phase 1 read (spec.md §4.1) does not use it;
// it goes through TransactionRepository.ReadAccountsForUpdate.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return apperr.Internal("failed to marshal account metadata", err)
	}

	query := `
		INSERT INTO accounts (
			id, organization_id, ledger_id, name, description, normal_balance,
			pending_amount, posted_amount, available_amount,
			pending_credits, pending_debits, posted_credits, posted_debits,
			available_credits, available_debits, lock_version, metadata, created, updated
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, a.OrganizationID, a.LedgerID, a.Name, a.Description, string(a.NormalBalance),
		a.PendingAmount, a.PostedAmount, a.AvailableAmount,
		a.PendingCredits, a.PendingDebits, a.PostedCredits, a.PostedDebits,
		a.AvailableCredits, a.AvailableDebits, a.LockVersion, metadataJSON, a.Created, a.Updated,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, organizationID, ledgerID, accountID string) (*domain.Account, error) {
	query := accountSelectColumns + `
		FROM accounts
		WHERE organization_id = $1 AND ledger_id = $2 AND id = $3
	`
	row := r.pool.QueryRow(ctx, query, organizationID, ledgerID, accountID)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("account")
		}
		return nil, apperr.Internal("failed to get account", err)
	}
	return a, nil
}

func (r *AccountRepository) GetBatch(ctx context.Context, organizationID, ledgerID string, accountIDs []string) (map[string]*domain.Account, error) {
	query := accountSelectColumns + `
		FROM accounts
		WHERE organization_id = $1 AND ledger_id = $2 AND id = ANY($3)
	`
	rows, err := r.pool.Query(ctx, query, organizationID, ledgerID, accountIDs)
	if err != nil {
		return nil, apperr.Internal("failed to batch-read accounts", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.Account, len(accountIDs))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan account", err)
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func (r *AccountRepository) List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Account, error) {
	query := accountSelectColumns + `
		FROM accounts
		WHERE organization_id = $1 AND ledger_id = $2
		ORDER BY created ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, organizationID, ledgerID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan account", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepository) Delete(ctx context.Context, organizationID, ledgerID, accountID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE organization_id = $1 AND ledger_id = $2 AND id = $3`,
		organizationID, ledgerID, accountID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict("account has dependent entries")
		}
		return apperr.Internal("failed to delete account", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("account")
	}
	return nil
}

const accountSelectColumns = `
	SELECT id, organization_id, ledger_id, name, description, normal_balance,
	       pending_amount, posted_amount, available_amount,
	       pending_credits, pending_debits, posted_credits, posted_debits,
	       available_credits, available_debits, lock_version, metadata, created, updated
`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var normalBalance string
	var metadataJSON []byte
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.LedgerID, &a.Name, &a.Description, &normalBalance,
		&a.PendingAmount, &a.PostedAmount, &a.AvailableAmount,
		&a.PendingCredits, &a.PendingDebits, &a.PostedCredits, &a.PostedDebits,
		&a.AvailableCredits, &a.AvailableDebits, &a.LockVersion, &metadataJSON, &a.Created, &a.Updated,
	)
	if err != nil {
		return nil, err
	}
	a.NormalBalance = domain.NormalBalance(normalBalance)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account metadata: %w", err)
		}
	}
	return &a, nil
}
