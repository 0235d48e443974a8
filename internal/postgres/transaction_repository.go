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

// TransactionRepository implements repository.TransactionRepository: the
// three-phase read-validate-write transaction engine (spec.md §4.1) plus
// its CRUD surface. Phase 1 (ReadAccountsForUpdate) and Phase 3 (the
// write inside CreateTransaction/PostTransaction) are the two halves the
// service layer's retry wrapper re-executes on a retryable conflict.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// ReadAccountsForUpdate is Phase 1: a single non-locking batch SELECT. No
// FOR UPDATE, no advisory locks — other transactions may freely read or
// write these rows concurrently (spec.md §4.1 Phase 1, §9).
func (r *TransactionRepository) ReadAccountsForUpdate(ctx context.Context, organizationID, ledgerID string, accountIDs []string) (map[string]*domain.Account, error) {
	query := accountSelectColumns + `
		FROM accounts
		WHERE organization_id = $1 AND ledger_id = $2 AND id = ANY($3)
	`
	rows, err := r.pool.Query(ctx, query, organizationID, ledgerID, accountIDs)
	if err != nil {
		return nil, apperr.Internal("phase 1 read failed", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.Account, len(accountIDs))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan account in phase 1", err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("phase 1 read failed", err)
	}
	return out, nil
}

// CreateTransaction executes Phase 3 for a brand-new transaction: upsert
// the transaction row, upsert the entry rows, and apply each account's
// optimistic-lock guarded update, all inside a single database
// transaction (spec.md §4.1 Phase 3).
func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction, accounts []*domain.Account) (*domain.Transaction, error) {
	return r.writePhase3(ctx, tx, accounts)
}

// PostTransaction applies the same Phase 3 write protocol for the
// pending->posted transition (spec.md §4.4): the caller has already
// built the posted-status Transaction and the Phase-2-mutated Account
// set (pending fields decremented, posted/available fields incremented).
func (r *TransactionRepository) PostTransaction(ctx context.Context, tx *domain.Transaction, accounts []*domain.Account) (*domain.Transaction, error) {
	return r.writePhase3(ctx, tx, accounts)
}

func (r *TransactionRepository) writePhase3(ctx context.Context, tx *domain.Transaction, accounts []*domain.Account) (*domain.Transaction, error) {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.ServiceUnavailable("failed to open database transaction", true, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck // no-op once committed

	if err := upsertTransaction(ctx, dbTx, tx); err != nil {
		return nil, err
	}

	// Entry upserts and account updates run sequentially on dbTx: a
	// pgx.Tx is backed by a single *pgx.Conn, which is not safe for
	// concurrent use (concurrent Exec calls race the protocol stream and
	// pgx returns "conn busy" rather than serializing them). A separate
	// worker pool of its own connections can't share this transaction,
	// so there is no way to parallelize these writes while keeping them
	// atomic (spec.md §5, §9's sequential fallback).
	for i := range tx.Entries {
		if err := upsertEntry(ctx, dbTx, tx.Entries[i]); err != nil {
			return nil, err
		}
	}

	for i := range accounts {
		if err := updateAccountWithVersionCheck(ctx, dbTx, accounts[i]); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, mapWriteError(err)
	}

	return tx, nil
}

func upsertTransaction(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	metadataJSON, err := json.Marshal(tx.Metadata)
	if err != nil {
		return apperr.Internal("failed to marshal transaction metadata", err)
	}

	var idempotencyKey any
	if tx.IdempotencyKey != "" {
		idempotencyKey = tx.IdempotencyKey
	}

	query := `
		INSERT INTO transactions (id, organization_id, ledger_id, idempotency_key, description, status, effective_at, metadata, created, updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			status      = EXCLUDED.status,
			effective_at = EXCLUDED.effective_at,
			metadata    = EXCLUDED.metadata,
			updated     = EXCLUDED.updated
	`
	_, err = dbTx.Exec(ctx, query,
		tx.ID, tx.OrganizationID, tx.LedgerID, idempotencyKey, tx.Description, string(tx.Status), tx.EffectiveAt, metadataJSON, tx.Created, tx.Updated,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func upsertEntry(ctx context.Context, dbTx pgx.Tx, e domain.Entry) error {
	query := `
		INSERT INTO entries (id, organization_id, transaction_id, account_id, direction, amount, currency, currency_exponent, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`
	_, err := dbTx.Exec(ctx, query,
		e.ID, e.OrganizationID, e.TransactionID, e.AccountID, string(e.Direction), e.Amount, e.Currency, e.CurrencyExponent, string(e.Status),
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// updateAccountWithVersionCheck issues the conditional UPDATE guarded by
// lock_version and interprets the affected row count per spec.md §4.1
// Phase 3 step 3: 0 rows -> retryable conflict, 1 row -> success, >=2
// rows -> non-retryable data-integrity conflict (can only happen if the
// id/lock_version pair is somehow not a unique key, i.e. schema
// corruption; surfaced as fatal rather than silently accepted).
func updateAccountWithVersionCheck(ctx context.Context, dbTx pgx.Tx, a *domain.Account) error {
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return apperr.Internal("failed to marshal account metadata", err)
	}

	query := `
		UPDATE accounts SET
			pending_amount = $1, posted_amount = $2, available_amount = $3,
			pending_credits = $4, pending_debits = $5,
			posted_credits = $6, posted_debits = $7,
			available_credits = $8, available_debits = $9,
			metadata = $10, lock_version = lock_version + 1, updated = now()
		WHERE id = $11 AND lock_version = $12
	`
	tag, err := dbTx.Exec(ctx, query,
		a.PendingAmount, a.PostedAmount, a.AvailableAmount,
		a.PendingCredits, a.PendingDebits,
		a.PostedCredits, a.PostedDebits,
		a.AvailableCredits, a.AvailableDebits,
		metadataJSON, a.ID, a.LockVersion,
	)
	if err != nil {
		return mapWriteError(err)
	}

	switch tag.RowsAffected() {
	case 0:
		return apperr.ConflictRetryable(fmt.Sprintf("optimistic lock lost on account %s", a.ID))
	case 1:
		return nil
	default:
		return apperr.Conflict(fmt.Sprintf("data-integrity anomaly: %d rows matched account %s", tag.RowsAffected(), a.ID))
	}
}

func (r *TransactionRepository) Get(ctx context.Context, organizationID, ledgerID, transactionID string) (*domain.Transaction, error) {
	tx, err := r.getTransactionRow(ctx, organizationID, ledgerID, `id = $3`, transactionID)
	if err != nil {
		return nil, err
	}
	entries, err := r.entriesByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Entries = entries
	return tx, nil
}

func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, organizationID, ledgerID, idempotencyKey string) (*domain.Transaction, error) {
	tx, err := r.getTransactionRow(ctx, organizationID, ledgerID, `idempotency_key = $3`, idempotencyKey)
	if err != nil {
		return nil, err
	}
	entries, err := r.entriesByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Entries = entries
	return tx, nil
}

func (r *TransactionRepository) getTransactionRow(ctx context.Context, organizationID, ledgerID, predicate string, arg any) (*domain.Transaction, error) {
	query := transactionSelectColumns + `
		FROM transactions
		WHERE organization_id = $1 AND ledger_id = $2 AND ` + predicate

	row := r.pool.QueryRow(ctx, query, organizationID, ledgerID, arg)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("transaction")
		}
		return nil, apperr.Internal("failed to get transaction", err)
	}
	return tx, nil
}

func (r *TransactionRepository) List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Transaction, error) {
	query := transactionSelectColumns + `
		FROM transactions
		WHERE organization_id = $1 AND ledger_id = $2
		ORDER BY created ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, organizationID, ledgerID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list transactions", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan transaction", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list transactions", err)
	}

	for _, tx := range out {
		entries, err := r.entriesByTransaction(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		tx.Entries = entries
	}
	return out, nil
}

func (r *TransactionRepository) Archive(ctx context.Context, organizationID, ledgerID, transactionID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET status = 'archived', updated = now()
		WHERE organization_id = $1 AND ledger_id = $2 AND id = $3
	`, organizationID, ledgerID, transactionID)
	if err != nil {
		return apperr.Internal("failed to archive transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("transaction")
	}
	return nil
}

func (r *TransactionRepository) entriesByTransaction(ctx context.Context, transactionID string) ([]domain.Entry, error) {
	query := `
		SELECT id, organization_id, transaction_id, account_id, direction, amount, currency, currency_exponent, status
		FROM entries
		WHERE transaction_id = $1
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, apperr.Internal("failed to query entries", err)
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan entry", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const transactionSelectColumns = `
	SELECT id, organization_id, ledger_id, idempotency_key, description, status, effective_at, metadata, created, updated
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var idempotencyKey *string
	var status string
	var metadataJSON []byte
	err := row.Scan(&tx.ID, &tx.OrganizationID, &tx.LedgerID, &idempotencyKey, &tx.Description, &status, &tx.EffectiveAt, &metadataJSON, &tx.Created, &tx.Updated)
	if err != nil {
		return nil, err
	}
	tx.Status = domain.TransactionStatus(status)
	if idempotencyKey != nil {
		tx.IdempotencyKey = *idempotencyKey
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}
	return &tx, nil
}

func scanEntry(row pgx.Row) (domain.Entry, error) {
	var e domain.Entry
	var direction, status string
	err := row.Scan(&e.ID, &e.OrganizationID, &e.TransactionID, &e.AccountID, &direction, &e.Amount, &e.Currency, &e.CurrencyExponent, &status)
	if err != nil {
		return domain.Entry{}, err
	}
	e.Direction = domain.Direction(direction)
	e.Status = domain.TransactionStatus(status)
	return e, nil
}
