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

// LedgerRepository implements repository.LedgerRepository over PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Create(ctx context.Context, l *domain.Ledger) error {
	metadataJSON, err := json.Marshal(l.Metadata)
	if err != nil {
		return apperr.Internal("failed to marshal ledger metadata", err)
	}

	query := `
		INSERT INTO ledgers (id, organization_id, name, description, currency, currency_exponent, metadata, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		l.ID, l.OrganizationID, l.Name, l.Description, l.Currency, l.CurrencyExponent, metadataJSON, l.Created, l.Updated,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *LedgerRepository) Get(ctx context.Context, organizationID, ledgerID string) (*domain.Ledger, error) {
	query := `
		SELECT id, organization_id, name, description, currency, currency_exponent, metadata, created, updated
		FROM ledgers
		WHERE organization_id = $1 AND id = $2
	`
	row := r.pool.QueryRow(ctx, query, organizationID, ledgerID)
	l, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("ledger")
		}
		return nil, apperr.Internal("failed to get ledger", err)
	}
	return l, nil
}

func (r *LedgerRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Ledger, error) {
	query := `
		SELECT id, organization_id, name, description, currency, currency_exponent, metadata, created, updated
		FROM ledgers
		WHERE organization_id = $1
		ORDER BY created ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list ledgers", err)
	}
	defer rows.Close()

	var out []*domain.Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan ledger", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LedgerRepository) Delete(ctx context.Context, organizationID, ledgerID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ledgers WHERE organization_id = $1 AND id = $2`, organizationID, ledgerID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict("ledger has dependent accounts or transactions")
		}
		return apperr.Internal("failed to delete ledger", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("ledger")
	}
	return nil
}

func scanLedger(row pgx.Row) (*domain.Ledger, error) {
	var l domain.Ledger
	var metadataJSON []byte
	if err := row.Scan(&l.ID, &l.OrganizationID, &l.Name, &l.Description, &l.Currency, &l.CurrencyExponent, &metadataJSON, &l.Created, &l.Updated); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &l.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger metadata: %w", err)
		}
	}
	return &l, nil
}
