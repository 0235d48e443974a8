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

// MonitorRepository implements repository.MonitorRepository.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

func (r *MonitorRepository) Create(ctx context.Context, m *domain.BalanceMonitor) error {
	conditionsJSON, err := json.Marshal(m.AlertConditions)
	if err != nil {
		return apperr.Internal("failed to marshal alert conditions", err)
	}
	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return apperr.Internal("failed to marshal monitor metadata", err)
	}

	query := `
		INSERT INTO monitors (id, account_id, alert_conditions, description, metadata, lock_version, created, updated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err = r.pool.Exec(ctx, query, m.ID, m.AccountID, conditionsJSON, m.Description, metadataJSON, m.LockVersion, m.Created, m.Updated)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *MonitorRepository) Get(ctx context.Context, monitorID string) (*domain.BalanceMonitor, error) {
	query := monitorSelectColumns + `FROM monitors WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, monitorID)
	m, err := scanMonitor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("balance monitor")
		}
		return nil, apperr.Internal("failed to get monitor", err)
	}
	return m, nil
}

func (r *MonitorRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.BalanceMonitor, error) {
	query := monitorSelectColumns + `FROM monitors WHERE account_id = $1 ORDER BY created ASC`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, apperr.Internal("failed to list monitors", err)
	}
	defer rows.Close()

	var out []*domain.BalanceMonitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan monitor", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MonitorRepository) Delete(ctx context.Context, monitorID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM monitors WHERE id = $1`, monitorID)
	if err != nil {
		return apperr.Internal("failed to delete monitor", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("balance monitor")
	}
	return nil
}

const monitorSelectColumns = `
	SELECT id, account_id, alert_conditions, description, metadata, lock_version, created, updated
`

func scanMonitor(row pgx.Row) (*domain.BalanceMonitor, error) {
	var m domain.BalanceMonitor
	var conditionsJSON, metadataJSON []byte
	err := row.Scan(&m.ID, &m.AccountID, &conditionsJSON, &m.Description, &metadataJSON, &m.LockVersion, &m.Created, &m.Updated)
	if err != nil {
		return nil, err
	}
	if len(conditionsJSON) > 0 {
		if err := json.Unmarshal(conditionsJSON, &m.AlertConditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal alert conditions: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal monitor metadata: %w", err)
		}
	}
	return &m, nil
}
