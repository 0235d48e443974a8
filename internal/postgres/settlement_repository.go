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

// SettlementRepository implements repository.SettlementRepository.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

func (r *SettlementRepository) Create(ctx context.Context, s *domain.Settlement) error {
	metadataJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return apperr.Internal("failed to marshal settlement metadata", err)
	}

	query := `
		INSERT INTO settlements (
			id, organization_id, transaction_id, settled_account_id, contra_account_id, amount,
			normal_balance, currency, currency_exponent, status, description, external_reference,
			effective_at_upper_bound, metadata, created, updated
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	var transactionID any
	if s.TransactionID != "" {
		transactionID = s.TransactionID
	}
	_, err = r.pool.Exec(ctx, query,
		s.ID, s.OrganizationID, transactionID, s.SettledAccountID, s.ContraAccountID, s.Amount,
		string(s.NormalBalance), s.Currency, s.CurrencyExponent, string(s.Status), s.Description, s.ExternalReference,
		s.EffectiveAtUpperBound, metadataJSON, s.Created, s.Updated,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *SettlementRepository) Get(ctx context.Context, organizationID, settlementID string) (*domain.Settlement, error) {
	query := settlementSelectColumns + `
		FROM settlements
		WHERE organization_id = $1 AND id = $2
	`
	row := r.pool.QueryRow(ctx, query, organizationID, settlementID)
	s, err := scanSettlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("settlement")
		}
		return nil, apperr.Internal("failed to get settlement", err)
	}

	entryIDs, err := r.attachedEntryIDs(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	s.AttachedEntries = entryIDs
	return s, nil
}

func (r *SettlementRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Settlement, error) {
	query := settlementSelectColumns + `
		FROM settlements
		WHERE organization_id = $1
		ORDER BY created ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("failed to list settlements", err)
	}
	defer rows.Close()

	var out []*domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, apperr.Internal("failed to scan settlement", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddEntries attaches entryIDs to settlementID. The unique index
// uq_settlement_entries_entry_once lets an entry be attached to at most
// one settlement, whatever that settlement's status: an entry attached
// to an archived settlement cannot be attached again. A violation
// surfaces as a non-retryable conflict.
func (r *SettlementRepository) AddEntries(ctx context.Context, organizationID, settlementID string, entryIDs []string) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.ServiceUnavailable("failed to open database transaction", true, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var status string
	err = dbTx.QueryRow(ctx, `SELECT status FROM settlements WHERE organization_id = $1 AND id = $2 FOR UPDATE`, organizationID, settlementID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("settlement")
		}
		return apperr.Internal("failed to lock settlement", err)
	}
	if domain.SettlementStatus(status) != domain.SettlementDrafting {
		return apperr.Conflict("settlement is not in drafting status")
	}

	for _, entryID := range entryIDs {
		if _, err := dbTx.Exec(ctx, `INSERT INTO settlement_entries (settlement_id, entry_id) VALUES ($1, $2)`, settlementID, entryID); err != nil {
			return mapWriteError(err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *SettlementRepository) RemoveEntries(ctx context.Context, organizationID, settlementID string, entryIDs []string) error {
	dbTx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.ServiceUnavailable("failed to open database transaction", true, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var status string
	err = dbTx.QueryRow(ctx, `SELECT status FROM settlements WHERE organization_id = $1 AND id = $2 FOR UPDATE`, organizationID, settlementID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("settlement")
		}
		return apperr.Internal("failed to lock settlement", err)
	}
	if domain.SettlementStatus(status) != domain.SettlementDrafting {
		return apperr.Conflict("settlement is not in drafting status")
	}

	_, err = dbTx.Exec(ctx, `DELETE FROM settlement_entries WHERE settlement_id = $1 AND entry_id = ANY($2)`, settlementID, entryIDs)
	if err != nil {
		return apperr.Internal("failed to remove settlement entries", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// UpdateStatus performs a guarded transition: the UPDATE only matches
// when the row's current status equals from, mirroring the account
// version check's "zero rows -> conflict" pattern for the settlement
// state machine (spec.md §4.5).
func (r *SettlementRepository) UpdateStatus(ctx context.Context, organizationID, settlementID string, from, to domain.SettlementStatus, transactionID string) error {
	var transactionIDArg any
	if transactionID != "" {
		transactionIDArg = transactionID
	}

	query := `
		UPDATE settlements SET status = $1, transaction_id = COALESCE($2, transaction_id), updated = now()
		WHERE organization_id = $3 AND id = $4 AND status = $5
	`
	tag, err := r.pool.Exec(ctx, query, string(to), transactionIDArg, organizationID, settlementID, string(from))
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict(fmt.Sprintf("settlement is not in expected status %s", from))
	}
	return nil
}

func (r *SettlementRepository) EntriesEligibleForAttachment(ctx context.Context, organizationID, settledAccountID string, entryIDs []string) ([]domain.Entry, error) {
	query := `
		SELECT e.id, e.organization_id, e.transaction_id, e.account_id, e.direction, e.amount, e.currency, e.currency_exponent, e.status
		FROM entries e
		LEFT JOIN settlement_entries se ON se.entry_id = e.id
		WHERE e.organization_id = $1 AND e.account_id = $2 AND e.id = ANY($3)
		  AND e.status = 'posted' AND se.entry_id IS NULL
	`
	rows, err := r.pool.Query(ctx, query, organizationID, settledAccountID, entryIDs)
	if err != nil {
		return nil, apperr.Internal("failed to query eligible entries", err)
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

// EntriesByID fetches entries by id with no attachment-eligibility
// filter (unlike EntriesEligibleForAttachment, which excludes entries
// already present in settlement_entries). Used to price the entries a
// settlement already has attached, where exclusion would always yield
// an empty result.
func (r *SettlementRepository) EntriesByID(ctx context.Context, organizationID string, entryIDs []string) ([]domain.Entry, error) {
	query := `
		SELECT e.id, e.organization_id, e.transaction_id, e.account_id, e.direction, e.amount, e.currency, e.currency_exponent, e.status
		FROM entries e
		WHERE e.organization_id = $1 AND e.id = ANY($2)
	`
	rows, err := r.pool.Query(ctx, query, organizationID, entryIDs)
	if err != nil {
		return nil, apperr.Internal("failed to query entries by id", err)
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

func (r *SettlementRepository) attachedEntryIDs(ctx context.Context, settlementID string) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT entry_id FROM settlement_entries WHERE settlement_id = $1`, settlementID)
	if err != nil {
		return nil, apperr.Internal("failed to query attached entries", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var entryID string
		if err := rows.Scan(&entryID); err != nil {
			return nil, apperr.Internal("failed to scan attached entry id", err)
		}
		out[entryID] = struct{}{}
	}
	return out, rows.Err()
}

const settlementSelectColumns = `
	SELECT id, organization_id, COALESCE(transaction_id, ''), settled_account_id, contra_account_id, amount,
	       normal_balance, currency, currency_exponent, status, description, external_reference,
	       effective_at_upper_bound, metadata, created, updated
`

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var s domain.Settlement
	var normalBalance, status string
	var metadataJSON []byte
	err := row.Scan(
		&s.ID, &s.OrganizationID, &s.TransactionID, &s.SettledAccountID, &s.ContraAccountID, &s.Amount,
		&normalBalance, &s.Currency, &s.CurrencyExponent, &status, &s.Description, &s.ExternalReference,
		&s.EffectiveAtUpperBound, &metadataJSON, &s.Created, &s.Updated,
	)
	if err != nil {
		return nil, err
	}
	s.NormalBalance = domain.NormalBalance(normalBalance)
	s.Status = domain.SettlementStatus(status)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settlement metadata: %w", err)
		}
	}
	return &s, nil
}
