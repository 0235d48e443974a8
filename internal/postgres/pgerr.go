package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ledgerforge/ledgerd/internal/apperr"
)

// Postgres SQLSTATE codes this package maps explicitly; see
// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// isForeignKeyViolation reports whether err is a foreign-key constraint
// violation, used by delete operations to surface ownership rules
// (spec.md §3 "deletion of an Account is forbidden while any Entry
// references it") as a Conflict instead of a raw 500.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateForeignKeyViolation
	}
	return false
}

// mapWriteError translates a raw pgx/pg error from Phase 3 into the
// domain error taxonomy (spec.md §4.1, §7). Unique violations become
// non-retryable conflicts (idempotency-key collisions); serialization
// failures and deadlocks become retryable service-unavailable errors.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return apperr.Conflict("unique constraint violated: " + pgErr.ConstraintName)
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return apperr.ServiceUnavailable("transaction serialization failure", true, err)
		}
	}
	return apperr.Internal("unexpected storage error", err)
}
