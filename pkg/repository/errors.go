package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConstraint wraps a not-null or check constraint violation. It indicates
// a value the store's schema rejects, such as an unknown status.
var ErrConstraint = errors.New("constraint violation")

// PostgreSQL SQLSTATE codes.
const (
	pgNotNullViolation = "23502"
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
)

// MapError translates database errors to domain errors: sql.ErrNoRows becomes
// notFoundErr, a unique violation becomes duplicateErr, and not-null or check
// violations wrap ErrConstraint with the constraint name. Other errors are
// returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return duplicateErr
	case pgNotNullViolation:
		return fmt.Errorf("%w: column %s", ErrConstraint, pgErr.ColumnName)
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", ErrConstraint, pgErr.ConstraintName)
	}
	return err
}
