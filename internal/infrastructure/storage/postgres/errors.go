package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"visualeyes/internal/core/apperror"
)

const uniqueViolationCode = "23505"

// translateUniqueViolation maps a unique-constraint violation to a
// DUPLICATE_FIELD error, deriving the field name from the constraint
// (convention: <table>_<column>_key). Other errors pass through.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}

	field := pgErr.ConstraintName
	field = strings.TrimSuffix(field, "_key")
	if i := strings.LastIndex(field, "_"); i >= 0 {
		field = field[i+1:]
	}
	if field == "" {
		field = "value"
	}
	return apperror.NewDuplicateField(field).WithCause(err)
}
