package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories care about. Uniqueness and
// referential integrity are enforced by the database's constraint layer, not
// application locking: a race between two identical inserts resolves to one
// success and one constraint violation, which repositories translate into the
// matching sentinel error.
const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
	sqlStateCheckViolation      = "23514"
)

// IsUniqueViolation reports whether err is a unique-constraint violation on
// the named constraint. An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	return isConstraintViolation(err, sqlStateUniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err is a foreign-key violation on the
// named constraint. An empty constraint matches any FK violation.
func IsForeignKeyViolation(err error, constraint string) bool {
	return isConstraintViolation(err, sqlStateForeignKeyViolation, constraint)
}

// IsCheckViolation reports whether err is a CHECK-constraint violation on the
// named constraint. An empty constraint matches any check violation.
func IsCheckViolation(err error, constraint string) bool {
	return isConstraintViolation(err, sqlStateCheckViolation, constraint)
}

func isConstraintViolation(err error, sqlState, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != sqlState {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
