package pg

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrFailedToOpenDBConnection is returned when every connection attempt failed.
	ErrFailedToOpenDBConnection = errors.New("pg: failed to open connection")

	// ErrEmptyConnectionString is returned by Connect without a connection string.
	ErrEmptyConnectionString = errors.New("pg: empty connection string")

	// ErrHealthcheckFailed wraps ping failures.
	ErrHealthcheckFailed = errors.New("pg: healthcheck failed")

	ErrFailedToParseDBConfig = errors.New("pg: failed to parse connection string")

	ErrFailedToApplyMigrations  = errors.New("pg: failed to apply migrations")
	ErrMigrationsDirNotFound    = errors.New("pg: migrations directory not found")
	ErrMigrationPathNotProvided = errors.New("pg: migrations filesystem not provided")
)

// SQLSTATE codes checked by the helpers below.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
)

// HasCode reports whether err wraps a server error with the given SQLSTATE.
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return HasCode(err, CodeUniqueViolation)
}
