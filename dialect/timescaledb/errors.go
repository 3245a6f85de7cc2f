package timescaledb

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes reported when creating hypertables and calling the
// extension functions.
const (
	pgUndefinedColumn   = "42703"
	pgUndefinedFunction = "42883"
	// TimescaleDB reports its own errors in the "TS" class.
	tsErrorClass = "TS"
)

// sqlStateError is an interface for errors that provide SQLSTATE codes.
// Implemented by: pgconn.PgError and wrappers of other drivers.
type sqlStateError interface {
	SQLState() string
}

// SQLState returns the SQLSTATE code of the first database error in the
// chain of err, or an empty string.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var e sqlStateError
	if errors.As(err, &e) {
		return e.SQLState()
	}
	return ""
}

// IsUndefinedColumn reports if the error resulted from a column that does
// not exist, e.g. a hypertable time column missing from the table.
func IsUndefinedColumn(err error) bool {
	return SQLState(err) == pgUndefinedColumn
}

// IsExtensionMissing reports if the error resulted from calling a
// TimescaleDB function on a database without the extension.
func IsExtensionMissing(err error) bool {
	if SQLState(err) != pgUndefinedFunction {
		return false
	}
	msg := err.Error()
	for _, fn := range []string{"create_hypertable", "time_bucket", "first(", "last("} {
		if strings.Contains(msg, fn) {
			return true
		}
	}
	return false
}

// IsTimescaleError reports if the error was raised by TimescaleDB itself.
func IsTimescaleError(err error) bool {
	return strings.HasPrefix(SQLState(err), tsErrorClass)
}
