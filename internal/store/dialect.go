package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures the driver-specific behavior the store depends on:
// how to open a serializable transaction and how to classify errors.
type dialect interface {
	name() string

	// serializableTx returns the options for the exception
	// recheck-then-insert transaction.
	serializableTx() *sql.TxOptions

	// isUniqueViolation reports a unique or primary key conflict.
	isUniqueViolation(err error) bool

	// isRetryable reports a transient conflict with a concurrent
	// transaction that is safe to retry from the beginning.
	isRetryable(err error) bool
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

// SQLite transactions are always serializable; the write lock is taken at
// BEGIN through the _txlock=immediate DSN parameter.
func (sqliteDialect) serializableTx() *sql.TxOptions { return nil }

func (sqliteDialect) isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func (sqliteDialect) isRetryable(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

type postgresDialect struct{}

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) serializableTx() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelSerializable}
}

func (postgresDialect) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (postgresDialect) isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}
