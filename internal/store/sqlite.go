package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLStore implements the Store interface on top of sqlx. Queries are
// written with "?" placeholders and rebound for the active driver, so the
// same store serves SQLite and PostgreSQL.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect

	// now is the clock used for created_at/updated_at defaults.
	now func() time.Time
}

// sqlitePragmas are applied to every pooled connection through the DSN.
// _txlock=immediate makes every transaction take the write lock at BEGIN,
// which serializes the recheck-then-insert in CreateExceptionIfAbsent.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations. The special
// path ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	memory := dbPath == ":memory:"

	dsn := "file:" + dbPath + "?" + sqlitePragmas + "&_pragma=journal_mode(WAL)"
	if memory {
		dsn = "file::memory:?" + sqlitePragmas
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every in-memory connection is a separate database; pin the pool to
	// one connection so all callers share it.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite db: %w", err)
	}

	s := &SQLStore{db: db, dialect: sqliteDialect{}, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// SetClock overrides the time source used for row timestamps.
func (s *SQLStore) SetClock(clock func() time.Time) {
	s.now = clock
}

// Driver reports the active dialect name.
func (s *SQLStore) Driver() string {
	return s.dialect.name()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations() error {
	if _, err := s.db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// timestamp normalizes t for storage.
func (s *SQLStore) timestamp(t time.Time) time.Time {
	if t.IsZero() {
		t = s.now()
	}
	return t.UTC()
}

// boolToInt converts a boolean to 0 or 1 for storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
