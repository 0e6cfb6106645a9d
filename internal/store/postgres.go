package store

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// NewPostgresStore connects to PostgreSQL through the pgx stdlib driver
// and runs any pending schema migrations.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres db: %w", err)
	}

	s := &SQLStore{db: db, dialect: postgresDialect{}, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// WithPassword returns dsn with its password set. Both URL
// ("postgres://user@host/db") and keyword/value ("host=... user=...")
// forms are supported.
func WithPassword(dsn, password string) (string, error) {
	if password == "" {
		return dsn, nil
	}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parsing dsn: %w", err)
		}
		username := ""
		if u.User != nil {
			username = u.User.Username()
		}
		u.User = url.UserPassword(username, password)
		return u.String(), nil
	}

	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return strings.TrimSpace(dsn) + " password='" + escaped + "'", nil
}
