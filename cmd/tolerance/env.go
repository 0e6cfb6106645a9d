package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nhle/tolerance-rules/internal/credential"
	"github.com/nhle/tolerance-rules/internal/logging"
	"github.com/nhle/tolerance-rules/internal/model"
	"github.com/nhle/tolerance-rules/internal/rules"
	"github.com/nhle/tolerance-rules/internal/store"
)

// env is everything a command needs once configuration is loaded.
type env struct {
	cfg      *model.AppConfig
	logger   *zap.Logger
	store    *store.SQLStore
	registry *rules.Registry
}

// setup loads the config, builds the logger and opens the store. Logs go
// to console; a nil console leaves only the configured log file.
func (a *app) setup(console io.Writer) (*env, error) {
	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, console)
	if err != nil {
		return nil, err
	}

	s, err := a.openStore(cfg.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		registry: rules.DefaultRegistry(rules.Deps{Store: s, Logger: logger}),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

func (e *env) evaluator() *rules.Evaluator {
	return rules.NewEvaluator(e.store, e.registry, e.logger)
}

func (a *app) openStore(cfg model.DatabaseConfig) (*store.SQLStore, error) {
	switch cfg.Driver {
	case model.DriverPostgres:
		dsn := cfg.DSN
		if cfg.PasswordKey != "" {
			password, err := a.secret(cfg.PasswordKey)
			if err != nil {
				return nil, err
			}
			if dsn, err = store.WithPassword(dsn, password); err != nil {
				return nil, err
			}
		}
		return store.NewPostgresStore(dsn)

	default:
		if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		return store.NewSQLiteStore(cfg.Path)
	}
}

func (a *app) secret(key string) (string, error) {
	ring, err := a.openSecrets()
	if err != nil {
		return "", err
	}
	value, err := ring.Get(key)
	if errors.Is(err, credential.ErrNotFound) {
		return "", fmt.Errorf("no credential stored under %q; run \"tolerance credential set %s\"", key, key)
	}
	return value, err
}

// organizations returns orgs, or the scheduled organizations when empty.
func (e *env) organizations(orgs []string) ([]string, error) {
	if len(orgs) == 0 {
		orgs = e.cfg.Scheduler.Organizations
	}
	if len(orgs) == 0 {
		return nil, errors.New("no organizations: pass --org or set scheduler.organizations")
	}
	return orgs, nil
}
