// Package setup is the interactive form behind "tolerance config init
// --interactive".
package setup

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/tolerance-rules/internal/model"
)

// DefaultPasswordKey is the keyring entry suggested for the PostgreSQL
// password.
const DefaultPasswordKey = "postgres-password"

// Answers holds the form fields as the user edits them.
type Answers struct {
	Driver string

	// SQLite
	Path string

	// PostgreSQL
	DSN         string
	Password    string
	PasswordKey string

	Organizations string
	Interval      string
	RunOnStart    bool
}

// FromConfig pre-fills the answers from cfg.
func FromConfig(cfg *model.AppConfig) *Answers {
	key := cfg.Database.PasswordKey
	if key == "" {
		key = DefaultPasswordKey
	}
	return &Answers{
		Driver:        cfg.Database.Driver,
		Path:          cfg.Database.Path,
		DSN:           cfg.Database.DSN,
		PasswordKey:   key,
		Organizations: strings.Join(cfg.Scheduler.Organizations, ", "),
		Interval:      strconv.Itoa(cfg.Scheduler.IntervalSec),
		RunOnStart:    cfg.Scheduler.RunOnStart,
	}
}

// NewForm builds the form editing a. The database group shown depends on
// the chosen driver.
func NewForm(a *Answers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database").
				Options(
					huh.NewOption("SQLite - local file", model.DriverSQLite),
					huh.NewOption("PostgreSQL - shared server", model.DriverPostgres),
				).
				Value(&a.Driver),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Database file").
				Value(&a.Path).
				Validate(validateRequired("Database file")),
		).WithHideFunc(func() bool { return a.Driver != model.DriverSQLite }),

		huh.NewGroup(
			huh.NewInput().
				Title("Connection string").
				Description("Without the password, e.g. postgres://tolerance@db:5432/tolerance").
				Value(&a.DSN).
				Validate(validateDSN),
			huh.NewInput().
				Title("Password").
				Description("Stored in the system keyring, never in the config file").
				EchoMode(huh.EchoModePassword).
				Value(&a.Password),
			huh.NewInput().
				Title("Keyring entry").
				Value(&a.PasswordKey).
				Validate(validateRequired("Keyring entry")),
		).WithHideFunc(func() bool { return a.Driver != model.DriverPostgres }),

		huh.NewGroup(
			huh.NewInput().
				Title("Organizations").
				Description("Comma-separated organization ids to evaluate on a schedule").
				Value(&a.Organizations),
			huh.NewInput().
				Title("Interval (seconds)").
				Value(&a.Interval).
				Validate(validatePositive("Interval")),
			huh.NewConfirm().
				Title("Evaluate on start?").
				Value(&a.RunOnStart),
		),
	)
}

// Apply copies the answers into cfg.
func (a *Answers) Apply(cfg *model.AppConfig) error {
	interval, err := strconv.Atoi(strings.TrimSpace(a.Interval))
	if err != nil || interval <= 0 {
		return fmt.Errorf("interval %q must be a positive number of seconds", a.Interval)
	}

	cfg.Database.Driver = a.Driver
	switch a.Driver {
	case model.DriverPostgres:
		cfg.Database.DSN = strings.TrimSpace(a.DSN)
		cfg.Database.PasswordKey = ""
		if a.Password != "" {
			cfg.Database.PasswordKey = strings.TrimSpace(a.PasswordKey)
		}
	default:
		cfg.Database.Path = strings.TrimSpace(a.Path)
	}

	cfg.Scheduler.Organizations = splitList(a.Organizations)
	cfg.Scheduler.IntervalSec = interval
	cfg.Scheduler.RunOnStart = a.RunOnStart

	return cfg.Validate()
}

func splitList(s string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}

// validateDSN accepts URL and keyword/value connection strings.
func validateDSN(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("connection string is required")
	}
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") {
		u, err := url.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid connection URL: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("connection URL must include a host")
		}
		if _, ok := u.User.Password(); ok {
			return fmt.Errorf("leave the password out of the connection string")
		}
		return nil
	}
	if !strings.Contains(s, "=") {
		return fmt.Errorf("expected a postgres:// URL or key=value pairs")
	}
	if strings.Contains(s, "password=") {
		return fmt.Errorf("leave the password out of the connection string")
	}
	return nil
}
