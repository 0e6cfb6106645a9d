package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and locates the persistence backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// Path is the SQLite database file.
	Path string `mapstructure:"path" yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	// PasswordKey names a keyring entry holding the PostgreSQL password.
	// When set, the password is injected into DSN at connect time.
	PasswordKey string `mapstructure:"password_key" yaml:"password_key"`
}

// SchedulerConfig controls periodic evaluation.
type SchedulerConfig struct {
	IntervalSec   int      `mapstructure:"interval_sec" yaml:"interval_sec"`
	TimeoutSec    int      `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	Organizations []string `mapstructure:"organizations" yaml:"organizations"`
	RunOnStart    bool     `mapstructure:"run_on_start" yaml:"run_on_start"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`

	// File enables a rotating log file in addition to stderr.
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tolerance/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "tolerance", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite database location.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "tolerance.db")
	}
	return filepath.Join(home, ".local", "share", "tolerance", "tolerance.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   DefaultDatabasePath(),
		},
		Scheduler: SchedulerConfig{
			IntervalSec:   3600,
			TimeoutSec:    300,
			Organizations: []string{},
			RunOnStart:    true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
		Metrics: MetricsConfig{
			Addr: ":9464",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A .env file in the working directory is loaded first, and any key can be
// overridden with a TOLERANCE_ prefixed variable (e.g.
// TOLERANCE_DATABASE_DSN). If the file does not exist, defaults are used.
func LoadConfig(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TOLERANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and so
	// AutomaticEnv can see every key during Unmarshal.
	def := defaultAppConfig()
	v.SetDefault("database.driver", def.Database.Driver)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.password_key", "")
	v.SetDefault("scheduler.interval_sec", def.Scheduler.IntervalSec)
	v.SetDefault("scheduler.timeout_sec", def.Scheduler.TimeoutSec)
	v.SetDefault("scheduler.organizations", def.Scheduler.Organizations)
	v.SetDefault("scheduler.run_on_start", def.Scheduler.RunOnStart)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("metrics.addr", def.Metrics.Addr)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Scheduler.IntervalSec <= 0 {
		return errors.New("scheduler.interval_sec must be positive")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("scheduler", cfg.Scheduler)
	v.Set("log", cfg.Log)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	return defaultAppConfig()
}
