package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tolerance-rules/internal/model"
)

func TestFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Scheduler.Organizations = []string{"org-a", "org-b"}

	a := FromConfig(cfg)

	assert.Equal(t, model.DriverSQLite, a.Driver)
	assert.Equal(t, cfg.Database.Path, a.Path)
	assert.Equal(t, DefaultPasswordKey, a.PasswordKey)
	assert.Equal(t, "org-a, org-b", a.Organizations)
	assert.Equal(t, "3600", a.Interval)
	assert.True(t, a.RunOnStart)
}

func TestApply_SQLite(t *testing.T) {
	cfg := model.DefaultConfig()
	a := FromConfig(cfg)
	a.Path = " /var/lib/tolerance.db "
	a.Organizations = "org-a, ,org-b,org-a"
	a.Interval = "900"
	a.RunOnStart = false

	require.NoError(t, a.Apply(cfg))

	assert.Equal(t, "/var/lib/tolerance.db", cfg.Database.Path)
	assert.Equal(t, []string{"org-a", "org-b"}, cfg.Scheduler.Organizations)
	assert.Equal(t, 900, cfg.Scheduler.IntervalSec)
	assert.False(t, cfg.Scheduler.RunOnStart)
}

func TestApply_Postgres(t *testing.T) {
	cfg := model.DefaultConfig()
	a := FromConfig(cfg)
	a.Driver = model.DriverPostgres
	a.DSN = "postgres://tolerance@db:5432/tolerance"
	a.Password = "s3cret"

	require.NoError(t, a.Apply(cfg))

	assert.Equal(t, model.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://tolerance@db:5432/tolerance", cfg.Database.DSN)
	assert.Equal(t, DefaultPasswordKey, cfg.Database.PasswordKey)
}

func TestApply_PostgresWithoutPassword(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Database.PasswordKey = "old"
	a := FromConfig(cfg)
	a.Driver = model.DriverPostgres
	a.DSN = "host=db user=tolerance"

	require.NoError(t, a.Apply(cfg))
	assert.Empty(t, cfg.Database.PasswordKey)
}

func TestApply_Invalid(t *testing.T) {
	cfg := model.DefaultConfig()
	a := FromConfig(cfg)
	a.Interval = "soon"
	assert.Error(t, a.Apply(cfg))

	a = FromConfig(model.DefaultConfig())
	a.Driver = model.DriverPostgres
	a.DSN = ""
	assert.Error(t, a.Apply(model.DefaultConfig()))
}

func TestValidateDSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{"url", "postgres://tolerance@db:5432/tolerance", false},
		{"keyword", "host=db user=tolerance dbname=tolerance", false},
		{"empty", "  ", true},
		{"url without host", "postgres:///tolerance", true},
		{"url with password", "postgres://tolerance:pw@db/tolerance", true},
		{"keyword with password", "host=db password=pw", true},
		{"garbage", "db", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePositive(t *testing.T) {
	v := validatePositive("Interval")

	assert.NoError(t, v("60"))
	assert.EqualError(t, v("0"), "Interval must be a positive number")
	assert.Error(t, v("x"))
}

func TestNewForm(t *testing.T) {
	a := FromConfig(model.DefaultConfig())

	form := NewForm(a)

	require.NotNil(t, form)
}
