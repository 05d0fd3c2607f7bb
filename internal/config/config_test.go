package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "cds_rules", cfg.Database.Database)
	assert.Equal(t, "sqlite", cfg.Reminders.Backend)
	assert.Equal(t, "./data/reminders.db", cfg.Reminders.SQLitePath)
	assert.Equal(t, float64(70), cfg.Engine.DefaultMinConfidence)
	assert.Equal(t, 1000, cfg.Engine.DemographicsCacheLen)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, m.Validate())
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("CDS_SERVER_PORT", "9191")
	t.Setenv("CDS_REMINDERS_BACKEND", "postgres")
	t.Setenv("CDS_REMINDERS_POSTGRES_URL", "postgres://cds:secret@db:5432/cds_rules?sslmode=disable")

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Reminders.Backend)
	assert.NoError(t, m.Validate())
}

func TestValidateRejectsUnknownReminderBackend(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	m.config.Reminders.Backend = "mysql"
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reminder backend")
}

func TestValidateRejectsBadConfidence(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	m.config.Engine.DefaultMinConfidence = 140
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum confidence")
}

func TestValidateRequiresSQLitePath(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	m.config.Reminders.SQLitePath = ""
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite path")
}

func TestDatabaseConnectionString(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	dsn := m.GetDatabaseConnectionString()
	assert.Contains(t, dsn, "dbname=cds_rules")
	assert.Contains(t, dsn, "sslmode=disable")
}
