package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecretsKey(t *testing.T) {
	t.Setenv("SKIFF_SECRETS_KEY", "")
	_, err := Load("test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SKIFF_SECRETS_KEY")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SKIFF_SECRETS_KEY", "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=")

	cfg, err := Load("1.2.3")
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "duckdb", cfg.Engine.Driver)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, 5, cfg.Retry.AttachMaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SKIFF_SECRETS_KEY", "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM=")
	t.Setenv("PORT", "9000")
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("RETRY_ATTACH_MAX_ATTEMPTS", "2")

	cfg, err := Load("test")
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)

	policy := cfg.Retry.AttachPolicy()
	assert.Equal(t, 2, policy.MaxAttempts)
	assert.True(t, policy.ExponentialBackoff)
	assert.Equal(t, time.Second, policy.Delay)
}

func TestConnectionString(t *testing.T) {
	c := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "skiff",
		Password: "pw", Database: "skiff_engine", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=skiff password=pw dbname=skiff_engine sslmode=disable",
		c.ConnectionString())
}
