package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_SQLite(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
storage:
  driver: "sqlite"
  path: "students.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "students.db", cfg.Storage.Path)
	assert.Equal(t, 5*time.Second, cfg.Storage.QueryTimeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
storage:
  path: "students.db"
`)
	t.Setenv("ENV", "prod")
	t.Setenv("STORAGE_QUERY_TIMEOUT", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Storage.QueryTimeout)
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
env: "prod"
storage:
  driver: "postgres"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Storage.DSN is required")
}

func TestLoad_UnknownEnv(t *testing.T) {
	path := writeConfig(t, `
env: "qa"
storage:
  path: "students.db"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Env must be one of")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	_, err = Load("")
	assert.Error(t, err)
}
