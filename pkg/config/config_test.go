//go:build unit || !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.CleanupFrequency)
	assert.Empty(t, cfg.Postgres.DSN)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tesoro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  port: 9090
cache:
  default_ttl: 30s
postgres:
  dsn: postgres://localhost/tesoro
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "postgres://localhost/tesoro", cfg.Postgres.DSN)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TESORO_API_PORT", "7070")
	t.Setenv("TESORO_CACHE_DEFAULT_TTL", "90s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.API.Port)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
