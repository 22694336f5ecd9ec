package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  name: eventpix
  user: eventpix
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 0.5, cfg.Vision.DetectionThreshold)
	assert.Equal(t, 4, cfg.Vision.WorkerCount)
	assert.Equal(t, 2*time.Minute, cfg.Vision.ModelFetchTimeout)
	assert.Equal(t, "euclidean", cfg.Match.Engine)
	assert.Equal(t, 0.6, cfg.Match.Threshold)
	assert.Equal(t, 8, cfg.Match.HistoryConcurrency)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  admin_api_key: secret
match:
  engine: legacy
  threshold: 0.45
vision:
  models_dir: /opt/models
  model_fetch_timeout: 30s
upload:
  max_size_bytes: 1048576
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.AdminAPIKey)
	assert.Equal(t, "legacy", cfg.Match.Engine)
	assert.Equal(t, 0.45, cfg.Match.Threshold)
	assert.Equal(t, "/opt/models", cfg.Vision.ModelsDir)
	assert.Equal(t, 30*time.Second, cfg.Vision.ModelFetchTimeout)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxSizeBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
match:
  threshold: 0.45
`)

	t.Setenv("EP_SERVER_PORT", "7070")
	t.Setenv("EP_ADMIN_API_KEY", "from-env")
	t.Setenv("EP_DB_HOST", "db.internal")
	t.Setenv("EP_MATCH_ENGINE", "legacy")
	t.Setenv("EP_MATCH_THRESHOLD", "0.55")
	t.Setenv("EP_VISION_WORKER_COUNT", "12")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Server.AdminAPIKey)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "legacy", cfg.Match.Engine)
	assert.Equal(t, 0.55, cfg.Match.Threshold)
	assert.Equal(t, 12, cfg.Vision.WorkerCount)
}

func TestLoadBadEnvValueIgnored(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)
	t.Setenv("EP_SERVER_PORT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5433, Name: "n", User: "u", Password: "p"}
	assert.Equal(t, "postgres://u:p@h:5433/n?sslmode=disable", d.DSN())
}
