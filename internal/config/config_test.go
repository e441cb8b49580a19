package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnvOverrides(t *testing.T) {
	t.Setenv("STATUSPULSE_DATABASE__URL", "postgres://localhost:5432/statuspulse")
	t.Setenv("STATUSPULSE_JWT__SECRET_KEY", "test-secret")
	t.Setenv("STATUSPULSE_SERVER__PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost:5432/statuspulse", cfg.Database.URL)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Uptime.ProbeInterval)
	assert.Equal(t, 10*time.Second, cfg.Uptime.ProbeTimeout)
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("STATUSPULSE_JWT__SECRET_KEY", "test-secret")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  url: postgres://db:5432/app
uptime:
  probe_interval: 30s
  probe_timeout: 5s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/app", cfg.Database.URL)
	assert.Equal(t, 30*time.Second, cfg.Uptime.ProbeInterval)
	assert.Equal(t, 5*time.Second, cfg.Uptime.ProbeTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	t.Run("missing database url", func(t *testing.T) {
		cfg := Default()
		cfg.JWT.SecretKey = "s"
		assert.ErrorContains(t, cfg.Validate(), "database.url")
	})

	t.Run("probe timeout above interval", func(t *testing.T) {
		cfg := Default()
		cfg.Database.URL = "postgres://x"
		cfg.JWT.SecretKey = "s"
		cfg.Uptime.ProbeTimeout = 2 * time.Minute
		assert.ErrorContains(t, cfg.Validate(), "probe_timeout")
	})

	t.Run("notifications need smtp host", func(t *testing.T) {
		cfg := Default()
		cfg.Database.URL = "postgres://x"
		cfg.JWT.SecretKey = "s"
		cfg.Notifications.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "smtp_host")
	})
}
