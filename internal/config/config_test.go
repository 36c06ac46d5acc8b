package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"

[scan]
interval = "5s"
impact_band = 0.05

[postgres]
database = "arbscan_test"
`), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 5*time.Second, cfg.Scan.Interval.Duration)
	assert.Equal(t, 0.05, cfg.Scan.ImpactBand)
	assert.Equal(t, "arbscan_test", cfg.Postgres.Database)
	// Untouched fields keep their defaults.
	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[redis]
addr = "file-redis:6379"
`), 0o600))

	t.Setenv("ARBSCAN_REDIS_ADDR", "env-redis:6379")
	t.Setenv("ARBSCAN_POSTGRES_PASSWORD", "secret")
	t.Setenv("ARBSCAN_SCAN_FRESHNESS", "30s")
	t.Setenv("ARBSCAN_ARCHIVE_ENABLED", "true")
	t.Setenv("ARBSCAN_SERVER_CORS_ORIGINS", "https://ops.example.com, https://dash.example.com")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Postgres.Password)
	assert.Equal(t, 30*time.Second, cfg.Scan.Freshness.Duration)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, []string{"https://ops.example.com", "https://dash.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Mode)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Redis.Addr = ""
	cfg.Scan.ImpactBand = 1.5
	cfg.Server.Port = 0

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "turbo"`)
	assert.Contains(t, err.Error(), "redis: addr must not be empty")
	assert.Contains(t, err.Error(), "scan: impact_band")
	assert.Contains(t, err.Error(), "server: port")
}

func TestValidate_ArchiveRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = ""

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket must not be empty")
}

func TestValidate_TelegramCredentialsPaired(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "tok"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram_token and telegram_chat_id")
}
