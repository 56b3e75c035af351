package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "sync"
log_level = "debug"

[postgres]
host = "db.internal"
database = "journal_prod"

[sync]
interval = "5m"

[archive]
enabled = true
retention_days = 90
cron = "30 2 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sync", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "journal_prod", cfg.Postgres.Database)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval.Duration)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, 90, cfg.Archive.RetentionDays)

	// Untouched sections keep their defaults.
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "drops", cfg.Sync.DropPrefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "full"`), 0o600))

	t.Setenv("JOURNAL_MODE", "recompute")
	t.Setenv("JOURNAL_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("JOURNAL_POSTGRES_PORT", "5433")
	t.Setenv("JOURNAL_ARCHIVE_ENABLED", "true")
	t.Setenv("JOURNAL_SYNC_INTERVAL", "1h")
	t.Setenv("JOURNAL_SYNC_CONTROL_PREFIX", "ops/control")
	t.Setenv("JOURNAL_PRICE_FEED_SYMBOLS", "ETH, SOL,BTC")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "recompute", cfg.Mode)
	assert.Equal(t, "s3cret", cfg.Postgres.Password)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, time.Hour, cfg.Sync.Interval.Duration)
	assert.Equal(t, "ops/control", cfg.Sync.ControlPrefix)
	assert.Equal(t, []string{"ETH", "SOL", "BTC"}, cfg.PriceFeed.Symbols)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "banana"
	cfg.Redis.Addr = ""
	cfg.Sync.Interval.Duration = 0
	cfg.Notify.TelegramToken = "token-without-chat"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "sync: interval")
	assert.Contains(t, err.Error(), "telegram_token and telegram_chat_id")
}

func TestValidate_PriceFeedRequiresURL(t *testing.T) {
	cfg := Defaults()
	cfg.PriceFeed.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price_feed: ws_url")

	cfg.PriceFeed.WsURL = "wss://ticker.example.com/ws"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ArchiveWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.Archive.RetentionDays = 0
	cfg.Archive.Cron = " "

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention_days")
	assert.Contains(t, err.Error(), "archive: cron")
}

func TestValidate_DSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://u:p@db:5432/journal"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	assert.NoError(t, cfg.Validate())
}
