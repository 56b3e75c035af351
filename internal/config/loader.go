package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies JOURNAL_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known JOURNAL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "JOURNAL_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "JOURNAL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "JOURNAL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "JOURNAL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "JOURNAL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "JOURNAL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "JOURNAL_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "JOURNAL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "JOURNAL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "JOURNAL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "JOURNAL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "JOURNAL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "JOURNAL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "JOURNAL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "JOURNAL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "JOURNAL_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "JOURNAL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "JOURNAL_S3_REGION")
	setStr(&cfg.S3.Bucket, "JOURNAL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "JOURNAL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "JOURNAL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "JOURNAL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "JOURNAL_S3_FORCE_PATH_STYLE")

	// ── Price feed ──
	setBool(&cfg.PriceFeed.Enabled, "JOURNAL_PRICE_FEED_ENABLED")
	setStr(&cfg.PriceFeed.WsURL, "JOURNAL_PRICE_FEED_WS_URL")
	setStringSlice(&cfg.PriceFeed.Symbols, "JOURNAL_PRICE_FEED_SYMBOLS")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "JOURNAL_SYNC_INTERVAL")
	setStr(&cfg.Sync.DropPrefix, "JOURNAL_SYNC_DROP_PREFIX")
	setStr(&cfg.Sync.ImportedPrefix, "JOURNAL_SYNC_IMPORTED_PREFIX")
	setStr(&cfg.Sync.ControlPrefix, "JOURNAL_SYNC_CONTROL_PREFIX")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "JOURNAL_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "JOURNAL_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "JOURNAL_ARCHIVE_CRON")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "JOURNAL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "JOURNAL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "JOURNAL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "JOURNAL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "JOURNAL_MODE")
	setStr(&cfg.LogLevel, "JOURNAL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
