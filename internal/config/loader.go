package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path (if it exists), applies MLECON_*
// environment overrides, and validates the result. A .env file in the
// working directory is loaded first so container secrets can be injected
// without touching the config file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Mode, "MLECON_MODE")
	setString(&cfg.LogLevel, "MLECON_LOG_LEVEL")

	setString(&cfg.Postgres.DSN, "MLECON_POSTGRES_DSN")
	setString(&cfg.Postgres.Host, "MLECON_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MLECON_POSTGRES_PORT")
	setString(&cfg.Postgres.Database, "MLECON_POSTGRES_DATABASE")
	setString(&cfg.Postgres.User, "MLECON_POSTGRES_USER")
	setString(&cfg.Postgres.Password, "MLECON_POSTGRES_PASSWORD")
	setString(&cfg.Postgres.SSLMode, "MLECON_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "MLECON_POSTGRES_RUN_MIGRATIONS")

	setString(&cfg.Redis.Addr, "MLECON_REDIS_ADDR")
	setString(&cfg.Redis.Password, "MLECON_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MLECON_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "MLECON_REDIS_TLS")

	setString(&cfg.Processor.BaseURL, "MLECON_PROCESSOR_BASE_URL")
	setString(&cfg.Processor.APIKey, "MLECON_PROCESSOR_API_KEY")
	setString(&cfg.Processor.APISecret, "MLECON_PROCESSOR_API_SECRET")
	setString(&cfg.Processor.EncryptedSecretPath, "MLECON_PROCESSOR_SECRET_PATH")
	setString(&cfg.Processor.SecretPassword, "MLECON_PROCESSOR_SECRET_PASSWORD")
	setString(&cfg.Processor.Currency, "MLECON_PROCESSOR_CURRENCY")

	setString(&cfg.Supply.Epoch, "MLECON_SUPPLY_EPOCH")
	setInt64(&cfg.Supply.DailyScarceCap, "MLECON_SUPPLY_DAILY_SCARCE_CAP")

	setDuration(&cfg.Trade.Window, "MLECON_TRADE_WINDOW")
	setDuration(&cfg.Trade.SweepInterval, "MLECON_TRADE_SWEEP_INTERVAL")
	setInt(&cfg.Trade.SweepBatch, "MLECON_TRADE_SWEEP_BATCH")

	setString(&cfg.S3.Endpoint, "MLECON_S3_ENDPOINT")
	setString(&cfg.S3.Region, "MLECON_S3_REGION")
	setString(&cfg.S3.Bucket, "MLECON_S3_BUCKET")
	setString(&cfg.S3.AccessKey, "MLECON_S3_ACCESS_KEY")
	setString(&cfg.S3.SecretKey, "MLECON_S3_SECRET_KEY")
	setBool(&cfg.Archive.Enabled, "MLECON_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "MLECON_ARCHIVE_INTERVAL")

	setBool(&cfg.Server.Enabled, "MLECON_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MLECON_SERVER_PORT")
	setString(&cfg.Server.APIKey, "MLECON_SERVER_API_KEY")

	setString(&cfg.Notify.TelegramToken, "MLECON_TELEGRAM_TOKEN")
	setString(&cfg.Notify.TelegramChatID, "MLECON_TELEGRAM_CHAT_ID")
	setString(&cfg.Notify.DiscordWebhookURL, "MLECON_DISCORD_WEBHOOK_URL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			dst.Duration = d
		}
	}
}
