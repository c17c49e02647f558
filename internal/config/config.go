// Package config defines the top-level configuration for the economy engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MLECON_* environment variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Processor ProcessorConfig `toml:"processor"`
	Supply    SupplyConfig    `toml:"supply"`
	Trade     TradeConfig     `toml:"trade"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ProcessorConfig holds payment processor API parameters.
type ProcessorConfig struct {
	BaseURL             string `toml:"base_url"`
	APIKey              string `toml:"api_key"`
	APISecret           string `toml:"api_secret"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
	Currency            string `toml:"currency"`
}

// SupplyConfig holds issuance epoch, caps, and the per-user daily allowance
// for scarce tiers.
type SupplyConfig struct {
	Epoch          string           `toml:"epoch"`
	TierCaps       map[string]int64 `toml:"tier_caps"`
	ScarceTiers    []string         `toml:"scarce_tiers"`
	DailyScarceCap int64            `toml:"daily_scarce_cap"`
}

// ScarceTier reports whether the tier is per-template capped.
func (c SupplyConfig) ScarceTier(tier string) bool {
	for _, t := range c.ScarceTiers {
		if strings.EqualFold(t, tier) {
			return true
		}
	}
	return false
}

// TradeConfig holds trade escrow parameters.
type TradeConfig struct {
	Window        duration `toml:"window"`
	SweepInterval duration `toml:"sweep_interval"`
	SweepBatch    int      `toml:"sweep_batch"`
	LockTTL       duration `toml:"lock_ttl"`
	LockAcquire   duration `toml:"lock_acquire_timeout"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// ServerConfig holds the HTTP API server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds operator alert channels.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration for TOML decoding of strings like "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns a Config with sensible development defaults.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "mleconomy",
			User:          "mleconomy",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Processor: ProcessorConfig{
			Currency: "USD",
		},
		Supply: SupplyConfig{
			Epoch: "season1",
			TierCaps: map[string]int64{
				"common":    1_000_000,
				"rare":      250_000,
				"epic":      50_000,
				"legendary": 5_000,
			},
			ScarceTiers:    []string{"legendary"},
			DailyScarceCap: 3,
		},
		Trade: TradeConfig{
			Window:        duration{5 * time.Minute},
			SweepInterval: duration{time.Minute},
			SweepBatch:    100,
			LockTTL:       duration{30 * time.Second},
			LockAcquire:   duration{3 * time.Second},
		},
		Archive: ArchiveConfig{
			Interval:      duration{24 * time.Hour},
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// Validate checks the configuration for the selected mode.
func (c *Config) Validate() error {
	switch c.Mode {
	case "serve", "worker", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Supply.Epoch == "" {
		return fmt.Errorf("config: supply.epoch is required")
	}
	if len(c.Supply.TierCaps) == 0 {
		return fmt.Errorf("config: supply.tier_caps is required")
	}
	for tier, tierCap := range c.Supply.TierCaps {
		if tierCap <= 0 {
			return fmt.Errorf("config: supply.tier_caps[%s] must be positive", tier)
		}
	}
	for _, tier := range c.Supply.ScarceTiers {
		if _, ok := c.Supply.TierCaps[strings.ToLower(tier)]; !ok {
			return fmt.Errorf("config: scarce tier %q has no cap configured", tier)
		}
	}

	if c.Trade.Window.Duration <= 0 {
		return fmt.Errorf("config: trade.window must be positive")
	}

	if c.Processor.BaseURL == "" {
		return fmt.Errorf("config: processor.base_url is required")
	}
	if c.Processor.APISecret == "" && c.Processor.EncryptedSecretPath == "" {
		return fmt.Errorf("config: processor secret is required (api_secret or encrypted_secret_path)")
	}

	if c.Archive.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("config: s3.bucket is required when archive is enabled")
	}

	return nil
}
