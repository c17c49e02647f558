package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/blob/s3"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/cache/redis"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/config"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/crypto"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/gateway"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/notify"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. Built by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	ListingStore domain.ListingStore
	TradeStore   *postgres.TradeStore
	EconomyStore domain.EconomyStore
	SupplyStore  domain.SupplyStore
	CardStore    domain.CardStore
	BalanceStore domain.BalanceStore
	Templates    domain.TemplateStore
	PaymentLog   domain.PaymentLogStore
	AuditStore   domain.AuditStore

	// Cache
	LockManager domain.LockManager
	MintLimiter domain.MintLimiter
	SignalBus   domain.SignalBus

	// Payment gateway
	Processor gateway.Processor

	// Cold storage; nil unless archival is enabled.
	Archiver *s3blob.Archiver

	// Operator alerts
	Notifier *notify.Notifier

	// Connectivity handles for health checks.
	Postgres *postgres.Client
	Redis    *redis.Client
}

// Wire builds every concrete dependency from the configuration.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	tradeStore := postgres.NewTradeStore(pool)
	deps.Postgres = pgClient
	deps.ListingStore = postgres.NewListingStore(pool)
	deps.TradeStore = tradeStore
	deps.EconomyStore = postgres.NewEconomyStore(pool)
	deps.SupplyStore = postgres.NewSupplyStore(pool)
	deps.CardStore = postgres.NewCardStore(pool)
	deps.BalanceStore = postgres.NewBalanceStore(pool)
	deps.Templates = postgres.NewTemplateStore(pool)
	deps.PaymentLog = postgres.NewPaymentLogStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.LockManager = redis.NewLockManager(redisClient).
		WithTimeouts(cfg.Trade.LockTTL.Duration, cfg.Trade.LockAcquire.Duration)
	deps.MintLimiter = redis.NewMintLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Payment gateway ---
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.Processor.APISecret,
		EncryptedSecretPath: cfg.Processor.EncryptedSecretPath,
		Password:            cfg.Processor.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: processor secret: %w", err)
	}
	auth := &crypto.HMACAuth{Key: cfg.Processor.APIKey, Secret: secret}
	deps.Processor = gateway.New(gateway.NewClient(cfg.Processor.BaseURL, auth), deps.PaymentLog, logger)

	// --- S3 cold storage ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			tradeStore,
			deps.AuditStore,
		)
	}

	// --- Operator alerts ---
	var channels []notify.Channel
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		channels = append(channels, notify.NewTelegramChannel(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		channels = append(channels, notify.NewDiscordChannel(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(channels, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
