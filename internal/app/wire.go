package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/quanterra/arbscan/internal/blob/s3"
	"github.com/quanterra/arbscan/internal/cache/redis"
	"github.com/quanterra/arbscan/internal/config"
	"github.com/quanterra/arbscan/internal/domain"
	"github.com/quanterra/arbscan/internal/notify"
	"github.com/quanterra/arbscan/internal/platform/onchain"
	"github.com/quanterra/arbscan/internal/platform/polymarket"
	"github.com/quanterra/arbscan/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application
// modes need. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	PG    *postgres.Client
	Redis *redis.Client

	// Stores
	Opps  domain.OpportunityStore
	Risk  domain.RiskStore
	Audit domain.AuditStore

	// Caches and signals
	Fees   domain.FeeRateCache
	Books  domain.OrderbookCache
	Bus    domain.SignalBus
	Health *redis.HealthRecorder

	// Upstream clients
	Gamma *polymarket.GammaClient
	Clob  *polymarket.ClobClient

	// Settlement is nil when the on-chain estimator is disabled; the
	// scanner then prices convert operations at zero.
	Settlement *onchain.SettlementEstimator

	// Archiver is nil unless archive.enabled is set.
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
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
	deps.PG = pgClient
	deps.Opps = postgres.NewOpportunityStore(pool)
	deps.Risk = postgres.NewRiskStore(pool)
	deps.Audit = postgres.NewAuditStore(pool)

	// Seed the control plane so the very first read sees the fail-safe
	// defaults (observation-only on, manual approval on).
	if err := deps.Risk.Seed(ctx, domain.DefaultRiskLimits()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: seed risk limits: %w", err)
	}

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
	deps.Fees = redis.NewFeeRateCache(redisClient, cfg.Polymarket.FeeTTL.Duration)
	deps.Books = redis.NewOrderbookCache(redisClient)
	deps.Bus = redis.NewSignalBus(redisClient)
	deps.Health = redis.NewHealthRecorder(redisClient, logger)

	// --- Upstream clients ---
	timeout := cfg.Polymarket.HTTPTimeout.Duration
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost, timeout)
	deps.Clob = polymarket.NewClobClient(cfg.Polymarket.ClobHost, timeout)

	// --- On-chain settlement estimator ---
	if cfg.Onchain.Enabled {
		est, err := onchain.New(cfg.Onchain.RPCURL, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: onchain: %w", err)
		}
		closers = append(closers, est.Close)
		deps.Settlement = est
	}

	// --- S3 audit archiver ---
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
			deps.Audit,
			time.Duration(cfg.Archive.RetentionDays)*24*time.Hour,
			cfg.Archive.Interval.Duration,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
