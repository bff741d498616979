package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jaikumar96/fincategorizer/internal/analytics"
	"github.com/Jaikumar96/fincategorizer/internal/classifier"
	"github.com/Jaikumar96/fincategorizer/internal/config"
	"github.com/Jaikumar96/fincategorizer/internal/ingest"
	"github.com/Jaikumar96/fincategorizer/internal/metrics"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/review"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/storage"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// app wires the services every command shares.
type app struct {
	cfg       *config.Config
	store     *storage.SQLiteStorage
	redis     *redis.Client
	memory    *classifier.MemoryCache
	cache     classifier.MerchantCache
	client    classifier.Client
	remote    *classifier.HTTPClient
	metrics   *metrics.Metrics
	review    *review.Service
	analytics *analytics.Service
	logger    *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		metrics: metrics.NewMetrics(),
		logger:  slog.Default(),
	}

	if cfg.Redis.Enabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	a.cache = a.buildCache()
	a.client, err = a.buildClassifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker review.Locker
	if a.redis != nil {
		locker = review.NewRedisLocker(a.redis, cfg.Review.LockTTL)
	} else {
		locker = review.NewLocalLocker()
	}

	a.review = review.NewService(store, review.Options{
		Cache:      a.cache,
		Locker:     locker,
		Metrics:    a.metrics,
		Logger:     a.logger,
		Thresholds: cfg.Triage,
	})
	a.analytics = analytics.NewService(store, cfg.Triage, a.logger)

	return a, nil
}

// buildCache layers a fast cache (Redis when configured, otherwise in
// process) over the merchant_mappings table.
func (a *app) buildCache() classifier.MerchantCache {
	durable := classifier.NewStoreCache(a.store)
	if a.redis != nil {
		return classifier.NewLayered(classifier.NewRedisCache(a.redis, a.cfg.Classifier.CacheTTL), durable)
	}
	a.memory = classifier.NewMemoryCache(a.cfg.Classifier.CacheTTL)
	return classifier.NewLayered(a.memory, durable)
}

// buildClassifier returns the remote classifier when a URL is configured and
// the keyword classifier otherwise, guarded by rate limit and timeout. Only
// rate-limited calls are resent, at most classifier.max_retries times.
func (a *app) buildClassifier() (classifier.Client, error) {
	var next classifier.Client
	if a.cfg.Classifier.URL != "" {
		c, err := classifier.NewHTTPClient(a.cfg.Classifier.URL, a.cfg.Classifier.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create classifier client: %w", err)
		}
		next = c
		a.remote = c
		a.logger.Debug("Using remote classifier", "url", a.cfg.Classifier.URL)
	} else {
		next = classifier.NewPatternClient(classifier.DefaultPatterns())
		a.logger.Debug("Using built-in keyword classifier")
	}

	return classifier.NewGuarded(next, a.cache, classifier.GuardedConfig{
		Retry: service.RetryOptions{
			MaxAttempts:  a.cfg.Classifier.MaxRetries + 1,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
		Timeout:        a.cfg.Classifier.Timeout,
		RateLimit:      a.cfg.Classifier.RateLimit,
		Burst:          a.cfg.Classifier.Burst,
		CacheThreshold: a.cfg.Triage.AutoAccept,
	}, a.logger, a.metrics), nil
}

// pipeline builds an ingestion pipeline; progress may be nil.
func (a *app) pipeline(progress func(done, total int)) *ingest.Pipeline {
	return ingest.NewPipeline(a.store, a.client, ingest.Options{
		Progress:        progress,
		Metrics:         a.metrics,
		Logger:          a.logger,
		DefaultCurrency: a.cfg.Ingest.DefaultCurrency,
		Thresholds:      a.cfg.Triage,
		MaxBatchSize:    a.cfg.Ingest.MaxBatchSize,
		Workers:         a.cfg.Ingest.Workers,
	})
}

// health checks every backing store.
func (a *app) health(ctx context.Context) error {
	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.remote != nil {
		if err := a.remote.Health(ctx); err != nil {
			return fmt.Errorf("classifier: %w", err)
		}
	}
	return nil
}

// session is the identity CLI commands act as.
func (a *app) session() model.Session {
	return model.Session{UserID: a.cfg.CLI.UserID}
}

func (a *app) Close() {
	if a.memory != nil {
		a.memory.Close()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.store.Close())
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Failed to close resources", "error", err)
	}
}
