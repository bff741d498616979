package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/metrics"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
)

// GuardedConfig configures the Guarded decorator.
type GuardedConfig struct {
	// Retry applies only to calls the classifier refused with a rate limit.
	// Any other failure, timeouts included, ends the call after one attempt.
	Retry service.RetryOptions
	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration
	// RateLimit is calls per second; zero disables limiting.
	RateLimit float64
	Burst     int
	// CacheThreshold is the minimum confidence for an answer to be recorded
	// as a merchant mapping.
	CacheThreshold float64
}

// Guarded wraps a Client with a rate limiter, per-attempt timeouts and a
// merchant mapping writer. Each request reaches the classifier once unless
// the classifier answers with a rate limit. Every failure it returns
// matches common.ErrClassificationUnavailable.
type Guarded struct {
	next    Client
	cache   MerchantCache
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
	cfg     GuardedConfig
}

// NewGuarded creates the decorator. cache, logger and m may be nil.
func NewGuarded(next Client, cache MerchantCache, cfg GuardedConfig, logger *slog.Logger, m *metrics.Metrics) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Guarded{
		next:    next,
		cache:   cache,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return g
}

// Categorize implements Client.
func (g *Guarded) Categorize(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	var resp Response
	err := common.WithRetry(ctx, func() error {
		r, err := g.attempt(ctx, req)
		if err != nil {
			if errors.Is(err, common.ErrRateLimit) {
				return err
			}
			return common.Permanent(err)
		}
		resp = r
		return nil
	}, g.cfg.Retry)
	g.metrics.RecordClassifierCall(err, time.Since(start))

	if err != nil {
		g.logger.Warn("Classification failed",
			"merchant", req.MerchantNormalized,
			"error", err)
		return Response{}, fmt.Errorf("%w: %w", common.ErrClassificationUnavailable, err)
	}

	g.remember(ctx, req, resp)
	return resp, nil
}

func (g *Guarded) attempt(ctx context.Context, req Request) (Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("rate limiter: %w", err)
		}
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	r, err := g.next.Categorize(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if err := r.Validate(); err != nil {
		return Response{}, fmt.Errorf("invalid classifier response: %w", err)
	}
	return r, nil
}

// remember records a confident answer as a classifier-sourced mapping. The
// cache keeps any user mapping already stored for the merchant.
func (g *Guarded) remember(ctx context.Context, req Request, resp Response) {
	if g.cache == nil || req.UserID <= 0 || req.MerchantNormalized == "" {
		return
	}
	if resp.ConfidenceScore < g.cfg.CacheThreshold {
		return
	}

	err := g.cache.Set(ctx, model.MerchantMapping{
		UserID:             req.UserID,
		MerchantNormalized: req.MerchantNormalized,
		CategoryID:         resp.CategoryID,
		CategoryName:       resp.CategoryName,
		Confidence:         resp.ConfidenceScore,
		Source:             model.SourceClassifier,
		UpdatedAt:          time.Now().UTC(),
	})
	if err != nil {
		g.logger.Warn("Failed to cache merchant mapping", "merchant", req.MerchantNormalized, "error", err)
	}
}
