package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Jaikumar96/fincategorizer/internal/service"
)

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastRetry(5))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return sentinel
	}, fastRetry(2))

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return Permanent(errors.New("bad request"))
	}, fastRetry(5))

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return errors.New("transient")
	}, fastRetry(5))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_HonorsRetryAfter(t *testing.T) {
	opts := service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     40 * time.Millisecond,
		Multiplier:   2,
	}

	calls := 0
	start := time.Now()
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return RateLimited(20 * time.Millisecond)
		}
		return nil
	}, opts)

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestNextWait(t *testing.T) {
	ceiling := time.Second
	backoff := 10 * time.Millisecond

	assert.Equal(t, backoff, nextWait(errors.New("boom"), backoff, ceiling))
	assert.Equal(t, ceiling, nextWait(ErrRateLimit, backoff, ceiling))
	assert.Equal(t, 300*time.Millisecond, nextWait(RateLimited(300*time.Millisecond), backoff, ceiling))
	assert.Equal(t, ceiling, nextWait(RateLimited(time.Minute), backoff, ceiling))
	assert.Equal(t, ceiling, nextWait(RateLimited(0), backoff, ceiling))
}
