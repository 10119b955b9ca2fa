package utils

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// RetryConfig controls WithRetry. Delays grow by BackoffFactor per attempt, capped at
// MaxDelay, with up to 10% jitter added.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	AttemptTimeout time.Duration
	// Retryable decides whether an error is worth another attempt. Nil means IsTransient.
	Retryable func(error) bool
}

// WarmupRetryConfig is used at startup to fetch the catalog service token.
// It stays short so a catalog outage does not hold up the listener.
func WarmupRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		BackoffFactor:  2,
		AttemptTimeout: 5 * time.Second,
		Retryable:      IsTransient,
	}
}

// IsTransient reports failures that may succeed on a later attempt: network errors,
// per-attempt deadlines, and 429 or 5xx answers from an OAuth token endpoint.
// Rejected credentials are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response == nil {
			return false
		}
		code := rErr.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// WithRetry runs operation until it succeeds, returns a non-retryable error, or the
// attempts run out. Each attempt gets its own AttemptTimeout when one is set.
func WithRetry[T any](ctx context.Context, operation func(ctx context.Context) (T, error), config RetryConfig) (T, error) {
	var zero T
	retryable := config.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := max(config.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := runAttempt(ctx, operation, config.AttemptTimeout)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts || !retryable(err) || ctx.Err() != nil {
			break
		}

		delay := backoffDelay(config, attempt)
		slog.DebugContext(ctx, "Retrying after transient failure",
			"attempt", attempt,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, operation func(ctx context.Context) (T, error), timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(attemptCtx)
}

func backoffDelay(config RetryConfig, attempt int) time.Duration {
	factor := config.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := float64(config.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= factor
	}
	d := time.Duration(delay)
	if config.MaxDelay > 0 && d > config.MaxDelay {
		d = config.MaxDelay
	}
	if jitter := int64(d) / 10; jitter > 0 {
		d += time.Duration(rand.Int64N(jitter))
	}
	return d
}
