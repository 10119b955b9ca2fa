package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func tokenError(status int) error {
	return fmt.Errorf("failed to get spotify service token: %w", &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: status},
	})
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"dial failure", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"token endpoint 503", tokenError(http.StatusServiceUnavailable), true},
		{"token endpoint 429", tokenError(http.StatusTooManyRequests), true},
		{"bad client credentials", tokenError(http.StatusUnauthorized), false},
		{"plain error", errors.New("decode failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	result, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", tokenError(http.StatusBadGateway)
		}
		return "svc-token", nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "svc-token", result)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		return "", tokenError(http.StatusUnauthorized)
	}, fastConfig(5))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, context.DeadlineExceeded
	}, fastConfig(3))

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_CustomClassifier(t *testing.T) {
	errBusy := errors.New("busy")
	cfg := fastConfig(4)
	cfg.Retryable = func(err error) bool { return errors.Is(err, errBusy) }

	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		return 0, errBusy
	}, cfg)

	require.ErrorIs(t, err, errBusy)
	assert.Equal(t, 4, attempts)
}

func TestWithRetry_AttemptTimeout(t *testing.T) {
	cfg := fastConfig(2)
	cfg.AttemptTimeout = 20 * time.Millisecond

	attempts := 0
	_, err := WithRetry(context.Background(), func(ctx context.Context) (int, error) {
		attempts++
		<-ctx.Done()
		return 0, ctx.Err()
	}, cfg)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, attempts)
}

func TestWithRetry_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = time.Second

	attempts := 0
	done := make(chan error, 1)
	go func() {
		_, err := WithRetry(ctx, func(ctx context.Context) (int, error) {
			attempts++
			return 0, context.DeadlineExceeded
		}, cfg)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	case <-time.After(time.Second):
		t.Fatal("WithRetry did not return after cancellation")
	}
}

func TestWarmupRetryConfig(t *testing.T) {
	cfg := WarmupRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.AttemptTimeout)
	assert.True(t, cfg.Retryable(tokenError(http.StatusServiceUnavailable)))
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 250 * time.Millisecond, BackoffFactor: 2}

	d1 := backoffDelay(cfg, 1)
	assert.GreaterOrEqual(t, d1, 100*time.Millisecond)
	assert.Less(t, d1, 110*time.Millisecond)

	d3 := backoffDelay(cfg, 3)
	assert.GreaterOrEqual(t, d3, 250*time.Millisecond)
	assert.Less(t, d3, 275*time.Millisecond)
}
