package completion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vibecheck/api/internal/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FallbackProvider implements Provider with fallback logic
type FallbackProvider struct {
	Primary   Provider
	Secondary Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{
		Primary:   primary,
		Secondary: secondary,
	}
}

func (f *FallbackProvider) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// Complete tries the primary provider first, falls back to secondary on retryable errors.
// The request model is cleared for the secondary so it uses its own configured model.
func (f *FallbackProvider) Complete(ctx context.Context, req Request) (string, error) {
	result, err := f.Primary.Complete(ctx, req)
	if err == nil {
		return result, nil
	}

	providerErr := ClassifyError(err, f.Primary.Name())

	if !IsRetryableError(err) {
		slog.InfoContext(ctx, "Primary provider failed with non-retryable error, not attempting fallback",
			"provider", f.Primary.Name(),
			"error_type", providerErr.Type,
			"error", err.Error())
		return "", err
	}

	slog.InfoContext(ctx, "Primary provider failed with retryable error, attempting fallback",
		"provider", f.Primary.Name(),
		"fallback", f.Secondary.Name(),
		"error_type", providerErr.Type,
		"error", err.Error())

	metrics.ProviderFallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from_provider", f.Primary.Name()),
		attribute.String("to_provider", f.Secondary.Name()),
		attribute.String("reason", providerErr.Type),
	))

	secondaryReq := req
	secondaryReq.Model = ""
	result, fallbackErr := f.Secondary.Complete(ctx, secondaryReq)
	if fallbackErr == nil {
		return result, nil
	}

	fallbackProviderErr := ClassifyError(fallbackErr, f.Secondary.Name())
	slog.ErrorContext(ctx, "Both primary and secondary providers failed",
		"primary_error_type", providerErr.Type,
		"primary_error", err.Error(),
		"fallback_error_type", fallbackProviderErr.Type,
		"fallback_error", fallbackErr.Error())

	return "", fmt.Errorf("both completion providers failed: %w", fallbackErr)
}
