package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("vibecheck/business")

	// Recommendation metrics
	RecommendationRequestsTotal metric.Int64Counter
	RecommendationDuration      metric.Float64Histogram

	// Classification metrics
	ClassificationOutcomesTotal metric.Int64Counter

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// Catalog credential fallback metrics
	CredentialFallbackTotal metric.Int64Counter

	// Provider fallback metrics
	ProviderFallbackTotal metric.Int64Counter
)

func init() {
	m := noop.NewMeterProvider().Meter("vibecheck/noop")
	RecommendationRequestsTotal, _ = m.Int64Counter("noop")
	RecommendationDuration, _ = m.Float64Histogram("noop")
	ClassificationOutcomesTotal, _ = m.Int64Counter("noop")
	ExternalAPICallsTotal, _ = m.Int64Counter("noop")
	ExternalAPIDuration, _ = m.Float64Histogram("noop")
	CredentialFallbackTotal, _ = m.Int64Counter("noop")
	ProviderFallbackTotal, _ = m.Int64Counter("noop")
}

// Init registers the instruments against the global meter provider.
// Until it is called every instrument is a no-op, so packages can record unconditionally.
func Init() error {
	var err error

	RecommendationRequestsTotal, err = meter.Int64Counter(
		"recommendation.requests.total",
		metric.WithDescription("Total number of recommendation requests by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecommendationDuration, err = meter.Float64Histogram(
		"recommendation.duration",
		metric.WithDescription("Duration of the recommendation pipeline"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2, 5, 10),
	)
	if err != nil {
		return err
	}

	ClassificationOutcomesTotal, err = meter.Int64Counter(
		"classification.outcomes.total",
		metric.WithDescription("Total number of genre classifications by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10),
	)
	if err != nil {
		return err
	}

	CredentialFallbackTotal, err = meter.Int64Counter(
		"credential.fallback.total",
		metric.WithDescription("Total number of catalog searches that fell back to the service token"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ProviderFallbackTotal, err = meter.Int64Counter(
		"provider.fallback.total",
		metric.WithDescription("Total number of completion provider fallback events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordExternalCall records one call to an upstream API.
func RecordExternalCall(ctx context.Context, provider, operation string, status int, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.Int("status", status),
	)
	ExternalAPICallsTotal.Add(ctx, 1, attrs)
	ExternalAPIDuration.Record(ctx, seconds, attrs)
}
