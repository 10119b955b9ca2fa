// Package telemetry provides OpenTelemetry initialization and helpers
// for distributed tracing across the vibecheck API.
//
// The package configures OTLP HTTP export for traces and logs. When no
// endpoint is configured the global no-op providers stay in place.
package telemetry
