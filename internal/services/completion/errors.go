package completion

import (
	"errors"
	"net"
	"strings"

	apperrors "github.com/vibecheck/api/internal/errors"
)

// Error classes produced by ClassifyError.
const (
	ErrorRateLimit       = "rate_limit"
	ErrorCreditExhausted = "credit_exhausted"
	ErrorServer          = "server_error"
	ErrorTransport       = "transport_error"
	ErrorClient          = "client_error"
	ErrorUnknown         = "unknown"
)

// ProviderError represents a classified error from a completion provider
type ProviderError struct {
	Type     string
	Message  string
	Provider string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

var (
	rateLimitMarkers = []string{"status 429", "http 429", "rate limit", "too many requests"}
	creditMarkers    = []string{"status 402", "http 402", "insufficient credit", "credit exhausted", "billing"}
	serverMarkers    = []string{"status 5", "http 5", "server error", "internal error"}
	clientMarkers    = []string{"status 4", "http 4", "bad request", "unauthorized", "forbidden"}
)

// ClassifyError analyzes an error and returns a ProviderError with classification
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	classify := func(kind string) *ProviderError {
		return &ProviderError{Type: kind, Message: msg, Provider: provider}
	}

	switch {
	case containsAny(msg, rateLimitMarkers):
		return classify(ErrorRateLimit)
	case containsAny(msg, creditMarkers):
		return classify(ErrorCreditExhausted)
	}

	if appErr, ok := apperrors.As(err); ok {
		if appErr.StatusCode >= 500 {
			return classify(ErrorServer)
		}
		if appErr.StatusCode >= 400 {
			return classify(ErrorClient)
		}
	}

	if containsAny(msg, serverMarkers) {
		return classify(ErrorServer)
	}
	if containsAny(msg, clientMarkers) {
		return classify(ErrorClient)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return classify(ErrorTransport)
	}

	return classify(ErrorUnknown)
}

// IsRetryableError reports whether another provider may succeed where this one failed.
func IsRetryableError(err error) bool {
	providerErr := ClassifyError(err, "")
	if providerErr == nil {
		return false
	}

	switch providerErr.Type {
	case ErrorRateLimit, ErrorCreditExhausted, ErrorServer, ErrorTransport:
		return true
	default:
		return false
	}
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
