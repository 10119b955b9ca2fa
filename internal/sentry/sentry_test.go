package sentry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sentrygo "github.com/getsentry/sentry-go"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSN(t *testing.T) {
	require.NoError(t, Init("", "test", "vibecheck-api", "1.0.0"))
}

func TestCaptureException_NoClient(t *testing.T) {
	assert.NotPanics(t, func() {
		CaptureException(context.Background(), errors.New("boom"))
		CaptureException(context.Background(), nil)
		RecoverValue(context.Background(), "panic value")
	})
}

func TestHTTPMiddleware_RecoversPanic(t *testing.T) {
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, rr.Body.String())
}

func TestHTTPMiddleware_PassesThrough(t *testing.T) {
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestHTTPMiddleware_KeepsStartedResponse(t *testing.T) {
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/recommendations", nil))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestHTTPMiddleware_BindsHub(t *testing.T) {
	var hubBound bool
	handler := chimiddleware.RequestID(HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hubBound = sentrygo.GetHubFromContext(r.Context()) != nil
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.True(t, hubBound)
}

func TestScrubEvent(t *testing.T) {
	event := &sentrygo.Event{Request: &sentrygo.Request{
		URL:         "https://api.vibecheck.dev/api/auth/refresh_token?refresh_token=rt-123&x=1",
		QueryString: "refresh_token=rt-123&x=1",
		Cookies:     "spotify_auth_state=abc",
		Headers:     map[string]string{"authorization": "Bearer at-1", "Accept": "application/json"},
	}}

	got := scrubEvent(event, nil)
	require.NotNil(t, got)

	assert.NotContains(t, got.Request.URL, "rt-123")
	assert.Contains(t, got.Request.URL, "x=1")
	assert.NotContains(t, got.Request.QueryString, "rt-123")
	assert.Equal(t, scrubbed, got.Request.Cookies)
	assert.Equal(t, scrubbed, got.Request.Headers["authorization"])
	assert.Equal(t, "application/json", got.Request.Headers["Accept"])
}

func TestScrubEvent_NoRequest(t *testing.T) {
	event := &sentrygo.Event{Message: "boom"}
	assert.Same(t, event, scrubEvent(event, nil))
}
