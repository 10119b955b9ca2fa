package sentry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const scrubbed = "[Filtered]"

// Query parameters and headers that carry Spotify credentials.
var (
	secretParams  = []string{"access_token", "refresh_token", "code", "state"}
	secretHeaders = []string{"Authorization", "Cookie"}
)

// Init configures the global Sentry client. An empty DSN leaves reporting disabled.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceName + "@" + serviceVersion,
		AttachStacktrace: true,
		// spans are exported through OpenTelemetry
		TracesSampleRate: 0,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	return nil
}

// Flush blocks until queued events are delivered or timeout elapses.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureException reports err on the hub bound to ctx, or the current hub.
func CaptureException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hubFor(ctx).CaptureException(err)
}

// RecoverValue reports a recovered panic value on the hub bound to ctx.
func RecoverValue(ctx context.Context, v any) {
	hubFor(ctx).RecoverWithContext(ctx, v)
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// scrubEvent strips OAuth tokens from the request attached to an event.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event == nil || event.Request == nil {
		return event
	}
	req := event.Request
	req.QueryString = scrubQuery(req.QueryString)
	if u, err := url.Parse(req.URL); err == nil && u.RawQuery != "" {
		u.RawQuery = scrubQuery(u.RawQuery)
		req.URL = u.String()
	}
	if req.Cookies != "" {
		req.Cookies = scrubbed
	}
	for name := range req.Headers {
		for _, h := range secretHeaders {
			if strings.EqualFold(name, h) {
				req.Headers[name] = scrubbed
			}
		}
	}
	return event
}

func scrubQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return scrubbed
	}
	for _, p := range secretParams {
		if values.Has(p) {
			values.Set(p, scrubbed)
		}
	}
	return values.Encode()
}
