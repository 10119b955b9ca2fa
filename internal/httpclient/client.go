// Package httpclient builds the outbound clients used for the catalog and completion
// providers. Every request gets an otelhttp client span named after its upstream.
package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const UserAgent = "vibecheck-api/1.0"

type upstreamKey struct{}

// WithUpstream names the service a request is sent to ("Spotify", "groq", ...).
func WithUpstream(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, upstreamKey{}, name)
}

func upstreamFrom(ctx context.Context) string {
	name, _ := ctx.Value(upstreamKey{}).(string)
	return name
}

// upstreamTransport tags the client span and sets the User-Agent.
type upstreamTransport struct {
	base http.RoundTripper
}

func (t *upstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(req.Context())
	if name := upstreamFrom(req.Context()); name != "" {
		span.SetAttributes(attribute.String("upstream", name))
	}

	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		span.SetAttributes(
			attribute.Bool("upstream.throttled", true),
			attribute.String("upstream.retry_after", resp.Header.Get("Retry-After")),
		)
	case resp.StatusCode >= 500:
		span.SetStatus(codes.Error, "upstream status "+strconv.Itoa(resp.StatusCode))
	}
	return resp, nil
}

func spanName(_ string, r *http.Request) string {
	if name := upstreamFrom(r.Context()); name != "" {
		return name + " " + r.Method + " " + r.URL.Path
	}
	return "HTTP " + r.Method
}

func instrument(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(&upstreamTransport{base: base},
		otelhttp.WithSpanNameFormatter(spanName),
	)
}

// New returns a traced client. timeout bounds the whole exchange, body included.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: instrument(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Instrument returns a traced copy of client. The original is left untouched.
func Instrument(client *http.Client) *http.Client {
	out := *client
	out.Transport = instrument(client.Transport)
	return &out
}
