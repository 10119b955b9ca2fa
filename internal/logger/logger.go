package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vibecheck/api"

const redacted = "[REDACTED]"

// sensitiveKeys never reach stdout or the log exporter with their value.
var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"usertoken":     true,
	"authorization": true,
	"client_secret": true,
	"api_key":       true,
}

// New creates the process logger. Production writes JSON at info level, anything else
// writes text at debug level. Records are also forwarded to the global OpenTelemetry
// logger provider.
func New(env string) *slog.Logger {
	return slog.New(newHandler(env, os.Stdout, nil))
}

func newHandler(env string, w io.Writer, provider log.LoggerProvider) slog.Handler {
	opts := &slog.HandlerOptions{ReplaceAttr: redact}
	var base slog.Handler
	if env == "production" {
		base = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		base = slog.NewTextHandler(w, opts)
	}
	return &bridge{next: base, provider: provider}
}

// WithTraceContext returns a "trace" group with trace_id and span_id when ctx carries a
// sampled or remote span, and an empty attr otherwise.
func WithTraceContext(ctx context.Context) slog.Attr {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return slog.Attr{}
	}
	return slog.Group("trace",
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	return a
}

// bridge writes to next and mirrors each record to an OpenTelemetry logger.
type bridge struct {
	next     slog.Handler
	provider log.LoggerProvider
	attrs    []log.KeyValue
	prefix   string
}

func (b *bridge) Enabled(ctx context.Context, l slog.Level) bool {
	return b.next.Enabled(ctx, l)
}

func (b *bridge) Handle(ctx context.Context, r slog.Record) error {
	if err := b.next.Handle(ctx, r); err != nil {
		return err
	}

	provider := b.provider
	if provider == nil {
		provider = global.GetLoggerProvider()
	}

	var rec log.Record
	rec.SetTimestamp(r.Time)
	rec.SetObservedTimestamp(time.Now())
	rec.SetBody(log.StringValue(r.Message))
	rec.SetSeverity(severity(r.Level))
	rec.SetSeverityText(r.Level.String())
	rec.AddAttributes(b.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if kv, ok := b.convert(a); ok {
			rec.AddAttributes(kv)
		}
		return true
	})

	provider.Logger(instrumentationName).Emit(ctx, rec)
	return nil
}

func (b *bridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	kvs := append([]log.KeyValue(nil), b.attrs...)
	for _, a := range attrs {
		if kv, ok := b.convert(a); ok {
			kvs = append(kvs, kv)
		}
	}
	return &bridge{next: b.next.WithAttrs(attrs), provider: b.provider, attrs: kvs, prefix: b.prefix}
}

func (b *bridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	return &bridge{next: b.next.WithGroup(name), provider: b.provider, attrs: b.attrs, prefix: b.prefix + name + "."}
}

func (b *bridge) convert(a slog.Attr) (log.KeyValue, bool) {
	a = redact(nil, a)
	if a.Equal(slog.Attr{}) {
		return log.KeyValue{}, false
	}
	// Inline groups have no key; their members keep the current prefix.
	if a.Key == "" && a.Value.Kind() == slog.KindGroup {
		return log.KeyValue{Key: strings.TrimSuffix(b.prefix, "."), Value: toValue(a.Value)}, b.prefix != ""
	}
	return log.KeyValue{Key: b.prefix + a.Key, Value: toValue(a.Value)}, true
}

func severity(l slog.Level) log.Severity {
	switch {
	case l >= slog.LevelError:
		return log.SeverityError
	case l >= slog.LevelWarn:
		return log.SeverityWarn
	case l >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

func toValue(v slog.Value) log.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return log.StringValue(v.String())
	case slog.KindInt64:
		return log.Int64Value(v.Int64())
	case slog.KindUint64:
		return log.Int64Value(int64(v.Uint64()))
	case slog.KindFloat64:
		return log.Float64Value(v.Float64())
	case slog.KindBool:
		return log.BoolValue(v.Bool())
	case slog.KindDuration:
		return log.Int64Value(v.Duration().Milliseconds())
	case slog.KindTime:
		return log.StringValue(v.Time().Format(time.RFC3339Nano))
	case slog.KindGroup:
		members := v.Group()
		kvs := make([]log.KeyValue, 0, len(members))
		for _, m := range members {
			m = redact(nil, m)
			kvs = append(kvs, log.KeyValue{Key: m.Key, Value: toValue(m.Value)})
		}
		return log.MapValue(kvs...)
	default:
		return log.StringValue(v.String())
	}
}
