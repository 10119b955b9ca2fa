package sentry

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const panicBody = `{"success":false,"error":"Internal server error"}`

// HTTPMiddleware reports handler panics to Sentry and answers them with the generic
// 500 envelope, unless the handler already started its response.
func HTTPMiddleware(next http.Handler) http.Handler {
	reporting := sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(tagRequest(next))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			slog.ErrorContext(r.Context(), "Recovered panic in HTTP handler",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", chimiddleware.GetReqID(r.Context()),
				"panic", fmt.Sprint(v))
			if !tw.wroteHeader {
				tw.Header().Set("Content-Type", "application/json")
				tw.WriteHeader(http.StatusInternalServerError)
				_, _ = tw.Write([]byte(panicBody))
			}
		}()
		reporting.ServeHTTP(tw, r)
	})
}

// tagRequest labels the request hub with the chi request ID.
func tagRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			if id := chimiddleware.GetReqID(r.Context()); id != "" {
				hub.Scope().SetTag("request_id", id)
			}
		}
		next.ServeHTTP(w, r)
	})
}

type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *trackingWriter) WriteHeader(statusCode int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
