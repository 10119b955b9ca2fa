package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"github.com/vibecheck/api/internal/middleware"
	"github.com/vibecheck/api/internal/sentry"
	"go.opentelemetry.io/otel"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes int64 = 64 << 10

// Router mounts every endpoint on a chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(otelchi.Middleware(s.cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	metricCfg := otelchimetric.NewBaseConfig(s.cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(sentry.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.RequestSize(maxBodyBytes))
	r.Use(middleware.BearerToken)

	r.Get("/health", s.HandleHealth)

	// The prompt endpoint is served at the root as well as under /api.
	r.Post("/recommendations/prompt_recommendations", s.HandlePromptRecommendations)

	r.Route("/api", func(r chi.Router) {
		r.Post("/recommendations", s.HandleSeedRecommendations)
		r.Post("/recommendations/prompt_recommendations", s.HandlePromptRecommendations)
		r.Post("/recommendations/track", s.HandleTrack)
		r.Get("/search", s.HandleSearch)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.HandleLogin)
			r.Get("/callback", s.HandleCallback)
			r.Get("/refresh_token", s.HandleRefreshToken)
		})
	})

	return r
}
