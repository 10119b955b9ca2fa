package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vibecheck/api/internal/api"
	"github.com/vibecheck/api/internal/config"
	"github.com/vibecheck/api/internal/httpclient"
	"github.com/vibecheck/api/internal/services/artist"
	"github.com/vibecheck/api/internal/services/completion"
	"github.com/vibecheck/api/internal/services/genre"
	"github.com/vibecheck/api/internal/services/oauth"
	"github.com/vibecheck/api/internal/services/recommendation"
	"github.com/vibecheck/api/internal/services/spotify"
	"github.com/vibecheck/api/internal/utils"
)

// Options overrides external endpoints. Zero values use the real services.
type Options struct {
	SpotifyAPIBaseURL string
	SpotifyTokenURL   string
	SpotifyAuthURL    string
	// Completion replaces the provider built from config.
	Completion completion.Provider
	HTTPClient *http.Client
}

// App holds the wired services behind the HTTP server.
type App struct {
	Server       *api.Server
	Catalog      *spotify.Client
	Orchestrator *recommendation.Orchestrator
	Bridge       *oauth.Bridge
}

func New(cfg *config.Config, opts Options) (*App, error) {
	catalogClient := httpclient.New(cfg.Timeouts.Catalog)
	completionClient := httpclient.New(cfg.Timeouts.Completion)
	if opts.HTTPClient != nil {
		catalogClient = httpclient.Instrument(opts.HTTPClient)
		completionClient = catalogClient
	}

	catalog, err := spotify.NewClient(spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		APIBaseURL:   opts.SpotifyAPIBaseURL,
		TokenURL:     opts.SpotifyTokenURL,
		HTTPClient:   catalogClient,

		RequestsPerMinute: cfg.Catalog.RequestsPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify client: %w", err)
	}

	provider := opts.Completion
	if provider == nil {
		provider = completion.NewProvider(cfg.Completion, cfg.GroqKey, cfg.OpenAIKey, completionClient)
	}

	classifier := genre.NewClassifier(provider, genre.NewAllowList(cfg.Genres), genre.Sampling{
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		TopP:        genre.DefaultSampling.TopP,
	})
	resolver := artist.NewResolver(catalog, artist.Options{
		SearchBatch: cfg.Catalog.SearchBatchSize,
		Timeout:     cfg.Timeouts.Catalog,
	})
	orchestrator := recommendation.New(classifier, resolver, recommendation.Options{
		MaxPromptLength: cfg.Prompt.MaxLength,
		ResultLimit:     cfg.Catalog.ResultLimit,
	})

	tokenURL := opts.SpotifyTokenURL
	if tokenURL == "" {
		tokenURL = spotify.DefaultTokenURL
	}
	bridge := oauth.NewBridge(oauth.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURL:  cfg.SpotifyRedirectURI,
		AuthURL:      opts.SpotifyAuthURL,
		TokenURL:     tokenURL,
		StateSecret:  cfg.StateSecret,
		FrontendURL:  cfg.FrontendURL,
		HTTPClient:   catalogClient,
	})

	return &App{
		Server:       api.NewServer(cfg, orchestrator, resolver, bridge, catalog),
		Catalog:      catalog,
		Orchestrator: orchestrator,
		Bridge:       bridge,
	}, nil
}

// WarmUp fetches the service token so /health reports a live catalog connection.
// Failure is logged; requests retry the token lazily.
func (a *App) WarmUp(ctx context.Context) {
	_, err := utils.WithRetry(ctx, func(ctx context.Context) (string, error) {
		return a.Catalog.ServiceToken(ctx)
	}, utils.WarmupRetryConfig())
	if err != nil {
		slog.WarnContext(ctx, "Spotify service token unavailable at startup", "error", err)
		return
	}
	slog.InfoContext(ctx, "Spotify service token acquired")
}
