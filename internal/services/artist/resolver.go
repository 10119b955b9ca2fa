package artist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vibecheck/api/internal/logger"
	"github.com/vibecheck/api/internal/metrics"
	"github.com/vibecheck/api/internal/services/spotify"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultLimit       = 6
	DefaultTrackLimit  = 10
	DefaultSearchBatch = spotify.MaxSearchLimit

	seedLimit         = 5
	seedMinPopularity = 25
	seedMaxPopularity = 75
	trackMarket       = "US"
)

type Options struct {
	// SearchBatch is the page size requested from the search endpoint, clamped to 1..50.
	SearchBatch int
	// Timeout bounds one Resolve or SimilarToTrack call. Zero means no extra bound.
	Timeout time.Duration
}

// Resolver turns a genre into artists using the catalog search.
type Resolver struct {
	catalog Catalog
	batch   int
	timeout time.Duration
}

func NewResolver(catalog Catalog, opts Options) *Resolver {
	batch := opts.SearchBatch
	if batch < 1 || batch > spotify.MaxSearchLimit {
		batch = DefaultSearchBatch
	}
	return &Resolver{catalog: catalog, batch: batch, timeout: opts.Timeout}
}

// credential is the bearer token chosen for a request.
type credential struct {
	token  string
	isUser bool
}

// pickCredential probes a user token and falls back to the service token. Fallback is
// logged and counted but never an error on its own.
func (r *Resolver) pickCredential(ctx context.Context, userToken string) (credential, error) {
	if userToken != "" {
		_, err := r.catalog.Me(ctx, userToken)
		if err == nil {
			return credential{token: userToken, isUser: true}, nil
		}
		slog.WarnContext(ctx, "User token probe failed, using service token",
			"error", err,
			logger.WithTraceContext(ctx))
		metrics.CredentialFallbackTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", "probe_failed"),
		))
	}
	return r.serviceCredential(ctx)
}

func (r *Resolver) serviceCredential(ctx context.Context) (credential, error) {
	token, err := r.catalog.ServiceToken(ctx)
	if err != nil {
		return credential{}, err
	}
	return credential{token: token}, nil
}

// withServiceRetry runs call once with cred and, if a user token was rejected with 401,
// once more with the service token.
func withServiceRetry[T any](ctx context.Context, r *Resolver, cred credential, call func(token string) (T, error)) (T, error) {
	out, err := call(cred.token)
	if err == nil || !cred.isUser || !spotify.IsUnauthorized(err) {
		return out, err
	}

	slog.InfoContext(ctx, "User token rejected, retrying with service token")
	metrics.CredentialFallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", "unauthorized"),
	))

	svc, svcErr := r.serviceCredential(ctx)
	if svcErr != nil {
		var zero T
		return zero, svcErr
	}
	return call(svc.token)
}

func (r *Resolver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Resolve searches the catalog for artists tagged with genre and returns at most limit
// of them, in catalog order. A limit below 1 means DefaultLimit.
func (r *Resolver) Resolve(ctx context.Context, genre, userToken string, limit int) Result {
	if limit < 1 {
		limit = DefaultLimit
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	cred, err := r.pickCredential(ctx, userToken)
	if err != nil {
		return Result{Status: StatusUpstreamError, Err: fmt.Errorf("no catalog credential: %w", err)}
	}

	items, err := withServiceRetry(ctx, r, cred, func(token string) ([]*spotify.Artist, error) {
		return r.catalog.SearchArtists(ctx, token, genreQuery(genre), r.batch)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Artist search failed",
			"genre", genre,
			"error", err,
			logger.WithTraceContext(ctx))
		return Result{Status: StatusUpstreamError, Err: err}
	}

	artists := make([]Artist, 0, limit)
	for _, item := range items {
		if item == nil || item.ID == "" || item.Name == "" {
			continue
		}
		artists = append(artists, toArtist(item, genre))
		if len(artists) >= limit {
			break
		}
	}

	if len(artists) == 0 {
		return Result{Status: StatusEmpty}
	}
	return Result{Status: StatusFound, Artists: artists}
}

// SimilarToTrack recommends artists sharing the top genre of a track's primary artist,
// excluding that artist and keeping mid-popularity ones only.
func (r *Resolver) SimilarToTrack(ctx context.Context, songID, userToken string) SeedResult {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	cred, err := r.pickCredential(ctx, userToken)
	if err != nil {
		return SeedResult{Status: StatusUpstreamError, Message: "No Spotify client available", Err: err}
	}

	res, err := withServiceRetry(ctx, r, cred, func(token string) (SeedResult, error) {
		return r.similarToTrack(ctx, token, songID)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Seed recommendations failed",
			"song_id", songID,
			"error", err,
			logger.WithTraceContext(ctx))
		msg := "Internal error creating recommendations"
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) {
			msg = "Spotify error: " + apiErr.Message
		}
		return SeedResult{Status: StatusUpstreamError, Message: msg, Err: err}
	}
	return res
}

func (r *Resolver) similarToTrack(ctx context.Context, token, songID string) (SeedResult, error) {
	track, err := r.catalog.Track(ctx, token, songID)
	if err != nil {
		return SeedResult{}, err
	}
	if track == nil || len(track.Artists) == 0 {
		return SeedResult{Status: StatusEmpty, Message: "Track not found or has no artists: " + songID}, nil
	}
	primaryID := track.Artists[0].ID

	seed, err := r.catalog.Artist(ctx, token, primaryID)
	if err != nil {
		return SeedResult{}, err
	}
	if len(seed.Genres) == 0 {
		return SeedResult{Status: StatusEmpty, Message: "Seed artist has no genres: " + seed.Name}, nil
	}
	topGenre := seed.Genres[0]

	items, err := r.catalog.SearchArtists(ctx, token, genreQuery(topGenre), spotify.MaxSearchLimit)
	if err != nil {
		return SeedResult{}, err
	}

	var picks []Artist
	for _, item := range items {
		if item == nil || item.ID == "" || item.ID == primaryID {
			continue
		}
		if item.Popularity < seedMinPopularity || item.Popularity > seedMaxPopularity {
			continue
		}
		picks = append(picks, toArtist(item, topGenre))
		if len(picks) == seedLimit {
			break
		}
	}

	if len(picks) == 0 {
		return SeedResult{
			Status:  StatusEmpty,
			Genre:   topGenre,
			Message: fmt.Sprintf("No artists found in genre '%s' within popularity %d-%d", topGenre, seedMinPopularity, seedMaxPopularity),
		}, nil
	}
	return SeedResult{Status: StatusFound, Genre: topGenre, Artists: picks}, nil
}

// SearchTracks runs a free-text track search with the service credential.
func (r *Resolver) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	if limit < 1 {
		limit = DefaultTrackLimit
	}
	if limit > spotify.MaxSearchLimit {
		limit = spotify.MaxSearchLimit
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()

	cred, err := r.serviceCredential(ctx)
	if err != nil {
		return nil, err
	}

	items, err := r.catalog.SearchTracks(ctx, cred.token, query, limit, trackMarket)
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		if item == nil || item.ID == "" {
			continue
		}
		t := Track{
			ID:          item.ID,
			Name:        item.Name,
			Album:       item.Album.Name,
			ImageURL:    spotify.FirstImageURL(item.Album.Images),
			Popularity:  item.Popularity,
			ExternalURL: item.ExternalURLs["spotify"],
		}
		if len(item.Artists) > 0 {
			t.Artist = item.Artists[0].Name
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// ErrTrackNotFound is returned by TrackInfo when the catalog has no such track.
var ErrTrackNotFound = errors.New("track not found")

// TrackInfo looks up one track with the service credential.
func (r *Resolver) TrackInfo(ctx context.Context, trackID string) (TrackInfo, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	cred, err := r.serviceCredential(ctx)
	if err != nil {
		return TrackInfo{}, err
	}

	track, err := r.catalog.Track(ctx, cred.token, trackID)
	if err != nil {
		var apiErr *spotify.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusBadRequest) {
			return TrackInfo{}, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
		}
		return TrackInfo{}, err
	}
	if track == nil || track.ID == "" {
		return TrackInfo{}, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}

	info := TrackInfo{
		ID:       track.ID,
		Name:     track.Name,
		Album:    track.Album.Name,
		ImageURL: spotify.FirstImageURL(track.Album.Images),
	}
	if len(track.Artists) > 0 {
		info.Artist = track.Artists[0].Name
	}
	return info, nil
}

func genreQuery(genre string) string {
	return `genre:"` + genre + `"`
}

func toArtist(item *spotify.Artist, genre string) Artist {
	return Artist{
		ID:         item.ID,
		Name:       item.Name,
		GenreTag:   genre,
		ImageURL:   spotify.FirstImageURL(item.Images),
		Popularity: item.Popularity,
	}
}
