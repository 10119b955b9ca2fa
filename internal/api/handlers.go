package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vibecheck/api/internal/config"
	apperrors "github.com/vibecheck/api/internal/errors"
	"github.com/vibecheck/api/internal/middleware"
	"github.com/vibecheck/api/internal/sentry"
	"github.com/vibecheck/api/internal/services/artist"
	"github.com/vibecheck/api/internal/services/oauth"
	"github.com/vibecheck/api/internal/services/recommendation"
)

// Recommender produces prompt and seed-track recommendations.
type Recommender interface {
	GetPromptRecommendations(ctx context.Context, prompt, userToken string) recommendation.Result
	GetSeedRecommendations(ctx context.Context, songID, userToken string) recommendation.SeedResult
}

// TrackSearcher serves catalog track lookups.
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]artist.Track, error)
	TrackInfo(ctx context.Context, trackID string) (artist.TrackInfo, error)
}

// Authenticator is the OAuth bridge to the catalog provider.
type Authenticator interface {
	Login() (string, *http.Cookie, error)
	Callback(ctx context.Context, query url.Values, cookieValue string) string
	ClearStateCookie() *http.Cookie
	Refresh(ctx context.Context, refreshToken string) (oauth.TokenPair, error)
}

// CatalogStatus reports whether the service credential has been obtained.
type CatalogStatus interface {
	Connected() bool
}

type Server struct {
	cfg     *config.Config
	recs    Recommender
	tracks  TrackSearcher
	auth    Authenticator
	catalog CatalogStatus
}

func NewServer(cfg *config.Config, recs Recommender, tracks TrackSearcher, auth Authenticator, catalog CatalogStatus) *Server {
	return &Server{
		cfg:     cfg,
		recs:    recs,
		tracks:  tracks,
		auth:    auth,
		catalog: catalog,
	}
}

type PromptRecommendationRequest struct {
	Prompt    string `json:"prompt"`
	UserToken string `json:"userToken,omitempty"`
}

func (s *Server) HandlePromptRecommendations(w http.ResponseWriter, r *http.Request) {
	var req PromptRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, apperrors.MsgInvalidBody)
		return
	}

	res := s.recs.GetPromptRecommendations(r.Context(), req.Prompt, userToken(r, req.UserToken))
	writeJSON(w, res.StatusCode(), res)
}

type SeedRecommendationRequest struct {
	SongID    string `json:"songId"`
	UserToken string `json:"userToken,omitempty"`
}

func (s *Server) HandleSeedRecommendations(w http.ResponseWriter, r *http.Request) {
	var req SeedRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, apperrors.MsgInvalidBody)
		return
	}

	res := s.recs.GetSeedRecommendations(r.Context(), req.SongID, userToken(r, req.UserToken))
	writeJSON(w, res.StatusCode(), res)
}

type SearchResponse struct {
	Success bool           `json:"success"`
	Songs   []artist.Track `json:"songs"`
	Query   string         `json:"query"`
}

func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeFailure(w, http.StatusBadRequest, apperrors.MsgQueryRequired)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = artist.DefaultTrackLimit
	}

	songs, err := s.tracks.SearchTracks(r.Context(), query, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Track search failed", "query", query, "error", err)
		sentry.CaptureException(r.Context(), err)
		writeFailure(w, http.StatusInternalServerError, apperrors.MsgInternal)
		return
	}
	if songs == nil {
		songs = []artist.Track{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Success: true, Songs: songs, Query: query})
}

type TrackRequest struct {
	TrackID string `json:"trackId"`
}

func (s *Server) HandleTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": apperrors.MsgInvalidBody})
		return
	}
	if req.TrackID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": apperrors.MsgTrackIDRequired})
		return
	}

	info, err := s.tracks.TrackInfo(r.Context(), req.TrackID)
	switch {
	case errors.Is(err, artist.ErrTrackNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": apperrors.MsgTrackNotFound})
	case err != nil:
		slog.ErrorContext(r.Context(), "Track lookup failed", "track_id", req.TrackID, "error", err)
		sentry.CaptureException(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": apperrors.MsgInternal})
	default:
		writeJSON(w, http.StatusOK, info)
	}
}

func (s *Server) HandleLogin(w http.ResponseWriter, r *http.Request) {
	target, cookie, err := s.auth.Login()
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to start login", "error", err)
		sentry.CaptureException(r.Context(), err)
		writeFailure(w, http.StatusInternalServerError, apperrors.MsgInternal)
		return
	}

	http.SetCookie(w, cookie)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var stored string
	if c, err := r.Cookie(oauth.StateCookieName); err == nil {
		stored = c.Value
	}

	target := s.auth.Callback(r.Context(), r.URL.Query(), stored)

	http.SetCookie(w, s.auth.ClearStateCookie())
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	pair, err := s.auth.Refresh(r.Context(), r.URL.Query().Get("refresh_token"))
	if err != nil {
		status := apperrors.StatusCode(err)
		msg := apperrors.MsgInternal
		if appErr, ok := apperrors.As(err); ok && status < http.StatusInternalServerError {
			msg = appErr.Message
		} else {
			slog.ErrorContext(r.Context(), "Token refresh failed", "error", err)
			sentry.CaptureException(r.Context(), err)
		}
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type HealthResponse struct {
	Status             string `json:"status"`
	EngineAvailable    bool   `json:"engine_available"`
	SpotifyConnected   bool   `json:"spotify_connected"`
	CompletionProvider string `json:"completion_provider"`
	Model              string `json:"model"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             "healthy",
		EngineAvailable:    s.recs != nil,
		SpotifyConnected:   s.catalog != nil && s.catalog.Connected(),
		CompletionProvider: s.cfg.Completion.Provider,
		Model:              s.cfg.Completion.Model,
	})
}

// userToken prefers the body field and falls back to the Authorization header.
func userToken(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	token, _ := middleware.GetUserToken(r.Context())
	return token
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failureResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
