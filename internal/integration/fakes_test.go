package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/vibecheck/api/internal/app"
	"github.com/vibecheck/api/internal/config"
	"github.com/vibecheck/api/internal/services/completion"
)

const (
	serviceToken = "svc-token"
	userToken    = "user-token"
)

// fakeSpotify serves the accounts and Web API endpoints the service calls.
type fakeSpotify struct {
	*httptest.Server

	mu          sync.Mutex
	searchAuth  []string
	searchQuery []string
	artists     map[string][]map[string]any
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	f := &fakeSpotify{artists: map[string][]map[string]any{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.PostForm.Get("grant_type") {
		case "client_credentials":
			writeJSON(w, http.StatusOK, map[string]any{"access_token": serviceToken, "token_type": "Bearer", "expires_in": 3600})
		case "authorization_code":
			if r.PostForm.Get("code") != "good-code" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "user-at", "refresh_token": "user-rt", "token_type": "Bearer", "expires_in": 3600})
		case "refresh_token":
			writeJSON(w, http.StatusOK, map[string]any{"access_token": "fresh-at", "token_type": "Bearer", "expires_in": 3600})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		}
	})

	mux.HandleFunc("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+userToken {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401, "message": "Invalid access token"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "listener", "display_name": "Listener"})
	})

	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.mu.Lock()
		f.searchAuth = append(f.searchAuth, r.Header.Get("Authorization"))
		f.searchQuery = append(f.searchQuery, q.Get("q"))
		f.mu.Unlock()

		if q.Get("type") == "track" {
			writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []map[string]any{{
				"id":            "t1",
				"name":          "Blue in Green",
				"popularity":    60,
				"artists":       []map[string]any{{"id": "a1", "name": "Miles Davis"}},
				"album":         map[string]any{"name": "Kind of Blue", "images": []map[string]any{{"url": "https://img/kob.jpg"}}},
				"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/t1"},
			}}}})
			return
		}

		genre := strings.TrimSuffix(strings.TrimPrefix(q.Get("q"), `genre:"`), `"`)
		writeJSON(w, http.StatusOK, map[string]any{"artists": map[string]any{"items": f.artists[genre]}})
	})

	mux.HandleFunc("/v1/tracks/t1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "t1",
			"name":    "Blue in Green",
			"artists": []map[string]any{{"id": "a1", "name": "Miles Davis"}},
			"album":   map[string]any{"name": "Kind of Blue"},
		})
	})
	mux.HandleFunc("/v1/artists/a1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": "a1", "name": "Miles Davis", "genres": []string{"jazz", "bebop"}, "popularity": 70})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeSpotify) lastSearch() (auth, query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.searchAuth) == 0 {
		return "", ""
	}
	n := len(f.searchAuth) - 1
	return f.searchAuth[n], f.searchQuery[n]
}

// newFakeCompletion answers "Jazz." when the prompt mentions jazz and "none" otherwise.
func newFakeCompletion(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []completion.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		answer := "none"
		if strings.Contains(strings.ToLower(req.Messages[0].Content), "jazz club") {
			answer = "Jazz."
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	spotify *fakeSpotify
	app     *app.App
	router  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	spotify := newFakeSpotify(t)
	llm := newFakeCompletion(t)

	cfg := &config.Config{
		SpotifyClientID:     "client-id",
		SpotifyClientSecret: "client-secret",
		GroqKey:             "groq-key",
		StateSecret:         "integration-secret",
		FrontendURL:         "http://localhost:3000/",
	}
	cfg.SetDefaults()

	a, err := app.New(cfg, app.Options{
		SpotifyAPIBaseURL: spotify.URL + "/v1",
		SpotifyTokenURL:   spotify.URL + "/api/token",
		SpotifyAuthURL:    spotify.URL + "/authorize",
		Completion:        completion.NewChatProvider("groq", llm.URL, cfg.GroqKey, cfg.Completion.Model, llm.Client()),
		HTTPClient:        spotify.Client(),
	})
	if err != nil {
		t.Fatalf("failed to wire app: %v", err)
	}

	return &harness{spotify: spotify, app: a, router: a.Server.Router()}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
