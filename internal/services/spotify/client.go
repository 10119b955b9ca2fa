package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vibecheck/api/internal/httpclient"
	"github.com/vibecheck/api/internal/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIBaseURL = "https://api.spotify.com/v1"
	DefaultTokenURL   = "https://accounts.spotify.com/api/token"
	AuthURL           = "https://accounts.spotify.com/authorize"

	// MaxSearchLimit is the largest page the search endpoint accepts.
	MaxSearchLimit = 50

	DefaultRequestsPerMinute = 600
	DefaultBurstSize         = 10
)

// APIError is a non-2xx answer from the Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error (status %d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the Web API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

type Config struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
	TokenURL     string
	HTTPClient   *http.Client

	// Outbound Web API throttle, shared by all callers of this client.
	RequestsPerMinute int
	BurstSize         int
}

// Client is a thin Web API client. Every call takes the bearer token explicitly so the
// caller decides between a user token and the service token.
type Client struct {
	apiBase    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	hasToken   atomic.Bool
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify client ID and secret are required")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpclient.New(5 * time.Second)
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// The token source keeps this context for every refresh, so it must not be request scoped.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, cfg.HTTPClient)

	return &Client{
		apiBase:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		httpClient: cfg.HTTPClient,
		tokens:     cc.TokenSource(tokenCtx),
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.BurstSize),
	}, nil
}

// ServiceToken returns a client-credentials access token, fetching or refreshing it as needed.
// The token source is shared across requests, so an in-flight fetch is bounded by the HTTP
// client timeout rather than ctx; ctx is checked before and after the fetch.
func (c *Client) ServiceToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("spotify service token: %w", err)
	}
	start := time.Now()
	tok, err := c.tokens.Token()
	status := http.StatusOK
	if err != nil {
		status = 0
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
	}
	metrics.RecordExternalCall(ctx, "spotify", "token", status, time.Since(start).Seconds())

	if err != nil {
		c.hasToken.Store(false)
		return "", fmt.Errorf("failed to get spotify service token: %w", err)
	}
	c.hasToken.Store(true)
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("spotify service token: %w", err)
	}
	return tok.AccessToken, nil
}

// Connected reports whether the last service token fetch succeeded.
func (c *Client) Connected() bool {
	return c.hasToken.Load()
}

type Image struct {
	URL string `json:"url"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type SimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Images     []Image  `json:"images"`
}

type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Track struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Popularity   int               `json:"popularity"`
	Artists      []SimpleArtist    `json:"artists"`
	Album        Album             `json:"album"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// FirstImageURL returns the URL of the first image or "".
func FirstImageURL(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

type artistSearchResponse struct {
	Artists struct {
		Items []*Artist `json:"items"`
	} `json:"artists"`
}

type trackSearchResponse struct {
	Tracks struct {
		Items []*Track `json:"items"`
	} `json:"tracks"`
}

// Me probes a user token against /me.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.get(ctx, token, "me", "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchArtists runs an artist search. Null items are returned as nil entries.
func (c *Client) SearchArtists(ctx context.Context, token, query string, limit int) ([]*Artist, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var resp artistSearchResponse
	if err := c.get(ctx, token, "search.artist", "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Artists.Items, nil
}

// SearchTracks runs a track search, optionally restricted to a market.
func (c *Client) SearchTracks(ctx context.Context, token, query string, limit int, market string) ([]*Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	if market != "" {
		params.Set("market", market)
	}

	var resp trackSearchResponse
	if err := c.get(ctx, token, "search.track", "/search", params, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks.Items, nil
}

func (c *Client) Track(ctx context.Context, token, id string) (*Track, error) {
	var track Track
	if err := c.get(ctx, token, "track", "/tracks/"+url.PathEscape(id), nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (c *Client) Artist(ctx context.Context, token, id string) (*Artist, error) {
	var artist Artist
	if err := c.get(ctx, token, "artist", "/artists/"+url.PathEscape(id), nil, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

func (c *Client) get(ctx context.Context, token, operation, path string, params url.Values, out any) error {
	start := time.Now()
	status := 0
	defer func() {
		metrics.RecordExternalCall(ctx, "spotify", operation, status, time.Since(start).Seconds())
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("spotify %s rate limiter wait: %w", operation, err)
	}

	endpoint := c.apiBase + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(httpclient.WithUpstream(ctx, "Spotify"), http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spotify %s request failed: %w", operation, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}
