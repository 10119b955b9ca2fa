package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/vibecheck/api/internal/errors"
	"github.com/vibecheck/api/internal/services/spotify"
	"golang.org/x/oauth2"
)

const (
	StateCookieName = "spotify_auth_state"
	stateTTL        = 10 * time.Minute
	stateIssuer     = "vibecheck"
)

// Scopes requested at login.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-read",
	"playlist-read-private",
	"app-remote-control",
}

// Callback error codes sent back to the frontend.
const (
	ErrStateMismatch      = "state_mismatch"
	ErrInvalidToken       = "invalid_token"
	ErrTokenRequestFailed = "token_request_failed"
	ErrAccessDenied       = "access_denied"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	StateSecret  string
	FrontendURL  string
	HTTPClient   *http.Client
}

// TokenPair is the refresh endpoint response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Bridge proxies Spotify's authorization-code flow for the frontend.
type Bridge struct {
	oauth       *oauth2.Config
	secret      []byte
	frontendURL string
	httpClient  *http.Client
	now         func() time.Time
}

func NewBridge(cfg Config) *Bridge {
	if cfg.AuthURL == "" {
		cfg.AuthURL = spotify.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotify.DefaultTokenURL
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "/"
	}

	secret := []byte(cfg.StateSecret)
	if len(secret) == 0 {
		slog.Warn("STATE_SECRET not set, using a per-process random secret")
		secret = []byte(uuid.NewString() + uuid.NewString())
	}

	return &Bridge{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		secret:      secret,
		frontendURL: cfg.FrontendURL,
		httpClient:  cfg.HTTPClient,
		now:         time.Now,
	}
}

// Login returns the provider authorization URL and the state cookie to set.
func (b *Bridge) Login() (string, *http.Cookie, error) {
	nonce := uuid.NewString()
	now := b.now()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        nonce,
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}).SignedString(b.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign state: %w", err)
	}

	return b.oauth.AuthCodeURL(nonce), stateCookie(signed, int(stateTTL.Seconds())), nil
}

// ClearStateCookie expires the state cookie.
func (b *Bridge) ClearStateCookie() *http.Cookie {
	c := stateCookie("", 0)
	c.MaxAge = -1
	return c
}

// Callback validates the state, exchanges the code, and returns where to send the browser.
func (b *Bridge) Callback(ctx context.Context, query url.Values, cookieValue string) string {
	state := query.Get("state")
	if state == "" || !b.validState(cookieValue, state) {
		slog.WarnContext(ctx, "OAuth state mismatch")
		return b.redirect(url.Values{"error": {ErrStateMismatch}})
	}

	code := query.Get("code")
	if code == "" {
		reason := query.Get("error")
		if reason == "" {
			reason = ErrAccessDenied
		}
		return b.redirect(url.Values{"error": {reason}})
	}

	token, err := b.oauth.Exchange(b.clientContext(ctx), code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			slog.WarnContext(ctx, "Token endpoint rejected authorization code", "error", err)
			return b.redirect(url.Values{"error": {ErrInvalidToken}})
		}
		slog.ErrorContext(ctx, "Token request failed", "error", err)
		return b.redirect(url.Values{"error": {ErrTokenRequestFailed}})
	}

	return b.redirect(url.Values{
		"access_token":  {token.AccessToken},
		"refresh_token": {token.RefreshToken},
	})
}

// Refresh performs one refresh-token grant. The old refresh token is kept when the
// provider does not rotate it.
func (b *Bridge) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, apperrors.NewValidationError(apperrors.MsgRefreshRequired, "REFRESH_TOKEN_REQUIRED", "")
	}

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: b.now().Add(-time.Minute)}
	token, err := b.oauth.TokenSource(b.clientContext(ctx), expired).Token()
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			return TokenPair{}, apperrors.NewAuthError(apperrors.MsgRefreshFailed, "REFRESH_REJECTED", err)
		}
		return TokenPair{}, apperrors.NewInternalError(err)
	}

	pair := TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func (b *Bridge) validState(cookieValue, state string) bool {
	if cookieValue == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookieValue, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil || !token.Valid {
		return false
	}
	return claims.ID == state
}

func (b *Bridge) clientContext(ctx context.Context) context.Context {
	if b.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

func (b *Bridge) redirect(params url.Values) string {
	sep := "?"
	if strings.Contains(b.frontendURL, "?") {
		sep = "&"
	}
	return b.frontendURL + sep + params.Encode()
}

func stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
