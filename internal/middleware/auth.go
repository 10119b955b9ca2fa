package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const UserTokenKey contextKey = "userToken"

// BearerToken stores a Spotify user access token from "Authorization: Bearer <token>"
// in the request context. The header is optional; absent or malformed headers leave
// the context unchanged and the handlers fall back to the service credential.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearer(r.Header.Get("Authorization")); ok {
			r = r.WithContext(context.WithValue(r.Context(), UserTokenKey, token))
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserToken returns the token stored by BearerToken.
func GetUserToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(UserTokenKey).(string)
	return token, ok && token != ""
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
