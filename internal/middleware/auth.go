package middleware

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a custom type for context keys to avoid collisions with
// other packages using string keys.
type contextKey string

// sessionTokenKey is the context key for the raw session token.
const sessionTokenKey contextKey = "session_token"

// SessionToken creates middleware that extracts the session token into the
// request context. The cookie is authoritative; an Authorization bearer
// header is accepted as a fallback for non-browser clients.
//
// The middleware performs no I/O and never rejects: resolving the token to
// a user is the authorization gate's job inside each handler, where the
// distinction between anonymous, unauthenticated, and forbidden belongs.
func SessionToken(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string

			if cookie, err := r.Cookie(cookieName); err == nil {
				token = cookie.Value
			} else if auth := r.Header.Get("Authorization"); auth != "" {
				token = strings.TrimPrefix(auth, "Bearer ")
			}

			ctx := context.WithValue(r.Context(), sessionTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Token returns the session token extracted by SessionToken, or "" for
// anonymous requests.
func Token(ctx context.Context) string {
	if token, ok := ctx.Value(sessionTokenKey).(string); ok {
		return token
	}
	return ""
}
