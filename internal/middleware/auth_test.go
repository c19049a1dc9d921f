package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionToken(t *testing.T) {
	const cookieName = "session_token"

	extract := func(req *http.Request) string {
		var got string
		handler := SessionToken(cookieName)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = Token(r.Context())
		}))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	t.Run("cookie token lands in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "cookie-token"})
		assert.Equal(t, "cookie-token", extract(req))
	})

	t.Run("bearer header is the fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "header-token", extract(req))
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "cookie-token"})
		req.Header.Set("Authorization", "Bearer header-token")
		assert.Equal(t, "cookie-token", extract(req))
	})

	t.Run("anonymous request yields empty token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Equal(t, "", extract(req))
	})

	t.Run("token of unrelated context is empty", func(t *testing.T) {
		assert.Equal(t, "", Token(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
	})
}
