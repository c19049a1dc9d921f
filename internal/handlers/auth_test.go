package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ieraasyl/StorefrontCore/internal/middleware"
	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/ieraasyl/StorefrontCore/internal/services"
	"github.com/ieraasyl/StorefrontCore/internal/testutil"
	"github.com/ieraasyl/StorefrontCore/pkg/cache"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExchanger simulates the provider code exchange: the code "good-code"
// resolves to the fixture user, anything else fails.
type fakeExchanger struct {
	user *models.User
}

func (f *fakeExchanger) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (f *fakeExchanger) ExchangeCode(_ context.Context, code string) (*models.User, error) {
	if code != "good-code" {
		return nil, fmt.Errorf("invalid code")
	}
	return f.user, nil
}

type authFixture struct {
	handler  *AuthHandler
	sessions *services.SessionService
	repo     *testutil.InMemorySessionRepo
	user     *models.User
	cfg      *config.Config
}

func newAuthFixture() *authFixture {
	user := testutil.TestUser()
	cfg := uploadTestConfig()
	cfg.Session.Secret = []byte("test-secret-key-at-least-32-bytes!!")
	cfg.Session.TTL = time.Hour
	cfg.Server.FrontendURL = "http://localhost:3000"

	repo := testutil.NewInMemorySessionRepo()
	tokens := services.NewTokenService(&cfg.Session)
	sessions := services.NewSessionService(tokens, repo, cfg.Session.TTL)
	gate := services.NewAuthorizationGate(sessions, testutil.NewInMemoryUserStore(user), cache.NewUserCache(nil, 0, false))

	return &authFixture{
		handler:  NewAuthHandler(&fakeExchanger{user: user}, sessions, gate, cfg),
		sessions: sessions,
		repo:     repo,
		user:     user,
		cfg:      cfg,
	}
}

func (f *authFixture) serve(handlerFunc http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	middleware.SessionToken(f.cfg.Session.CookieName)(handlerFunc).ServeHTTP(resp, req)
	return resp
}

func sessionCookie(t *testing.T, resp *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_GoogleLogin(t *testing.T) {
	f := newAuthFixture()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/login", nil)

	resp := f.serve(f.handler.GoogleLogin, req)

	assert.Equal(t, http.StatusTemporaryRedirect, resp.Code)

	state := sessionCookie(t, resp, stateCookie)
	require.NotNil(t, state, "state cookie must be set")
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)

	location := resp.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, state.Value)
}

func TestAuthHandler_GoogleCallback(t *testing.T) {
	t.Run("successful login mints a session", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=good-code", nil)
		testutil.SetCookie(req, stateCookie, "abc")

		resp := f.serve(f.handler.GoogleCallback, req)

		assert.Equal(t, http.StatusTemporaryRedirect, resp.Code)
		assert.Equal(t, f.cfg.Server.FrontendURL, resp.Header().Get("Location"))
		assert.Equal(t, 1, f.repo.Len())

		session := sessionCookie(t, resp, f.cfg.Session.CookieName)
		require.NotNil(t, session, "session cookie must be set")
		assert.NotEmpty(t, session.Value)
		assert.True(t, session.HttpOnly)

		// The minted token resolves back to the user.
		row, err := f.sessions.Lookup(context.Background(), session.Value)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, f.user.ID, row.UserID)
	})

	t.Run("missing state cookie is rejected", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=good-code", nil)

		resp := f.serve(f.handler.GoogleCallback, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Zero(t, f.repo.Len())
	})

	t.Run("state mismatch is rejected", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=evil&code=good-code", nil)
		testutil.SetCookie(req, stateCookie, "abc")

		resp := f.serve(f.handler.GoogleCallback, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("missing code is rejected", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=abc", nil)
		testutil.SetCookie(req, stateCookie, "abc")

		resp := f.serve(f.handler.GoogleCallback, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("failed exchange is unauthorized", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=bad-code", nil)
		testutil.SetCookie(req, stateCookie, "abc")

		resp := f.serve(f.handler.GoogleCallback, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Zero(t, f.repo.Len())
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("deletes the session row and clears the cookie", func(t *testing.T) {
		f := newAuthFixture()
		token, _, err := f.sessions.Create(context.Background(), f.user.ID, "", "")
		require.NoError(t, err)
		require.Equal(t, 1, f.repo.Len())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		testutil.SetCookie(req, f.cfg.Session.CookieName, token)

		resp := f.serve(f.handler.Logout, req)

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Zero(t, f.repo.Len())

		cleared := sessionCookie(t, resp, f.cfg.Session.CookieName)
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)
	})

	t.Run("logout without a session still succeeds", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)

		resp := f.serve(f.handler.Logout, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("anonymous is unauthorized", func(t *testing.T) {
		f := newAuthFixture()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)

		resp := f.serve(f.handler.Me, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("authenticated user gets their profile", func(t *testing.T) {
		f := newAuthFixture()
		token, _, err := f.sessions.Create(context.Background(), f.user.ID, "", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		testutil.SetCookie(req, f.cfg.Session.CookieName, token)

		resp := f.serve(f.handler.Me, req)
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			User models.User `json:"user"`
		}
		testutil.ParseJSONResponse(t, resp, &body)
		assert.Equal(t, f.user.ID, body.User.ID)
		assert.Equal(t, f.user.Email, body.User.Email)
	})

	t.Run("bearer header works for non-browser clients", func(t *testing.T) {
		f := newAuthFixture()
		token, _, err := f.sessions.Create(context.Background(), f.user.ID, "", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		resp := f.serve(f.handler.Me, req)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}
