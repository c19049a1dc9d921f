package handlers

import (
	"context"
	"net/http"

	"github.com/ieraasyl/StorefrontCore/internal/apperrors"
	"github.com/ieraasyl/StorefrontCore/internal/middleware"
	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/ieraasyl/StorefrontCore/internal/services"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/ieraasyl/StorefrontCore/pkg/utils"
	"github.com/rs/zerolog/log"
)

// stateCookie holds the OAuth CSRF state between redirect and callback.
const stateCookie = "oauth_state"

// Exchanger is the login surface the auth endpoints need.
type Exchanger interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*models.User, error)
}

// AuthHandler implements the login, logout, and identity endpoints.
// Login is an OAuth code exchange; a successful exchange mints a session
// row and sets the session cookie.
type AuthHandler struct {
	oauth    Exchanger
	sessions *services.SessionService
	gate     Gate
	cfg      *config.Config
}

// NewAuthHandler creates the auth endpoints.
func NewAuthHandler(oauth Exchanger, sessions *services.SessionService, gate Gate, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		oauth:    oauth,
		sessions: sessions,
		gate:     gate,
		cfg:      cfg,
	}
}

// GoogleLogin handles GET /api/v1/auth/google/login: stores the CSRF state
// in a short-lived cookie and redirects to the provider's consent screen.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := services.GenerateState()
	utils.SetCookieWithMaxAge(w, stateCookie, state, 600, h.cfg.Server.IsProduction())
	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /api/v1/auth/google/callback: verifies the
// CSRF state, exchanges the code for a profile, creates the session, sets
// the session cookie, and redirects to the storefront.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		middleware.RecordAuthAttempt("invalid_state")
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	utils.ClearCookie(w, stateCookie)

	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.RecordAuthAttempt("missing_code")
		utils.RespondWithError(w, r, http.StatusBadRequest, "Missing authorization code")
		return
	}

	user, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		middleware.RecordAuthAttempt("exchange_failed")
		log.Warn().Err(err).Msg("OAuth code exchange failed")
		utils.RespondWithError(w, r, http.StatusUnauthorized, "Authentication failed")
		return
	}

	token, session, err := h.sessions.Create(r.Context(), user.ID, r.UserAgent(), utils.ExtractClientIP(r))
	if err != nil {
		middleware.RecordAuthAttempt("session_failed")
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create session")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.SetSessionCookie(w, h.cfg.Session.CookieName, token, session.ExpiresAt, h.cfg.Server.IsProduction())
	middleware.RecordAuthAttempt("success")

	http.Redirect(w, r, h.cfg.Server.FrontendURL, http.StatusTemporaryRedirect)
}

// Logout handles POST /api/v1/auth/logout: deletes the session row
// (revoking the token immediately) and clears the cookie. Idempotent;
// logging out twice is not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.Token(r.Context())
	if token != "" {
		if err := h.sessions.Delete(r.Context(), token); err != nil {
			// The cookie is still cleared; the sweep will catch the row.
			log.Error().Err(err).Msg("Failed to delete session row on logout")
		}
	}

	utils.ClearCookie(w, h.cfg.Session.CookieName)
	utils.RespondWithMessage(w, r, http.StatusOK, "Logged out successfully")
}

// Me handles GET /api/v1/auth/me: returns the authenticated user's
// profile, or 401 for anonymous callers.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.RequireUser(r.Context(), middleware.Token(r.Context()))
	if err != nil {
		utils.RespondWithError(w, r, apperrors.StatusCode(err), apperrors.Message(err))
		return
	}

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{"user": user})
}
