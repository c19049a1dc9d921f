package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProfileUpserter persists the profile returned by the identity provider.
type ProfileUpserter interface {
	UpsertUser(ctx context.Context, googleID, email, name, pictureURL string) (*models.User, error)
}

// OAuthService handles the Google OAuth 2.0 login flow: authorization URL
// generation, the code exchange, and profile retrieval. A successful
// exchange is what entitles a caller to a session.
type OAuthService struct {
	config      *oauth2.Config
	users       ProfileUpserter
	userInfoURL string
}

// GoogleUserInfo is the profile payload from Google's UserInfo endpoint.
type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// NewOAuthService creates the OAuth service with profile and email scopes.
func NewOAuthService(cfg *config.OAuthConfig, users ProfileUpserter) *OAuthService {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/userinfo.email",
		},
		Endpoint: google.Endpoint,
	}

	return &OAuthService{
		config:      oauthConfig,
		users:       users,
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthURL returns the Google consent screen URL carrying the CSRF state.
func (s *OAuthService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for a provider token,
// fetches the profile it grants access to, and upserts the user. This is
// the "code exchange" that creates or refreshes an account; the caller
// mints the session.
func (s *OAuthService) ExchangeCode(ctx context.Context, code string) (*models.User, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange authorization code")
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpsertUser(ctx, info.ID, info.Email, info.Name, info.Picture)
	if err != nil {
		return nil, fmt.Errorf("failed to persist user profile: %w", err)
	}

	return user, nil
}

// fetchUserInfo retrieves the Google profile with the exchanged token.
func (s *OAuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	client := s.config.Client(ctx, token)

	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch user info")
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request returned status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("user info response missing required fields")
	}

	return &info, nil
}

// GenerateState returns a random state string for OAuth CSRF protection.
// Stored in a short-lived cookie before the redirect and compared in the
// callback.
func GenerateState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
