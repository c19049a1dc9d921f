// Package testutil provides common testing utilities, fixtures, and
// in-memory fakes shared across the test files of the storefront core.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/models"
)

// TestUser creates a test user with default values.
func TestUser() *models.User {
	now := time.Now()
	return &models.User{
		ID:         uuid.New(),
		GoogleID:   "test-google-id-123",
		Email:      "test@example.com",
		Name:       "Test User",
		PictureURL: "https://example.com/picture.jpg",
		CreatedAt:  now,
		UpdatedAt:  now,
		LastLogin:  TimePtr(now),
	}
}

// TestAdmin creates a test user with the admin flag set.
func TestAdmin() *models.User {
	user := TestUser()
	user.Email = "admin@example.com"
	user.IsAdmin = true
	return user
}

// TimePtr returns a pointer to the given time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// InMemorySessionRepo is a mutex-guarded SessionRepository for tests,
// mirroring the Postgres implementation's semantics: FindSessionByToken
// returns (nil, nil) for absent or expired rows, deletes are idempotent.
type InMemorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// NewInMemorySessionRepo creates an empty repository.
func NewInMemorySessionRepo() *InMemorySessionRepo {
	return &InMemorySessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *InMemorySessionRepo) CreateSession(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Token] = &copied
	return nil
}

func (r *InMemorySessionRepo) FindSessionByToken(_ context.Context, token string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok || session.Expired(time.Now()) {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *InMemorySessionRepo) DeleteSessionByToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}

func (r *InMemorySessionRepo) SweepExpiredSessions(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	now := time.Now()
	for token, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions.
func (r *InMemorySessionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// InMemoryUserStore is a fixed user table for gate tests.
type InMemoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

// NewInMemoryUserStore creates a store preloaded with the given users.
func NewInMemoryUserStore(users ...*models.User) *InMemoryUserStore {
	store := &InMemoryUserStore{users: make(map[uuid.UUID]*models.User)}
	for _, user := range users {
		store.users[user.ID] = user
	}
	return store
}

func (s *InMemoryUserStore) GetUserByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// Add inserts or replaces a user.
func (s *InMemoryUserStore) Add(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// UserAgents provides common user agent strings for testing.
var UserAgents = struct {
	Chrome       string
	MobileSafari string
	Unknown      string
}{
	Chrome:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	MobileSafari: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
	Unknown:      "",
}

// IPAddresses provides test IP addresses.
var IPAddresses = struct {
	Public    string
	Private   string
	Localhost string
}{
	Public:    "203.0.113.42",
	Private:   "192.168.1.100",
	Localhost: "127.0.0.1",
}
