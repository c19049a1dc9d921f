// Package database provides the PostgreSQL and Redis access layers.
//
// PostgreSQL holds the durable state: user profiles (including the
// server-side admin flag) and session rows, whose deletion is the sole
// revocation mechanism for otherwise valid tokens. Redis holds the
// ephemeral state: fixed-window rate-limit counters and the user profile
// cache.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ieraasyl/StorefrontCore/internal/models"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/ieraasyl/StorefrontCore/pkg/utils"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// PostgresDB wraps a PostgreSQL connection pool and implements the user
// store and the session repository.
type PostgresDB struct {
	db *sql.DB
}

// NewPostgresDB creates a PostgreSQL connection with automatic retry.
// Exponential backoff covers the startup window where the database
// container is not ready yet.
//
// Pool settings: MaxOpenConns from configuration, half as many idle
// connections, one hour connection lifetime.
func NewPostgresDB(cfg *config.DatabaseConfig) (*PostgresDB, error) {
	var db *sql.DB
	var connErr error

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := utils.Retry(ctx, utils.DatabaseRetryConfig(), func() error {
		var err error
		db, err = sql.Open("postgres", cfg.DSN())
		if err != nil {
			connErr = err
			log.Warn().Err(err).Msg("Failed to open database connection, retrying...")
			return err
		}

		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxConns / 2)
		db.SetConnMaxLifetime(time.Hour)

		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pingCancel()

		if err := db.PingContext(pingCtx); err != nil {
			connErr = err
			log.Warn().Err(err).Msg("Failed to ping database, retrying...")
			db.Close()
			return err
		}
		return nil
	})

	if err != nil {
		if connErr != nil {
			return nil, fmt.Errorf("failed to connect to database after retries: %w", connErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info().Msg("Successfully connected to PostgreSQL")
	return &PostgresDB{db: db}, nil
}

// Close closes the database connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// Ping checks if the database connection is alive. Used by the readiness
// endpoint.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// RunMigrations executes the provided migration SQL. Called once at
// startup with the users and sessions schema.
func (p *PostgresDB) RunMigrations(ctx context.Context, migrationSQL string) error {
	if _, err := p.db.ExecContext(ctx, migrationSQL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Msg("Database migrations completed")
	return nil
}

// UpsertUser creates a user on first login or refreshes their profile on
// subsequent logins. The admin flag is deliberately absent from the upsert:
// it is only ever changed by operators directly in the database, never by
// anything reachable from a request.
func (p *PostgresDB) UpsertUser(ctx context.Context, googleID, email, name, pictureURL string) (*models.User, error) {
	query := `
		INSERT INTO users (google_id, email, name, picture_url, last_login)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (google_id)
		DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			picture_url = EXCLUDED.picture_url,
			last_login = NOW(),
			updated_at = NOW()
		RETURNING id, google_id, email, name, picture_url, is_admin, created_at, updated_at, last_login
	`

	var user models.User
	err := p.db.QueryRowContext(ctx, query, googleID, email, name, pictureURL).Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.PictureURL,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("email", user.Email).
		Msg("User created/updated")

	return &user, nil
}

// GetUserByID retrieves a user profile by UUID. This is the lookup the
// authorization gate performs to resolve the admin flag server-side.
// Returns (nil, nil) when no such user exists.
func (p *PostgresDB) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, google_id, email, name, picture_url, is_admin, created_at, updated_at, last_login
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := p.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.GoogleID,
		&user.Email,
		&user.Name,
		&user.PictureURL,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// CreateSession persists a session row. The row, not the token, is the
// revocation point.
func (p *PostgresDB) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token, device_info, ip_address, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.DeviceInfo,
		session.IPAddress,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindSessionByToken returns the session row for a token if the row exists
// and its database expiry has not passed. Returns (nil, nil) for absent or
// expired rows; the caller treats both as "no session".
func (p *PostgresDB) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, token, device_info, ip_address, created_at, expires_at
		FROM sessions
		WHERE token = $1 AND expires_at > NOW()
	`

	var session models.Session
	err := p.db.QueryRowContext(ctx, query, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.DeviceInfo,
		&session.IPAddress,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &session, nil
}

// DeleteSessionByToken removes a session row, revoking the token
// immediately. Deleting a nonexistent row is not an error; logout must be
// idempotent.
func (p *PostgresDB) DeleteSessionByToken(ctx context.Context, token string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CountActiveSessions returns the number of live session rows, feeding the
// active-sessions gauge.
func (p *PostgresDB) CountActiveSessions(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE expires_at > NOW()`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

// SweepExpiredSessions deletes rows past their expiry and returns the
// count removed. Run periodically; lookups already exclude expired rows,
// so the sweep is hygiene rather than correctness.
func (p *PostgresDB) SweepExpiredSessions(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept sessions: %w", err)
	}
	return removed, nil
}
