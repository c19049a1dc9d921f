// Package config provides application configuration management with
// environment variable loading, validation, and sensible defaults. It
// supports .env files for local development and validates all required
// settings on startup to prevent runtime configuration errors.
//
// Configuration is loaded once with Load() and the resulting *Config is
// injected into constructors. No business logic reads the process
// environment directly; the session secret and storage credentials in
// particular only ever enter the program through this package.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all configuration sections into a single struct
// constructed once at startup.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OAuth     OAuthConfig
	Session   SessionConfig
	Storage   StorageConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// ServerConfig holds server-specific configuration including port,
// environment, and the storefront URL to redirect to after login.
type ServerConfig struct {
	Port        string
	Environment string
	FrontendURL string
}

// IsProduction reports whether the server runs in the production
// environment, which controls the Secure flag on session cookies.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// DatabaseConfig holds PostgreSQL connection parameters and pool settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	MaxConns int
}

// RedisConfig holds Redis connection parameters. Redis backs the user
// profile cache and the multi-instance rate-limit store.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

// OAuthConfig holds Google OAuth 2.0 client credentials and endpoints
// used for the login code exchange.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UserInfoURL  string
}

// SessionConfig holds session token configuration: the HS256 signing
// secret, the session lifetime, and the cookie name fixed per deployment.
type SessionConfig struct {
	Secret     []byte
	TTL        time.Duration // Session and token lifetime (default: 30 days)
	CookieName string
}

// StorageConfig holds credentials and endpoints for the S3-compatible
// object store plus the upload transfer tuning knobs.
//
// PublicBaseURL is the prefix for derived public object URLs; deriving a
// URL never performs a network call.
type StorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	AccountID       string // Provider account ID, used to derive the endpoint
	Endpoint        string // Explicit endpoint override (takes precedence over AccountID)
	Region          string
	PublicBaseURL   string

	GalleryBucket string
	ProductBucket string
	ReviewBucket  string

	// MultipartThreshold is the payload size at or above which uploads use
	// the multipart path. PartSize and Concurrency tune that path.
	MultipartThreshold int64
	PartSize           int64
	Concurrency        int
}

// BaseEndpoint returns the object store endpoint URL. An explicit Endpoint
// wins; otherwise the R2-style account endpoint is derived.
func (c *StorageConfig) BaseEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// CORSConfig controls which origins can access the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// CategoryLimit is a per-resource-category rate limit: at most Max requests
// per Window for one identifier.
type CategoryLimit struct {
	Max    int
	Window time.Duration
}

// RateLimitConfig holds independent fixed-window limits for each upload
// category plus the shared limit for auth endpoints.
type RateLimitConfig struct {
	Auth    CategoryLimit
	Gallery CategoryLimit
	Product CategoryLimit
	Review  CategoryLimit
}

// CacheConfig holds TTLs for the Redis-backed profile cache.
type CacheConfig struct {
	UserTTL time.Duration
	Enabled bool
}

// Load reads and validates configuration from environment variables.
// It attempts to load a .env file if present (for local development) but
// doesn't fail if the file is missing.
//
// Required environment variables:
//   - POSTGRES_PASSWORD: database password
//   - GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET: OAuth client credentials
//   - SESSION_SECRET: token signing secret (>=32 bytes)
//   - STORAGE_ACCESS_KEY_ID / STORAGE_SECRET_ACCESS_KEY: object store credentials
//
// Returns an error if any required variable is missing or validation fails.
func Load() (*Config, error) {
	_ = godotenv.Load()

	postgresPassword, err := getEnvRequired("POSTGRES_PASSWORD")
	if err != nil {
		return nil, err
	}

	googleClientID, err := getEnvRequired("GOOGLE_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	googleClientSecret, err := getEnvRequired("GOOGLE_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	sessionSecret, err := getEnvRequired("SESSION_SECRET")
	if err != nil {
		return nil, err
	}

	storageKeyID, err := getEnvRequired("STORAGE_ACCESS_KEY_ID")
	if err != nil {
		return nil, err
	}

	storageSecret, err := getEnvRequired("STORAGE_SECRET_ACCESS_KEY")
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENV", "development"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			Database: getEnv("POSTGRES_DB", "storefront"),
			User:     getEnv("POSTGRES_USER", "storefront"),
			Password: postgresPassword,
			MaxConns: getEnvAsInt("POSTGRES_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 100),
		},
		OAuth: OAuthConfig{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  getEnv("AUTH_REDIRECT_URL", "http://localhost:8080/api/v1/auth/google/callback"),
			UserInfoURL:  getEnv("GOOGLE_USER_INFO", "https://www.googleapis.com/oauth2/v2/userinfo"),
		},
		Session: SessionConfig{
			Secret:     []byte(sessionSecret),
			TTL:        getEnvAsDuration("SESSION_TTL", 720*time.Hour), // 30 days
			CookieName: getEnv("SESSION_COOKIE_NAME", "session_token"),
		},
		Storage: StorageConfig{
			AccessKeyID:        storageKeyID,
			SecretAccessKey:    storageSecret,
			AccountID:          getEnv("STORAGE_ACCOUNT_ID", ""),
			Endpoint:           getEnv("STORAGE_ENDPOINT", ""),
			Region:             getEnv("STORAGE_REGION", "auto"),
			PublicBaseURL:      getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/media"),
			GalleryBucket:      getEnv("STORAGE_GALLERY_BUCKET", "gallery"),
			ProductBucket:      getEnv("STORAGE_PRODUCT_BUCKET", "products"),
			ReviewBucket:       getEnv("STORAGE_REVIEW_BUCKET", "reviews"),
			MultipartThreshold: getEnvAsInt64("STORAGE_MULTIPART_THRESHOLD", 5*1024*1024),
			PartSize:           getEnvAsInt64("STORAGE_PART_SIZE", 5*1024*1024),
			Concurrency:        getEnvAsInt("STORAGE_CONCURRENCY", 4),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			Auth:    categoryLimit("AUTH", 100, time.Minute),
			Gallery: categoryLimit("GALLERY", 10, time.Minute),
			Product: categoryLimit("PRODUCT", 30, time.Minute),
			Review:  categoryLimit("REVIEW", 5, time.Minute),
		},
		Cache: CacheConfig{
			UserTTL: getEnvAsDuration("CACHE_USER_TTL", 15*time.Minute),
			Enabled: getEnv("CACHE_ENABLED", "true") == "true",
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks that all required configuration is present and valid:
// ports parse as integers, URLs are well formed, the session secret meets
// the minimum length, and storage is addressable. Called automatically by
// Load but usable on hand-built configs in tests.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be a valid integer: %w", err)
	}

	if _, err := strconv.Atoi(c.Database.Port); err != nil {
		return fmt.Errorf("database port must be a valid integer: %w", err)
	}
	if _, err := strconv.Atoi(c.Redis.Port); err != nil {
		return fmt.Errorf("redis port must be a valid integer: %w", err)
	}

	if c.OAuth.ClientID == "" {
		return fmt.Errorf("google OAuth client ID is required")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("google OAuth client secret is required")
	}
	if _, err := url.ParseRequestURI(c.OAuth.RedirectURL); err != nil {
		return fmt.Errorf("invalid OAuth redirect URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.Server.FrontendURL); err != nil {
		return fmt.Errorf("invalid frontend URL: %w", err)
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	if c.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if c.Storage.AccountID == "" && c.Storage.Endpoint == "" {
		return fmt.Errorf("storage account ID or explicit endpoint is required")
	}
	if _, err := url.ParseRequestURI(c.Storage.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid storage public base URL: %w", err)
	}
	if c.Storage.MultipartThreshold <= 0 {
		return fmt.Errorf("multipart threshold must be positive")
	}
	// S3 rejects parts below 5 MiB except the last one.
	if c.Storage.PartSize < 5*1024*1024 {
		return fmt.Errorf("storage part size must be at least 5 MiB")
	}

	for _, l := range []struct {
		name  string
		limit CategoryLimit
	}{
		{"auth", c.RateLimit.Auth},
		{"gallery", c.RateLimit.Gallery},
		{"product", c.RateLimit.Product},
		{"review", c.RateLimit.Review},
	} {
		if l.limit.Max <= 0 || l.limit.Window <= 0 {
			return fmt.Errorf("rate limit for %s must have positive max and window", l.name)
		}
	}

	return nil
}

// DSN returns the PostgreSQL connection string for the lib/pq driver.
// SSL is disabled for local development; production deployments should
// front the database with TLS termination or enable sslmode explicitly.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database,
	)
}

// Address returns the Redis server address in "host:port" format.
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// categoryLimit reads RATE_LIMIT_<CATEGORY>_MAX / _WINDOW with defaults.
func categoryLimit(category string, defMax int, defWindow time.Duration) CategoryLimit {
	return CategoryLimit{
		Max:    getEnvAsInt("RATE_LIMIT_"+category+"_MAX", defMax),
		Window: getEnvAsDuration("RATE_LIMIT_"+category+"_WINDOW", defWindow),
	}
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequired retrieves a required environment variable, erroring if it
// is unset or empty. Use this for configuration with no sensible default.
func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set", key)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an integer, falling back
// to the default when unset or unparsable.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 retrieves an environment variable as an int64, falling back
// to the default when unset or unparsable. Used for byte sizes.
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// ("300ms", "1.5h", "2h45m"), falling back to the default when unset or
// unparsable.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice retrieves a comma-separated environment variable as a
// string slice, falling back to the default when unset.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
