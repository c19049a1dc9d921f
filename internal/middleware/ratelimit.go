package middleware

import (
	"fmt"
	"net/http"

	"github.com/ieraasyl/StorefrontCore/internal/ratelimit"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/ieraasyl/StorefrontCore/pkg/utils"
	"github.com/rs/zerolog/log"
)

// RateLimiter applies per-category fixed-window limits through an injected
// counter store. The store decides where counters live (in-process map or
// shared Redis); this middleware only composes identifiers and maps
// rejections to 429.
type RateLimiter struct {
	store ratelimit.Store
}

// NewRateLimiter creates rate-limiting middleware over a counter store.
//
// Example:
//
//	limiter := middleware.NewRateLimiter(ratelimit.NewMemoryStore())
//	r.With(limiter.Limit("auth", cfg.RateLimit.Auth)).Get("/login", h.GoogleLogin)
func NewRateLimiter(store ratelimit.Store) *RateLimiter {
	return &RateLimiter{store: store}
}

// Limit throttles an endpoint category. The identifier is
// "category:clientIP"; authenticated per-user throttling for uploads is
// composed in the upload handlers where the user is already resolved.
//
// Sets X-RateLimit-Limit and X-RateLimit-Remaining on admitted requests
// and Retry-After on rejections. Store errors fail open so a Redis blip
// does not block legitimate traffic; the error is logged for monitoring.
func (rl *RateLimiter) Limit(category string, limit config.CategoryLimit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ExtractClientIP(r)
			identifier := fmt.Sprintf("%s:%s", category, ip)

			allowed, err := rl.store.Allow(r.Context(), identifier, limit.Max, limit.Window)
			if err != nil {
				log.Error().Err(err).Str("identifier", identifier).Msg("Rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				log.Warn().
					Str("identifier", identifier).
					Int("max", limit.Max).
					Msg("Rate limit exceeded")

				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit.Max))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limit.Window.Seconds())))
				utils.RespondWithError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit.Max))
			next.ServeHTTP(w, r)
		})
	}
}
