package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ieraasyl/StorefrontCore/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Pinger is a dependency whose liveness the readiness check verifies.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler implements liveness and readiness endpoints.
type HealthHandler struct {
	postgres Pinger
	redis    Pinger
}

// NewHealthHandler creates the health endpoints.
func NewHealthHandler(postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis}
}

// Health handles GET /health: process liveness only, no dependency checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /ready: verifies both stores respond within a short
// deadline. Returns 503 with per-dependency status when either is down so
// the orchestrator holds traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]string{
		"postgres": "ok",
		"redis":    "ok",
	}
	healthy := true

	if err := h.postgres.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Readiness check: PostgreSQL unreachable")
		status["postgres"] = "unreachable"
		healthy = false
	}

	if err := h.redis.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Readiness check: Redis unreachable")
		status["redis"] = "unreachable"
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	utils.RespondWithJSON(w, r, code, status)
}
