package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const readinessTimeout = time.Second

// Pinger reports whether a backing store is reachable. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes. Readiness covers the
// ledger database and, when configured, the Redis rate and idempotency cache.
type HealthHandler struct {
	db    Pinger
	redis redis.Cmdable
}

func NewHealthHandler(db Pinger, redis redis.Cmdable) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready answers 503 with the failing dependency when any check fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{}
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			zap.L().Warn("readiness: database unreachable", zap.Error(err))
			RespondError(w, r, http.StatusServiceUnavailable, "health/database-unavailable", "database unavailable")
			return
		}
		checks["database"] = "ok"
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			zap.L().Warn("readiness: redis unreachable", zap.Error(err))
			RespondError(w, r, http.StatusServiceUnavailable, "health/redis-unavailable", "redis unavailable")
			return
		}
		checks["redis"] = "ok"
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "checks": checks})
}
