package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayo6706/fcy-position/internal/api/problem"
	"github.com/go-chi/httprate"
)

// PublicRateLimiter limits unauthenticated routes per client IP.
func PublicRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded(rps, "client IP")),
	)
}

// AuthRateLimiter limits /v1 traffic per authenticated actor. Makers and
// authorizers sharing a workstation IP get separate budgets.
func AuthRateLimiter(rps int) func(http.Handler) http.Handler {
	return httprate.Limit(rps, time.Second,
		httprate.WithKeyFuncs(actorKey),
		httprate.WithLimitHandler(limitExceeded(rps, "user")),
	)
}

func actorKey(r *http.Request) (string, error) {
	if actor, ok := ActorFromContext(r.Context()); ok {
		return "actor:" + actor.ID.String(), nil
	}
	return httprate.KeyByIP(r)
}

func limitExceeded(rps int, scope string) http.HandlerFunc {
	detail := fmt.Sprintf("Rate limit of %d req/s exceeded for this %s", rps, scope)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		problem.Write(w, r, http.StatusTooManyRequests, problem.Type("rate-limit-exceeded"),
			http.StatusText(http.StatusTooManyRequests), detail)
	}
}
