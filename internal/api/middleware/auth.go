package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayo6706/fcy-position/internal/api/problem"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	actorContextKey contextKey = "actor"
	traceContextKey contextKey = "trace_id"
)

var (
	jwtSecret   []byte
	jwtIssuer   string
	jwtAudience string
)

// actorClaims is the token body issued by the identity provider. Role is one
// of maker, authorizer or admin.
type actorClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func SetJWTSecret(secret string) {
	if secret == "" {
		return
	}
	jwtSecret = []byte(secret)
}

func SetJWTValidation(issuer, audience string) {
	jwtIssuer = strings.TrimSpace(issuer)
	jwtAudience = strings.TrimSpace(audience)
}

func JWTSecret() []byte {
	clone := make([]byte, len(jwtSecret))
	copy(clone, jwtSecret)
	return clone
}

// authFailure is a rejected credential, rendered as a problem document.
type authFailure struct {
	status int
	slug   string
	detail string
}

func unauthorized(slug, detail string) *authFailure {
	return &authFailure{status: http.StatusUnauthorized, slug: slug, detail: detail}
}

// AuthMiddleware validates the bearer token and stores the acting maker,
// authorizer or admin on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, fail := authenticate(r.Header.Get("Authorization"))
		if fail != nil {
			problem.Write(w, r, fail.status, problem.Type(fail.slug), http.StatusText(fail.status), fail.detail)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorContextKey, actor)))
	})
}

func authenticate(header string) (models.Actor, *authFailure) {
	if header == "" {
		return models.Actor{}, unauthorized("auth/authorization-header-required", "Authorization header required")
	}
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(raw) == "" {
		return models.Actor{}, unauthorized("auth/invalid-token-format", "Invalid token format")
	}
	if len(jwtSecret) == 0 {
		return models.Actor{}, &authFailure{status: http.StatusInternalServerError, slug: "auth/misconfigured", detail: "auth is not configured"}
	}

	claims := &actorClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return jwtSecret, nil
	}, parserOptions()...)
	if err != nil || !token.Valid {
		return models.Actor{}, unauthorized("auth/invalid-token", "Invalid token")
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil || (claims.Subject != "" && claims.Subject != claims.UserID) {
		return models.Actor{}, unauthorized("auth/invalid-token-claims", "Invalid token claims")
	}
	if !domain.ValidRole(claims.Role) {
		return models.Actor{}, &authFailure{status: http.StatusForbidden, slug: "auth/unknown-role", detail: "token carries no recognized role"}
	}
	return models.Actor{ID: id, Role: claims.Role}, nil
}

func parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if jwtIssuer != "" {
		opts = append(opts, jwt.WithIssuer(jwtIssuer))
	}
	if jwtAudience != "" {
		opts = append(opts, jwt.WithAudience(jwtAudience))
	}
	return opts
}

// RequireAnyRole admits only actors holding one of roles. Routes that need a
// checker, such as publishing rates, sit behind it.
func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if _, permitted := allowed[actor.Role]; !ok || !permitted {
				problem.Write(w, r, http.StatusForbidden, problem.Type("auth/insufficient-permissions"), http.StatusText(http.StatusForbidden), "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorFromContext returns the authenticated actor. ok is false when the
// request did not pass AuthMiddleware.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	if ctx == nil {
		return models.Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey).(models.Actor)
	return actor, ok
}

// UserIDFromContext returns the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.ID.String()
	}
	return ""
}

// TraceIDFromContext returns the trace id for the request.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceContextKey).(string); ok {
		return v
	}
	return ""
}
