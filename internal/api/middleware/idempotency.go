package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ayo6706/fcy-position/internal/api/problem"
	"github.com/ayo6706/fcy-position/internal/idempotency"
	"github.com/ayo6706/fcy-position/internal/observability"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLen = 128

// IdempotencyMiddleware requires an Idempotency-Key on every mutating /v1
// request. A repeated key with the same method, URI and body replays the
// first response; a repeated key with a different request is a 409.
func IdempotencyMiddleware(store *idempotency.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	g := &idempotencyGuard{store: store, logger: logger}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type idempotencyGuard struct {
	store  *idempotency.Store
	logger *zap.Logger
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	rawKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	switch {
	case rawKey == "":
		g.reject(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required", "missing_key")
		return
	case len(rawKey) > maxIdempotencyKeyLen:
		g.reject(w, r, http.StatusBadRequest, "idempotency/invalid-key", "Idempotency-Key is too long", "invalid_key")
		return
	}
	// keys are scoped per actor
	key := UserIDFromContext(r.Context()) + ":" + rawKey

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.reject(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body", "invalid_body")
		return
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	hash := hashRequest(r.Method, r.URL.RequestURI(), body)

	rec, err := g.store.Lookup(r.Context(), key, hash)
	switch {
	case err == nil:
		g.replay(w, rec, "replay")
		return
	case errors.Is(err, idempotency.ErrHashMismatch):
		g.reject(w, r, http.StatusConflict, "idempotency/key-conflict", "conflicting idempotency key", "hash_mismatch")
		return
	case errors.Is(err, idempotency.ErrInProgress):
		g.await(w, r, key, hash, "replay_after_wait")
		return
	case !errors.Is(err, idempotency.ErrNotFound):
		observability.IncrementIdempotencyEvent("lookup_error")
		g.logger.Warn("idempotency lookup failed", zap.Error(err))
	}

	reserved, err := g.store.Reserve(r.Context(), key, hash, r.Method, r.URL.Path)
	if err != nil {
		g.logger.Error("idempotency reserve failed", zap.Error(err))
		g.reject(w, r, http.StatusInternalServerError, "idempotency/unavailable", "idempotency unavailable", "reserve_error")
		return
	}
	if !reserved {
		g.await(w, r, key, hash, "replay_after_reserve")
		return
	}
	observability.IncrementIdempotencyEvent("reserved")

	recorder := &bodyRecorder{ResponseWriter: w}
	next.ServeHTTP(recorder, r)
	g.finalize(r, key, hash, recorder)
}

// await blocks until a concurrent request holding key completes, then replays it.
func (g *idempotencyGuard) await(w http.ResponseWriter, r *http.Request, key, hash, event string) {
	rec, err := g.store.WaitForCompletion(r.Context(), key, hash)
	if err != nil {
		g.logger.Warn("idempotency wait failed", zap.Error(err), zap.String("key", key))
		g.reject(w, r, http.StatusConflict, "idempotency/in-progress", "idempotency processing", "in_progress_conflict")
		return
	}
	g.replay(w, rec, event)
}

func (g *idempotencyGuard) finalize(r *http.Request, key, hash string, rec *bodyRecorder) {
	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	contentType := rec.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	if _, err := g.store.Finalize(r.Context(), key, hash, status, rec.body.Bytes(), contentType); err != nil {
		observability.IncrementIdempotencyEvent("finalize_error")
		g.logger.Warn("idempotency finalize failed", zap.Error(err), zap.String("key", key))
		return
	}
	observability.IncrementIdempotencyEvent("finalized")
}

func (g *idempotencyGuard) replay(w http.ResponseWriter, rec *idempotency.Record, event string) {
	observability.IncrementIdempotencyEvent(event)
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("X-Idempotent-Replay", rec.ServedBy)
	w.WriteHeader(rec.Status)
	_, _ = w.Write(rec.Body)
}

func (g *idempotencyGuard) reject(w http.ResponseWriter, r *http.Request, status int, slug, detail, event string) {
	observability.IncrementIdempotencyEvent(event)
	problem.Write(w, r, status, problem.Type(slug), http.StatusText(status), detail)
}

func hashRequest(method, uri string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{'|'})
	h.Write([]byte(uri))
	h.Write([]byte{'|'})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// bodyRecorder tees the handler response so it can be stored for replay.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (br *bodyRecorder) WriteHeader(code int) {
	br.status = code
	br.ResponseWriter.WriteHeader(code)
}

func (br *bodyRecorder) Write(b []byte) (int, error) {
	if br.status == 0 {
		br.status = http.StatusOK
	}
	br.body.Write(b)
	return br.ResponseWriter.Write(b)
}
