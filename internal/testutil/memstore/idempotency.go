package memstore

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/repository"
)

// Idempotency keys live outside the transactional snapshot, as they do in
// Postgres where the middleware writes them on the pool.
type idemRow struct {
	key       repository.IdempotencyKey
	updatedAt time.Time
}

func (s *Store) GetIdempotencyKey(ctx context.Context, key string) (repository.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.idem[key]
	if !ok {
		return repository.IdempotencyKey{}, notFound("idempotency key")
	}
	return row.key, nil
}

func (s *Store) ReserveIdempotencyKey(ctx context.Context, arg repository.ReserveIdempotencyKeyParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idem[arg.IdempotencyKey]; ok {
		return false, nil
	}
	s.idem[arg.IdempotencyKey] = idemRow{
		key: repository.IdempotencyKey{
			IdempotencyKey: arg.IdempotencyKey,
			RequestHash:    arg.RequestHash,
			Method:         arg.Method,
			Path:           arg.Path,
			InProgress:     true,
		},
		updatedAt: time.Now(),
	}
	return true, nil
}

func (s *Store) FinalizeIdempotencyKey(ctx context.Context, arg repository.FinalizeIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.idem[arg.IdempotencyKey]
	if !ok || row.key.RequestHash != arg.RequestHash {
		return repository.IdempotencyKey{}, notFound("idempotency key")
	}
	row.key.ResponseStatus = arg.ResponseStatus
	row.key.ResponseBody = append([]byte(nil), arg.ResponseBody...)
	row.key.ContentType = arg.ContentType
	row.key.InProgress = false
	row.updatedAt = time.Now()
	s.idem[arg.IdempotencyKey] = row
	return row.key, nil
}

func (s *Store) PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, row := range s.idem {
		if !row.key.InProgress && row.updatedAt.Before(cutoff) {
			delete(s.idem, k)
			n++
		}
	}
	return n, nil
}
