package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

type IdempotencyKey struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	InProgress     bool
}

type ReserveIdempotencyKeyParams struct {
	IdempotencyKey string
	RequestHash    string
	Method         string
	Path           string
}

type FinalizeIdempotencyKeyParams struct {
	ResponseStatus int32
	ResponseBody   []byte
	ContentType    string
	IdempotencyKey string
	RequestHash    string
}

const idempotencyColumns = `idempotency_key, request_hash, method, path, response_status,
	COALESCE(response_body, ''::bytea), content_type, in_progress`

const getIdempotencyKey = `SELECT ` + idempotencyColumns + ` FROM idempotency_keys WHERE idempotency_key = $1`

func scanIdempotencyKey(row pgx.Row) (IdempotencyKey, error) {
	var i IdempotencyKey
	err := row.Scan(
		&i.IdempotencyKey,
		&i.RequestHash,
		&i.Method,
		&i.Path,
		&i.ResponseStatus,
		&i.ResponseBody,
		&i.ContentType,
		&i.InProgress,
	)
	return i, err
}

func (q *Queries) GetIdempotencyKey(ctx context.Context, key string) (IdempotencyKey, error) {
	i, err := scanIdempotencyKey(q.db.QueryRow(ctx, getIdempotencyKey, key))
	return i, translate(err, "idempotency key")
}

const reserveIdempotencyKey = `
INSERT INTO idempotency_keys (idempotency_key, request_hash, method, path)
VALUES ($1, $2, $3, $4)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING idempotency_key`

// ReserveIdempotencyKey reports false when another request already holds key.
func (q *Queries) ReserveIdempotencyKey(ctx context.Context, arg ReserveIdempotencyKeyParams) (bool, error) {
	var key string
	err := q.db.QueryRow(ctx, reserveIdempotencyKey, arg.IdempotencyKey, arg.RequestHash, arg.Method, arg.Path).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "idempotency key")
	}
	return true, nil
}

const finalizeIdempotencyKey = `
UPDATE idempotency_keys
SET response_status = $1,
    response_body = $2,
    content_type = $3,
    in_progress = FALSE,
    updated_at = NOW()
WHERE idempotency_key = $4 AND request_hash = $5
RETURNING ` + idempotencyColumns

func (q *Queries) FinalizeIdempotencyKey(ctx context.Context, arg FinalizeIdempotencyKeyParams) (IdempotencyKey, error) {
	i, err := scanIdempotencyKey(q.db.QueryRow(ctx, finalizeIdempotencyKey,
		arg.ResponseStatus,
		arg.ResponseBody,
		arg.ContentType,
		arg.IdempotencyKey,
		arg.RequestHash,
	))
	return i, translate(err, "idempotency key")
}

const purgeIdempotencyKeys = `DELETE FROM idempotency_keys WHERE NOT in_progress AND updated_at < $1`

// PurgeIdempotencyKeys drops finalized keys last touched before cutoff.
func (q *Queries) PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, purgeIdempotencyKeys, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
