package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetIdempotencyKey(ctx context.Context, key string) (repository.IdempotencyKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(repository.IdempotencyKey), args.Error(1)
}

func (m *mockBackend) ReserveIdempotencyKey(ctx context.Context, arg repository.ReserveIdempotencyKeyParams) (bool, error) {
	args := m.Called(ctx, arg)
	return args.Bool(0), args.Error(1)
}

func (m *mockBackend) FinalizeIdempotencyKey(ctx context.Context, arg repository.FinalizeIdempotencyKeyParams) (repository.IdempotencyKey, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(repository.IdempotencyKey), args.Error(1)
}

func (m *mockBackend) PurgeIdempotencyKeys(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	finalized := repository.IdempotencyKey{
		IdempotencyKey: "k1",
		RequestHash:    "h1",
		ResponseStatus: 201,
		ResponseBody:   []byte(`{"id":"x"}`),
		ContentType:    "application/json",
	}

	t.Run("not found", func(t *testing.T) {
		backend := new(mockBackend)
		backend.On("GetIdempotencyKey", ctx, "k1").Return(repository.IdempotencyKey{}, apperrors.ErrNotFound)
		_, err := NewStore(nil, backend, time.Hour).Lookup(ctx, "k1", "h1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("replay", func(t *testing.T) {
		backend := new(mockBackend)
		backend.On("GetIdempotencyKey", ctx, "k1").Return(finalized, nil)
		rec, err := NewStore(nil, backend, time.Hour).Lookup(ctx, "k1", "h1")
		require.NoError(t, err)
		assert.Equal(t, 201, rec.Status)
		assert.Equal(t, "postgres", rec.ServedBy)
		assert.JSONEq(t, `{"id":"x"}`, string(rec.Body))
	})

	t.Run("hash mismatch", func(t *testing.T) {
		backend := new(mockBackend)
		backend.On("GetIdempotencyKey", ctx, "k1").Return(finalized, nil)
		_, err := NewStore(nil, backend, time.Hour).Lookup(ctx, "k1", "other")
		assert.ErrorIs(t, err, ErrHashMismatch)
	})

	t.Run("in progress", func(t *testing.T) {
		backend := new(mockBackend)
		pending := finalized
		pending.InProgress = true
		backend.On("GetIdempotencyKey", ctx, "k1").Return(pending, nil)
		_, err := NewStore(nil, backend, time.Hour).Lookup(ctx, "k1", "h1")
		assert.ErrorIs(t, err, ErrInProgress)
	})

	t.Run("backend failure", func(t *testing.T) {
		backend := new(mockBackend)
		backend.On("GetIdempotencyKey", ctx, "k1").Return(repository.IdempotencyKey{}, errors.New("conn reset"))
		_, err := NewStore(nil, backend, time.Hour).Lookup(ctx, "k1", "h1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestWaitForCompletionReturnsFinalizedRecord(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	pending := repository.IdempotencyKey{IdempotencyKey: "k1", RequestHash: "h1", InProgress: true}
	done := repository.IdempotencyKey{IdempotencyKey: "k1", RequestHash: "h1", ResponseStatus: 200, ContentType: "application/json"}
	backend.On("GetIdempotencyKey", ctx, "k1").Return(pending, nil).Twice()
	backend.On("GetIdempotencyKey", ctx, "k1").Return(done, nil)

	store := NewStore(nil, backend, time.Hour)
	store.poll = time.Millisecond
	rec, err := store.WaitForCompletion(ctx, "k1", "h1")
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Status)
	backend.AssertNumberOfCalls(t, "GetIdempotencyKey", 3)
}

func TestWaitForCompletionHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	backend := new(mockBackend)
	backend.On("GetIdempotencyKey", mock.Anything, "k1").
		Return(repository.IdempotencyKey{IdempotencyKey: "k1", RequestHash: "h1", InProgress: true}, nil)

	store := NewStore(nil, backend, time.Hour)
	store.poll = time.Millisecond
	_, err := store.WaitForCompletion(ctx, "k1", "h1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReserveAndFinalize(t *testing.T) {
	ctx := context.Background()
	backend := new(mockBackend)
	params := repository.ReserveIdempotencyKeyParams{IdempotencyKey: "k1", RequestHash: "h1", Method: "POST", Path: "/v1/rates"}
	backend.On("ReserveIdempotencyKey", ctx, params).Return(true, nil).Once()
	backend.On("ReserveIdempotencyKey", ctx, params).Return(false, nil).Once()
	backend.On("FinalizeIdempotencyKey", ctx, repository.FinalizeIdempotencyKeyParams{
		ResponseStatus: 201,
		ResponseBody:   []byte("{}"),
		ContentType:    "application/json",
		IdempotencyKey: "k1",
		RequestHash:    "h1",
	}).Return(repository.IdempotencyKey{IdempotencyKey: "k1", RequestHash: "h1", ResponseStatus: 201}, nil)

	store := NewStore(nil, backend, time.Hour)
	ok, err := store.Reserve(ctx, "k1", "h1", "POST", "/v1/rates")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Reserve(ctx, "k1", "h1", "POST", "/v1/rates")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := store.Finalize(ctx, "k1", "h1", 201, []byte("{}"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)
	backend.AssertExpectations(t)
}

func TestPurgeUsesReplayWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	backend := new(mockBackend)
	backend.On("PurgeIdempotencyKeys", ctx, now.Add(-2*time.Hour)).Return(int64(3), nil)

	n, err := NewStore(nil, backend, 2*time.Hour).Purge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
