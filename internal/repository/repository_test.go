package repository

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/db"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/testutil/dblock"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = godotenv.Load("../../.env")
}

var usdID = uuid.MustParse("00000000-0000-0000-0000-000000000101")

func openStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	release := dblock.Acquire()
	t.Cleanup(release)

	require.NoError(t, db.Migrate(dbURL))
	pool, err := db.Connect(context.Background(), dbURL, db.PoolSize{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

// testDate picks a day far from real data so reruns do not collide.
func testDate() time.Time {
	base := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, rand.Intn(3000))
}

func TestBalanceEntryRoundTripAndUniqueKey(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	q := store.Queries()

	cash, err := q.GetBalanceItemByCode(ctx, domain.DefaultCashItemCode)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	entry := models.BalanceEntry{
		ID:          uuid.New(),
		BalanceDate: testDate(),
		CurrencyID:  usdID,
		ItemID:      cash.ID,
		Amount:      decimal.RequireFromString("1250.5"),
		Status:      domain.StatusDraft,
		Source:      domain.SourceManual,
		CreatedBy:   uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, q.InsertBalanceEntry(ctx, entry))
	t.Cleanup(func() { _, _ = q.DeleteBalanceEntry(ctx, entry.ID) })

	got, err := q.GetBalanceEntryByKey(ctx, entry.BalanceDate, usdID, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.True(t, entry.Amount.Equal(got.Amount))
	assert.Nil(t, got.AuthorizedBy)

	dup := entry
	dup.ID = uuid.New()
	err = q.InsertBalanceEntry(ctx, dup)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	_, err = q.GetBalanceEntry(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	bank := models.CorrespondentBank{
		ID:         uuid.New(),
		Name:       "Rollback Bank " + uuid.NewString()[:8],
		CurrencyID: usdID,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	err := store.RunInTx(ctx, func(q Querier) error {
		if err := q.InsertCorrespondentBank(ctx, bank); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Queries().GetCorrespondentBank(ctx, bank.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSavepointKeepsOuterWrites(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	date := testDate()
	maxLimit := decimal.NewFromInt(25)

	bank := models.CorrespondentBank{
		ID:         uuid.New(),
		Name:       "Savepoint Bank " + uuid.NewString()[:8],
		CurrencyID: usdID,
		MaxLimit:   &maxLimit,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	alert := models.Alert{
		ID:                uuid.New(),
		BankID:            bank.ID,
		AlertType:         domain.AlertMaxLimitExceeded,
		CurrentPercentage: decimal.NewFromInt(30),
		LimitPercentage:   maxLimit,
		Variation:         decimal.NewFromInt(5),
		AlertDate:         date,
		CreatedAt:         time.Now().UTC(),
	}

	err := store.RunInTx(ctx, func(q Querier) error {
		if err := q.InsertCorrespondentBank(ctx, bank); err != nil {
			return err
		}
		spErr := q.Savepoint(ctx, func(sq Querier) error {
			if _, err := sq.InsertAlertIfAbsent(ctx, alert); err != nil {
				return err
			}
			return errors.New("abandon alert")
		})
		assert.Error(t, spErr)
		return nil
	})
	require.NoError(t, err)

	q := store.Queries()
	_, err = q.GetCorrespondentBank(ctx, bank.ID)
	require.NoError(t, err)
	_, err = q.GetAlert(ctx, alert.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestInsertAlertIfAbsentDeduplicatesUnresolved(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	q := store.Queries()
	date := testDate()

	bank := models.CorrespondentBank{
		ID:         uuid.New(),
		Name:       "Dedup Bank " + uuid.NewString()[:8],
		CurrencyID: usdID,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, q.InsertCorrespondentBank(ctx, bank))

	newAlert := func() models.Alert {
		return models.Alert{
			ID:                uuid.New(),
			BankID:            bank.ID,
			AlertType:         domain.AlertMinLimitViolated,
			CurrentPercentage: decimal.NewFromInt(10),
			LimitPercentage:   decimal.NewFromInt(20),
			Variation:         decimal.NewFromInt(10),
			AlertDate:         date,
			CreatedAt:         time.Now().UTC(),
		}
	}

	first := newAlert()
	inserted, err := q.InsertAlertIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = q.InsertAlertIfAbsent(ctx, newAlert())
	require.NoError(t, err)
	assert.False(t, inserted)

	rows, err := q.ResolveAlert(ctx, first.ID, uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = q.ResolveAlert(ctx, first.ID, uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	inserted, err = q.InsertAlertIfAbsent(ctx, newAlert())
	require.NoError(t, err)
	assert.True(t, inserted, "a resolved alert no longer blocks a new one")
}

func TestIdempotencyKeyLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	q := New(store.db)
	key := "repo-test:" + uuid.NewString()

	params := ReserveIdempotencyKeyParams{IdempotencyKey: key, RequestHash: "h1", Method: "POST", Path: "/v1/rates"}
	reserved, err := q.ReserveIdempotencyKey(ctx, params)
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = q.ReserveIdempotencyKey(ctx, params)
	require.NoError(t, err)
	assert.False(t, reserved)

	row, err := q.FinalizeIdempotencyKey(ctx, FinalizeIdempotencyKeyParams{
		ResponseStatus: 201,
		ResponseBody:   []byte(`{"ok":true}`),
		ContentType:    "application/json",
		IdempotencyKey: key,
		RequestHash:    "h1",
	})
	require.NoError(t, err)
	assert.False(t, row.InProgress)
	assert.Equal(t, int32(201), row.ResponseStatus)

	purged, err := q.PurgeIdempotencyKeys(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(1))

	_, err = q.GetIdempotencyKey(ctx, key)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
