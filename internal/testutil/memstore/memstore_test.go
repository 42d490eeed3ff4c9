package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntry(t *testing.T, s *Store) models.BalanceEntry {
	t.Helper()
	usd := s.AddCurrency("USD")
	cash := s.AddItem(domain.DefaultCashItemCode, domain.CategoryAsset)
	e := models.BalanceEntry{
		ID:          uuid.New(),
		BalanceDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		CurrencyID:  usd.ID,
		ItemID:      cash.ID,
		Amount:      decimal.NewFromInt(5000),
		Status:      domain.StatusSubmitted,
		Source:      domain.SourceManual,
	}
	require.NoError(t, s.InsertBalanceEntry(context.Background(), e))
	return e
}

func TestEntryWritesInsideTxRequireKeyLock(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedEntry(t, s)

	err := s.RunInTx(ctx, func(q repository.Querier) error {
		_, err := q.GetBalanceEntryForUpdate(ctx, e.ID)
		return err
	})
	assert.ErrorContains(t, err, "not locked")

	err = s.RunInTx(ctx, func(q repository.Querier) error {
		e.Status = domain.StatusAuthorized
		_, err := q.UpdateBalanceEntry(ctx, e)
		return err
	})
	assert.ErrorContains(t, err, "not locked")

	err = s.RunInTx(ctx, func(q repository.Querier) error {
		if err := q.LockBalanceKey(ctx, e.BalanceDate, e.CurrencyID, e.ItemID); err != nil {
			return err
		}
		locked, err := q.GetBalanceEntryForUpdate(ctx, e.ID)
		if err != nil {
			return err
		}
		locked.Status = domain.StatusAuthorized
		_, err = q.UpdateBalanceEntry(ctx, locked)
		return err
	})
	require.NoError(t, err)

	got, err := s.GetBalanceEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, got.Status)
}

func TestKeyLocksAreReleasedWithTheTx(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedEntry(t, s)
	boom := errors.New("boom")

	err := s.RunInTx(ctx, func(q repository.Querier) error {
		require.NoError(t, q.LockBalanceKey(ctx, e.BalanceDate, e.CurrencyID, e.ItemID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.RunInTx(ctx, func(q repository.Querier) error {
		_, err := q.DeleteBalanceEntry(ctx, e.ID)
		return err
	})
	assert.ErrorContains(t, err, "not locked")

	// writes outside RunInTx are seeding helpers and are not checked
	_, err = s.DeleteBalanceEntry(ctx, e.ID)
	assert.NoError(t, err)
}
