package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/testutil/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := CreateTransactionInput{
		Date:       day(t, "2024-05-02"),
		CurrencyID: f.usd.ID,
		Type:       domain.TxTypePurchase,
		Amount:     dec(t, "10"),
		Rate:       dec(t, "55"),
	}
	cases := map[string]func(in *CreateTransactionInput){
		"zero amount":   func(in *CreateTransactionInput) { in.Amount = dec(t, "0") },
		"negative rate": func(in *CreateTransactionInput) { in.Rate = dec(t, "-1") },
		"unknown type":  func(in *CreateTransactionInput) { in.Type = "swap" },
		"missing date":  func(in *CreateTransactionInput) { in.Date = time.Time{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := base
			mutate(&in)
			_, err := f.txns.Create(ctx, in, maker)
			require.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	in := base
	in.Type = " Purchase "
	txn, err := f.txns.Create(ctx, in, maker)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTypePurchase, txn.Type)
	assert.Equal(t, domain.StatusDraft, txn.Status)
}

// Day 1 closes with 1000 USD cash; on day 2 a purchase of 200 and a sale of
// 50 are authorized.
func TestCashOnHandRollsForward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.authorizedEntry(t, "2024-05-01", f.usd, f.cash, "1000")
	f.authorizedTx(t, "2024-05-02", f.usd, domain.TxTypePurchase, "200")

	sale, err := f.txns.Create(ctx, CreateTransactionInput{
		Date:       day(t, "2024-05-02"),
		CurrencyID: f.usd.ID,
		Type:       domain.TxTypeSale,
		Amount:     dec(t, "50"),
		Rate:       dec(t, "57"),
	}, authorizer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, sale.Status)

	assertDecimal(t, "1150", f.entryAmount(t, "2024-05-02", f.usd, f.cash))
	assertDecimal(t, "200", f.entryAmount(t, "2024-05-02", f.usd, f.dueFrom))
	assertDecimal(t, "-50", f.entryAmount(t, "2024-05-02", f.usd, f.dueTo))

	coh, err := f.positions.CashOnHand(ctx, f.usd.ID, day(t, "2024-05-02"))
	require.NoError(t, err)
	assertDecimal(t, "1150", coh)

	cashEntry, err := f.store.GetBalanceEntryByKey(ctx, day(t, "2024-05-02"), f.usd.ID, f.cash.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, cashEntry.Status)
	assert.Equal(t, domain.SourceTransaction, cashEntry.Source)
}

func TestCashBaselineSkipsNonBusinessDays(t *testing.T) {
	f := newFixture(t)

	f.authorizedEntry(t, "2024-05-03", f.usd, f.cash, "500")
	f.authorizedEntry(t, "2024-05-03", f.usd, f.dueFrom, "70")
	// 4th and 5th have no entries
	f.authorizedTx(t, "2024-05-06", f.usd, domain.TxTypePurchase, "25")

	assertDecimal(t, "525", f.entryAmount(t, "2024-05-06", f.usd, f.cash))
	assertDecimal(t, "95", f.entryAmount(t, "2024-05-06", f.usd, f.dueFrom))
}

func TestAuthorizeAccumulatesOnTodaysEntry(t *testing.T) {
	f := newFixture(t)

	f.authorizedEntry(t, "2024-05-01", f.usd, f.cash, "1000")
	f.authorizedEntry(t, "2024-05-02", f.usd, f.cash, "900")
	f.authorizedTx(t, "2024-05-02", f.usd, domain.TxTypeSale, "100")
	f.authorizedTx(t, "2024-05-02", f.usd, domain.TxTypeSale, "100")

	assertDecimal(t, "700", f.entryAmount(t, "2024-05-02", f.usd, f.cash))
	assertDecimal(t, "-200", f.entryAmount(t, "2024-05-02", f.usd, f.dueTo))

	coh, err := f.positions.CashOnHand(context.Background(), f.usd.ID, day(t, "2024-05-02"))
	require.NoError(t, err)
	assertDecimal(t, "700", coh)
}

func TestAuthorizeRequiresSubmittedAndPrivilege(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.txns.Create(ctx, CreateTransactionInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, Type: domain.TxTypePurchase,
		Amount: dec(t, "10"), Rate: dec(t, "55"),
	}, maker)
	require.NoError(t, err)

	_, err = f.txns.Authorize(ctx, txn.ID, authorizer)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)

	_, err = f.txns.Submit(ctx, txn.ID, maker)
	require.NoError(t, err)

	_, err = f.txns.Authorize(ctx, txn.ID, maker)
	require.ErrorIs(t, err, apperrors.ErrPermission)

	_, err = f.txns.Authorize(ctx, txn.ID, authorizer)
	require.NoError(t, err)

	// a second authorize must not move the ledger again
	_, err = f.txns.Authorize(ctx, txn.ID, authorizer)
	require.ErrorIs(t, err, apperrors.ErrStateConflict)
	assertDecimal(t, "10", f.entryAmount(t, "2024-05-02", f.usd, f.cash))
}

func TestAuthorizeRollsBackWhenCatalogItemMissing(t *testing.T) {
	store := memstore.New()
	usd := store.AddCurrency("USD")
	cash := store.AddItem(domain.DefaultCashItemCode, domain.CategoryAsset)
	store.AddItem(domain.DefaultDueFromBanksCode, domain.CategoryAsset)
	// no due-to-banks item

	audit := NewAuditService()
	txns := NewTransactionService(store, audit, DefaultOptions())
	ctx := context.Background()

	txn, err := txns.Create(ctx, CreateTransactionInput{
		Date: day(t, "2024-05-02"), CurrencyID: usd.ID, Type: domain.TxTypeSale,
		Amount: dec(t, "10"), Rate: dec(t, "55"),
	}, maker)
	require.NoError(t, err)
	_, err = txns.Submit(ctx, txn.ID, maker)
	require.NoError(t, err)

	_, err = txns.Authorize(ctx, txn.ID, authorizer)
	require.ErrorIs(t, err, apperrors.ErrDependencyMissing)

	got, err := txns.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)

	_, err = store.GetBalanceEntryByKey(ctx, day(t, "2024-05-02"), usd.ID, cash.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	// skip-ahead creation is rolled back too
	_, err = txns.Create(ctx, CreateTransactionInput{
		Date: day(t, "2024-05-02"), CurrencyID: usd.ID, Type: domain.TxTypeSale,
		Amount: dec(t, "10"), Rate: dec(t, "55"),
	}, authorizer)
	require.ErrorIs(t, err, apperrors.ErrDependencyMissing)
	list, err := txns.List(ctx, day(t, "2024-05-02"))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAuthorizeIsAtomicAndRetryable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.authorizedEntry(t, "2024-05-01", f.usd, f.cash, "1000")
	// a pending due-from draft for the day forces an update on the secondary item
	_, err := f.ledger.CreateEntry(ctx, CreateEntryInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, ItemID: f.dueFrom.ID, Amount: dec(t, "3"),
	}, maker)
	require.NoError(t, err)

	txn, err := f.txns.Create(ctx, CreateTransactionInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, Type: domain.TxTypePurchase,
		Amount: dec(t, "200"), Rate: dec(t, "55"),
	}, maker)
	require.NoError(t, err)
	_, err = f.txns.Submit(ctx, txn.ID, maker)
	require.NoError(t, err)

	f.store.FailOn("UpdateBalanceEntry", errors.New("connection reset"))
	_, err = f.txns.Authorize(ctx, txn.ID, authorizer)
	require.Error(t, err)

	got, err := f.txns.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, got.Status)
	_, err = f.store.GetBalanceEntryByKey(ctx, day(t, "2024-05-02"), f.usd.ID, f.cash.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound, "cash entry must not survive a failed authorization")

	f.store.FailOn("UpdateBalanceEntry", nil)
	_, err = f.txns.Authorize(ctx, txn.ID, authorizer)
	require.NoError(t, err)

	assertDecimal(t, "1200", f.entryAmount(t, "2024-05-02", f.usd, f.cash))
	assertDecimal(t, "200", f.entryAmount(t, "2024-05-02", f.usd, f.dueFrom))
}

func TestRejectedTransactionDoesNotTouchLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	txn, err := f.txns.Create(ctx, CreateTransactionInput{
		Date: day(t, "2024-05-02"), CurrencyID: f.usd.ID, Type: domain.TxTypePurchase,
		Amount: dec(t, "10"), Rate: dec(t, "55"),
	}, maker)
	require.NoError(t, err)
	_, err = f.txns.Submit(ctx, txn.ID, maker)
	require.NoError(t, err)

	rejected, err := f.txns.Reject(ctx, txn.ID, "duplicate deal", authorizer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)

	entries, err := f.ledger.ListEntries(ctx, day(t, "2024-05-02"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	reopened, err := f.txns.Reopen(ctx, txn.ID, maker)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, reopened.Status)
}

func (f *fixture) submittedEntry(t *testing.T, date string, amount string) *models.BalanceEntry {
	t.Helper()
	ctx := context.Background()
	e, err := f.ledger.CreateEntry(ctx, CreateEntryInput{
		Date: day(t, date), CurrencyID: f.usd.ID, ItemID: f.cash.ID, Amount: dec(t, amount),
	}, maker)
	require.NoError(t, err)
	_, err = f.ledger.Submit(ctx, e.ID, maker)
	require.NoError(t, err)
	return e
}

func (f *fixture) submittedTx(t *testing.T, date, txType, amount string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	txn, err := f.txns.Create(ctx, CreateTransactionInput{
		Date: day(t, date), CurrencyID: f.usd.ID, Type: txType, Amount: dec(t, amount), Rate: dec(t, "56.5"),
	}, maker)
	require.NoError(t, err)
	_, err = f.txns.Submit(ctx, txn.ID, maker)
	require.NoError(t, err)
	return txn
}

func TestEntryAuthorizeAndSaleOnSameKeySerialize(t *testing.T) {
	ctx := context.Background()

	t.Run("entry authorized first", func(t *testing.T) {
		f := newFixture(t)
		f.authorizedEntry(t, "2024-05-01", f.usd, f.cash, "1000")
		entry := f.submittedEntry(t, "2024-05-02", "5000")
		txn := f.submittedTx(t, "2024-05-02", domain.TxTypeSale, "100")

		_, err := f.ledger.Authorize(ctx, entry.ID, authorizer)
		require.NoError(t, err)
		_, err = f.txns.Authorize(ctx, txn.ID, authorizer)
		require.NoError(t, err)

		assertDecimal(t, "4900", f.entryAmount(t, "2024-05-02", f.usd, f.cash))
	})

	t.Run("sale authorized first", func(t *testing.T) {
		f := newFixture(t)
		f.authorizedEntry(t, "2024-05-01", f.usd, f.cash, "1000")
		entry := f.submittedEntry(t, "2024-05-02", "5000")
		txn := f.submittedTx(t, "2024-05-02", domain.TxTypeSale, "100")

		_, err := f.txns.Authorize(ctx, txn.ID, authorizer)
		require.NoError(t, err)
		// the pending figure was superseded, so authorizing it is a conflict
		_, err = f.ledger.Authorize(ctx, entry.ID, authorizer)
		require.ErrorIs(t, err, apperrors.ErrStateConflict)

		assertDecimal(t, "900", f.entryAmount(t, "2024-05-02", f.usd, f.cash))
	})
}

func TestAdminOverrideOfPropagatedCashIsHonoured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.authorizedEntry(t, "2024-05-01", f.usd, f.cash, "1000")
	f.authorizedTx(t, "2024-05-02", f.usd, domain.TxTypePurchase, "200")

	propagated, err := f.store.GetBalanceEntryByKey(ctx, day(t, "2024-05-02"), f.usd.ID, f.cash.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SourceTransaction, propagated.Source)

	overridden, err := f.ledger.Update(ctx, propagated.ID, UpdateEntryInput{Amount: dec(t, "5000")}, admin)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceManual, overridden.Source)

	for _, d := range []string{"2024-05-02", "2024-05-03"} {
		coh, err := f.positions.CashOnHand(ctx, f.usd.ID, day(t, d))
		require.NoError(t, err)
		assertDecimal(t, "5000", coh, d)
	}

	// later flows on the same day accumulate onto the override
	f.authorizedTx(t, "2024-05-02", f.usd, domain.TxTypeSale, "300")
	coh, err := f.positions.CashOnHand(ctx, f.usd.ID, day(t, "2024-05-02"))
	require.NoError(t, err)
	assertDecimal(t, "4700", coh)
}
