package service

import (
	"context"
	"testing"
	"time"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/testutil/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	maker      = models.Actor{ID: uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"), Role: domain.RoleMaker}
	authorizer = models.Actor{ID: uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002"), Role: domain.RoleAuthorizer}
	admin      = models.Actor{ID: uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000003"), Role: domain.RoleAdmin}
)

type fixture struct {
	store *memstore.Store
	now   time.Time

	usd models.Currency
	eur models.Currency

	cash       models.BalanceItem
	dueFrom    models.BalanceItem
	dueTo      models.BalanceItem
	loans      models.BalanceItem
	deposits   models.BalanceItem
	guarantees models.BalanceItem
	lcs        models.BalanceItem

	audit     *AuditService
	ledger    *LedgerService
	txns      *TransactionService
	capital   *CapitalService
	rates     *ExchangeRateService
	positions *PositionService
	banks     *CorrespondentService
	alerts    *AlertService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), now: day(t, "2024-06-01").Add(10 * time.Hour)}
	f.usd = f.store.AddCurrency("USD")
	f.eur = f.store.AddCurrency("EUR")
	f.cash = f.store.AddItem(domain.DefaultCashItemCode, domain.CategoryAsset)
	f.dueFrom = f.store.AddItem(domain.DefaultDueFromBanksCode, domain.CategoryAsset)
	f.dueTo = f.store.AddItem(domain.DefaultDueToBanksCode, domain.CategoryLiability)
	f.loans = f.store.AddItem("LOANS", domain.CategoryAsset)
	f.deposits = f.store.AddItem("DEPOSITS", domain.CategoryLiability)
	f.guarantees = f.store.AddItem("GUARANTEES", domain.CategoryMemoAsset)
	f.lcs = f.store.AddItem("LETTERS_OF_CREDIT", domain.CategoryMemoLiability)
	f.wire(DefaultOptions())
	return f
}

func (f *fixture) wire(opts Options) {
	clock := func() time.Time { return f.now }
	f.audit = NewAuditService()
	f.ledger = NewLedgerService(f.store, f.audit).WithClock(clock)
	f.txns = NewTransactionService(f.store, f.audit, opts).WithClock(clock)
	f.capital = NewCapitalService(f.store, f.audit, opts).WithClock(clock)
	f.rates = NewExchangeRateService(f.store, nil, time.Minute)
	f.positions = NewPositionService(f.store, f.rates, f.capital, opts)
	f.banks = NewCorrespondentService(f.store, f.audit, opts).WithClock(clock)
	f.alerts = NewAlertService(f.store, f.audit).WithClock(clock)
}

// authorizedEntry records an entry created directly in authorized status.
func (f *fixture) authorizedEntry(t *testing.T, date string, currency models.Currency, item models.BalanceItem, amount string) *models.BalanceEntry {
	t.Helper()
	e, err := f.ledger.CreateEntry(context.Background(), CreateEntryInput{
		Date:       day(t, date),
		CurrencyID: currency.ID,
		ItemID:     item.ID,
		Amount:     dec(t, amount),
	}, authorizer)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAuthorized, e.Status)
	return e
}

// authorizedTx pushes a transaction through create, submit and authorize.
func (f *fixture) authorizedTx(t *testing.T, date string, currency models.Currency, txType, amount string) *models.Transaction {
	t.Helper()
	ctx := context.Background()
	txn, err := f.txns.Create(ctx, CreateTransactionInput{
		Date:       day(t, date),
		CurrencyID: currency.ID,
		Type:       txType,
		Amount:     dec(t, amount),
		Rate:       dec(t, "56.5"),
	}, maker)
	require.NoError(t, err)
	_, err = f.txns.Submit(ctx, txn.ID, maker)
	require.NoError(t, err)
	out, err := f.txns.Authorize(ctx, txn.ID, authorizer)
	require.NoError(t, err)
	return out
}

func (f *fixture) entryAmount(t *testing.T, date string, currency models.Currency, item models.BalanceItem) decimal.Decimal {
	t.Helper()
	e, err := f.store.GetBalanceEntryByKey(context.Background(), day(t, date), currency.ID, item.ID)
	require.NoError(t, err)
	return e.Amount
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDay(s)
	require.NoError(t, err)
	return d
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.Truef(t, dec(t, want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}
