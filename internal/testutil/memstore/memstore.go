// Package memstore is an in-memory implementation of repository.Querier used
// by service and handler tests. RunInTx serializes callers and restores a
// snapshot when fn fails, so rollback behaviour matches Postgres. Inside
// RunInTx, balance entries may only be locked or written after LockBalanceKey
// was called for their key, mirroring the lock order Postgres needs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type rateKey struct {
	currencyID uuid.UUID
	date       time.Time
}

type balanceKey struct {
	date       time.Time
	currencyID uuid.UUID
	itemID     uuid.UUID
}

func keyOf(e models.BalanceEntry) balanceKey {
	return balanceKey{date: domain.Day(e.BalanceDate), currencyID: e.CurrencyID, itemID: e.ItemID}
}

type state struct {
	currencies map[uuid.UUID]models.Currency
	items      map[uuid.UUID]models.BalanceItem
	entries    map[uuid.UUID]models.BalanceEntry
	txns       map[uuid.UUID]models.Transaction
	capital    map[uuid.UUID]models.CapitalRecord
	rates      map[rateKey]models.ExchangeRate
	banks      map[uuid.UUID]models.CorrespondentBank
	balances   map[uuid.UUID]models.CorrespondentBalance
	alerts     map[uuid.UUID]models.Alert
	audit      []repository.InsertAuditLogParams
}

func newState() *state {
	return &state{
		currencies: map[uuid.UUID]models.Currency{},
		items:      map[uuid.UUID]models.BalanceItem{},
		entries:    map[uuid.UUID]models.BalanceEntry{},
		txns:       map[uuid.UUID]models.Transaction{},
		capital:    map[uuid.UUID]models.CapitalRecord{},
		rates:      map[rateKey]models.ExchangeRate{},
		banks:      map[uuid.UUID]models.CorrespondentBank{},
		balances:   map[uuid.UUID]models.CorrespondentBalance{},
		alerts:     map[uuid.UUID]models.Alert{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.currencies {
		c.currencies[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.txns {
		c.txns[k] = v
	}
	for k, v := range s.capital {
		c.capital[k] = v
	}
	for k, v := range s.rates {
		c.rates[k] = v
	}
	for k, v := range s.banks {
		c.banks[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.alerts {
		c.alerts[k] = v
	}
	c.audit = append([]repository.InsertAuditLogParams(nil), s.audit...)
	return c
}

// Store is a goroutine-safe in-memory data store.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state

	faults map[string]error
	idem   map[string]idemRow

	inTx bool
	held map[balanceKey]bool
}

var _ repository.Querier = (*Store)(nil)

func New() *Store {
	return &Store{st: newState(), faults: map[string]error{}, idem: map[string]idemRow{}}
}

// Queries returns the store itself; writes outside RunInTx apply immediately.
func (s *Store) Queries() repository.Querier {
	return s
}

// RunInTx runs fn with exclusive access, undoing its writes when it fails.
func (s *Store) RunInTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.inTx, s.held = true, map[balanceKey]bool{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inTx, s.held = false, nil
		s.mu.Unlock()
	}()
	return s.savepoint(fn)
}

func (s *Store) Savepoint(ctx context.Context, fn func(q repository.Querier) error) error {
	return s.savepoint(fn)
}

func (s *Store) savepoint(fn func(q repository.Querier) error) error {
	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// FailOn makes the named query method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// fault must be called with mu held.
func (s *Store) fault(method string) error {
	if err, ok := s.faults[method]; ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrNotFound, what)
}

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrDuplicate, what)
}

// AddCurrency seeds an active currency.
func (s *Store) AddCurrency(code string) models.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Currency{ID: uuid.New(), Code: code, Name: code, Active: true}
	s.st.currencies[c.ID] = c
	return c
}

// AddItem seeds an active balance item.
func (s *Store) AddItem(code, category string) models.BalanceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	balanceType := domain.BalanceTypeOnSheet
	if category == domain.CategoryMemoAsset || category == domain.CategoryMemoLiability {
		balanceType = domain.BalanceTypeOffSheet
	}
	i := models.BalanceItem{
		ID:           uuid.New(),
		Code:         code,
		Name:         code,
		Category:     category,
		BalanceType:  balanceType,
		DisplayOrder: len(s.st.items) + 1,
		Active:       true,
	}
	s.st.items[i.ID] = i
	return i
}

// AuditLogs returns a copy of every audit row written so far.
func (s *Store) AuditLogs() []repository.InsertAuditLogParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.InsertAuditLogParams(nil), s.st.audit...)
}

func (s *Store) GetCurrency(ctx context.Context, id uuid.UUID) (models.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.currencies[id]
	if !ok {
		return models.Currency{}, notFound("currency")
	}
	return c, nil
}

func (s *Store) ListActiveCurrencies(ctx context.Context) ([]models.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("ListActiveCurrencies"); err != nil {
		return nil, err
	}
	var out []models.Currency
	for _, c := range s.st.currencies {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetBalanceItem(ctx context.Context, id uuid.UUID) (models.BalanceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.st.items[id]
	if !ok {
		return models.BalanceItem{}, notFound("balance item")
	}
	return i, nil
}

func (s *Store) GetBalanceItemByCode(ctx context.Context, code string) (models.BalanceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.st.items {
		if i.Code == code {
			return i, nil
		}
	}
	return models.BalanceItem{}, notFound("balance item " + code)
}

func (s *Store) UpsertExchangeRate(ctx context.Context, r models.ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.RateDate = domain.Day(r.RateDate)
	s.st.rates[rateKey{r.CurrencyID, r.RateDate}] = r
	return nil
}

func (s *Store) GetExchangeRate(ctx context.Context, currencyID uuid.UUID, date time.Time) (models.ExchangeRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("GetExchangeRate"); err != nil {
		return models.ExchangeRate{}, err
	}
	r, ok := s.st.rates[rateKey{currencyID, domain.Day(date)}]
	if !ok {
		return models.ExchangeRate{}, notFound("exchange rate")
	}
	return r, nil
}

func (s *Store) InsertAuditLog(ctx context.Context, arg repository.InsertAuditLogParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertAuditLog"); err != nil {
		return err
	}
	s.st.audit = append(s.st.audit, arg)
	return nil
}

func sameKey(e models.BalanceEntry, date time.Time, currencyID, itemID uuid.UUID) bool {
	return e.BalanceDate.Equal(domain.Day(date)) && e.CurrencyID == currencyID && e.ItemID == itemID
}

// LockBalanceKey records the key as held until RunInTx returns.
func (s *Store) LockBalanceKey(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inTx {
		s.held[balanceKey{date: domain.Day(date), currencyID: currencyID, itemID: itemID}] = true
	}
	return nil
}

// requireKeyLock must be called with mu held.
func (s *Store) requireKeyLock(e models.BalanceEntry, op string) error {
	if !s.inTx || s.held[keyOf(e)] {
		return nil
	}
	return fmt.Errorf("%s: balance key %s/%s/%s is not locked", op, e.BalanceDate.Format(domain.DateLayout), e.CurrencyID, e.ItemID)
}

func (s *Store) InsertBalanceEntry(ctx context.Context, e models.BalanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("InsertBalanceEntry"); err != nil {
		return err
	}
	e.BalanceDate = domain.Day(e.BalanceDate)
	if err := s.requireKeyLock(e, "insert balance entry"); err != nil {
		return err
	}
	for _, existing := range s.st.entries {
		if sameKey(existing, e.BalanceDate, e.CurrencyID, e.ItemID) {
			return duplicate("insert balance entry")
		}
	}
	s.st.entries[e.ID] = e
	return nil
}

func (s *Store) GetBalanceEntry(ctx context.Context, id uuid.UUID) (models.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.entries[id]
	if !ok {
		return models.BalanceEntry{}, notFound("balance entry")
	}
	return e, nil
}

func (s *Store) GetBalanceEntryForUpdate(ctx context.Context, id uuid.UUID) (models.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.st.entries[id]
	if !ok {
		return models.BalanceEntry{}, notFound("balance entry")
	}
	if err := s.requireKeyLock(e, "lock balance entry"); err != nil {
		return models.BalanceEntry{}, err
	}
	return e, nil
}

func (s *Store) GetBalanceEntryByKey(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) (models.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.st.entries {
		if sameKey(e, date, currencyID, itemID) {
			return e, nil
		}
	}
	return models.BalanceEntry{}, notFound("balance entry")
}

func (s *Store) GetLatestAuthorizedEntryBefore(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) (models.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	var (
		best  models.BalanceEntry
		found bool
	)
	for _, e := range s.st.entries {
		if e.CurrencyID != currencyID || e.ItemID != itemID || e.Status != domain.StatusAuthorized {
			continue
		}
		if !e.BalanceDate.Before(day) {
			continue
		}
		if !found || e.BalanceDate.After(best.BalanceDate) {
			best, found = e, true
		}
	}
	if !found {
		return models.BalanceEntry{}, notFound("authorized balance entry")
	}
	return best, nil
}

func (s *Store) UpdateBalanceEntry(ctx context.Context, e models.BalanceEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("UpdateBalanceEntry"); err != nil {
		return 0, err
	}
	existing, ok := s.st.entries[e.ID]
	if !ok {
		return 0, nil
	}
	if err := s.requireKeyLock(existing, "update balance entry"); err != nil {
		return 0, err
	}
	existing.Amount = e.Amount
	existing.Status = e.Status
	existing.Source = e.Source
	existing.AuthorizedBy = e.AuthorizedBy
	existing.Notes = e.Notes
	existing.RejectionReason = e.RejectionReason
	existing.UpdatedAt = e.UpdatedAt
	s.st.entries[e.ID] = existing
	return 1, nil
}

func (s *Store) DeleteBalanceEntry(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.st.entries[id]
	if !ok {
		return 0, nil
	}
	if err := s.requireKeyLock(existing, "delete balance entry"); err != nil {
		return 0, err
	}
	delete(s.st.entries, id)
	return 1, nil
}

func (s *Store) ListBalanceEntries(ctx context.Context, date time.Time) ([]models.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := domain.Day(date)
	var out []models.BalanceEntry
	for _, e := range s.st.entries {
		if e.BalanceDate.Equal(day) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CurrencyID != out[j].CurrencyID {
			return out[i].CurrencyID.String() < out[j].CurrencyID.String()
		}
		return out[i].ItemID.String() < out[j].ItemID.String()
	})
	return out, nil
}

func (s *Store) SumAuthorizedByCategory(ctx context.Context, date time.Time, excludeItemID uuid.UUID) ([]repository.CategoryTotalRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	type key struct {
		currencyID uuid.UUID
		category   string
	}
	day := domain.Day(date)
	sums := map[key]decimal.Decimal{}
	for _, e := range s.st.entries {
		if !e.BalanceDate.Equal(day) || e.Status != domain.StatusAuthorized || e.ItemID == excludeItemID {
			continue
		}
		item, ok := s.st.items[e.ItemID]
		if !ok {
			continue
		}
		k := key{e.CurrencyID, item.Category}
		sums[k] = sums[k].Add(e.Amount)
	}
	out := make([]repository.CategoryTotalRow, 0, len(sums))
	for k, v := range sums {
		out = append(out, repository.CategoryTotalRow{CurrencyID: k.currencyID, Category: k.category, Amount: v})
	}
	return out, nil
}
