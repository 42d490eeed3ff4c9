package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CapitalSource supplies the capital in effect on a date.
type CapitalSource interface {
	CapitalForDate(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

// PositionService aggregates authorized balances into totals and open
// position reports. It never writes.
type PositionService struct {
	store   QueryStore
	rates   RateSource
	capital CapitalSource
	opts    Options
}

func NewPositionService(store QueryStore, rates RateSource, capital CapitalSource, opts Options) *PositionService {
	return &PositionService{store: store, rates: rates, capital: capital, opts: opts.withDefaults()}
}

// CashOnHand returns the cash figure for currency on date. An authorized
// manually keyed entry for the day is taken as is; otherwise the latest
// authorized figure before the day is rolled forward by the day's authorized
// purchases and sales.
func (s *PositionService) CashOnHand(ctx context.Context, currencyID uuid.UUID, date time.Time) (decimal.Decimal, error) {
	q := s.store.Queries()
	day := domain.Day(date)
	cash, err := catalogItem(ctx, q, s.opts.CashItemCode)
	if err != nil {
		return decimal.Zero, err
	}
	flows, err := transactionFlows(ctx, q, day)
	if err != nil {
		return decimal.Zero, err
	}
	return s.cashOnHand(ctx, q, cash.ID, currencyID, day, flows[currencyID])
}

func (s *PositionService) cashOnHand(ctx context.Context, q repository.Querier, cashItemID, currencyID uuid.UUID, day time.Time, flow repository.TransactionTotalRow) (decimal.Decimal, error) {
	entry, err := q.GetBalanceEntryByKey(ctx, day, currencyID, cashItemID)
	switch {
	case err == nil:
		if entry.Status == domain.StatusAuthorized && entry.Source == domain.SourceManual {
			return entry.Amount, nil
		}
	case !errors.Is(err, apperrors.ErrNotFound):
		return decimal.Zero, err
	}

	baseline, err := carryForward(ctx, q, day, currencyID, cashItemID)
	if err != nil {
		return decimal.Zero, err
	}
	return baseline.Add(flow.Purchases).Sub(flow.Sales), nil
}

func transactionFlows(ctx context.Context, q repository.Querier, day time.Time) (map[uuid.UUID]repository.TransactionTotalRow, error) {
	rows, err := q.SumAuthorizedTransactions(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("sum authorized transactions: %w", err)
	}
	flows := make(map[uuid.UUID]repository.TransactionTotalRow, len(rows))
	for _, r := range rows {
		flows[r.CurrencyID] = r
	}
	return flows, nil
}

// GetTotals sums authorized balances by category for every active currency.
// Cash on hand is excluded from the stored sums and replaced by the freshly
// computed figure.
func (s *PositionService) GetTotals(ctx context.Context, date time.Time) ([]models.CurrencyTotals, error) {
	day := domain.Day(date)
	q := s.store.Queries()

	cash, err := catalogItem(ctx, q, s.opts.CashItemCode)
	if err != nil {
		return nil, err
	}
	currencies, err := q.ListActiveCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	rows, err := q.SumAuthorizedByCategory(ctx, day, cash.ID)
	if err != nil {
		return nil, fmt.Errorf("sum balances: %w", err)
	}
	flows, err := transactionFlows(ctx, q, day)
	if err != nil {
		return nil, err
	}

	sums := make(map[uuid.UUID]*domain.CategoryTotals, len(currencies))
	for _, r := range rows {
		t, ok := sums[r.CurrencyID]
		if !ok {
			t = &domain.CategoryTotals{}
			sums[r.CurrencyID] = t
		}
		t.Add(r.Category, r.Amount)
	}

	out := make([]models.CurrencyTotals, 0, len(currencies))
	for _, c := range currencies {
		totals := domain.CategoryTotals{}
		if t, ok := sums[c.ID]; ok {
			totals = *t
		}
		coh, err := s.cashOnHand(ctx, q, cash.ID, c.ID, day, flows[c.ID])
		if err != nil {
			return nil, fmt.Errorf("cash on hand %s: %w", c.Code, err)
		}
		totals.Add(cash.Category, coh)

		out = append(out, models.CurrencyTotals{
			CurrencyID:     c.ID,
			CurrencyCode:   c.Code,
			Asset:          totals.Asset,
			Liability:      totals.Liability,
			MemoAsset:      totals.MemoAsset,
			MemoLiability:  totals.MemoLiability,
			TotalLiability: totals.TotalLiability(),
			CashOnHand:     coh,
		})
	}
	return out, nil
}

// GetPosition computes the open position per currency in base currency and
// against capital. Currencies without a same-day mid-rate are left out.
func (s *PositionService) GetPosition(ctx context.Context, date time.Time) (*models.PositionReport, error) {
	day := domain.Day(date)
	totals, err := s.GetTotals(ctx, day)
	if err != nil {
		return nil, err
	}
	capital, err := s.capital.CapitalForDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("capital for date: %w", err)
	}

	report := &models.PositionReport{
		Date:         day,
		BaseCurrency: s.opts.BaseCurrency,
		Capital:      capital,
		Currencies:   []models.CurrencyPosition{},
	}
	locals := make([]decimal.Decimal, 0, len(totals))
	for _, t := range totals {
		mid, ok, err := s.rates.MidRate(ctx, t.CurrencyID, day)
		if err != nil {
			zap.L().Warn("mid-rate lookup failed; currency omitted from position",
				zap.String("currency", t.CurrencyCode),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		exp := domain.ComputeExposure(domain.CategoryTotals{
			Asset:         t.Asset,
			Liability:     t.Liability,
			MemoAsset:     t.MemoAsset,
			MemoLiability: t.MemoLiability,
		}, mid, capital)
		report.Currencies = append(report.Currencies, models.CurrencyPosition{
			CurrencyID:    t.CurrencyID,
			CurrencyCode:  t.CurrencyCode,
			Asset:         t.Asset,
			Liability:     t.Liability,
			MemoAsset:     t.MemoAsset,
			MemoLiability: t.MemoLiability,
			Position:      exp.Position,
			MidRate:       exp.MidRate,
			PositionLocal: exp.PositionLocal,
			Percentage:    exp.Percentage,
			Type:          exp.Type,
		})
		locals = append(locals, exp.PositionLocal)
		observability.SetOpenPosition(t.CurrencyCode, exp.Percentage.InexactFloat64())
	}

	overall := domain.ComputeOverall(locals, capital)
	report.TotalLong = overall.TotalLong
	report.TotalShort = overall.TotalShort
	report.OverallOpenPosition = overall.OverallOpenPosition
	report.OverallPercentage = overall.OverallPercentage
	observability.SetOpenPosition("ALL", overall.OverallPercentage.InexactFloat64())
	return report, nil
}
