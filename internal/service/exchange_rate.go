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
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource supplies the mid-rate of a currency on a date. ok is false when
// no rate was published for that day.
type RateSource interface {
	MidRate(ctx context.Context, currencyID uuid.UUID, date time.Time) (rate decimal.Decimal, ok bool, err error)
}

const rateCachePrefix = "midrate"

// ExchangeRateService stores operator-supplied daily rates and serves
// mid-rates, cached in Redis when a client is configured.
type ExchangeRateService struct {
	store QueryStore
	cache redis.Cmdable
	ttl   time.Duration
}

var _ RateSource = (*ExchangeRateService)(nil)

func NewExchangeRateService(store QueryStore, cache redis.Cmdable, ttl time.Duration) *ExchangeRateService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ExchangeRateService{store: store, cache: cache, ttl: ttl}
}

type RecordRateInput struct {
	CurrencyID  uuid.UUID
	Date        time.Time
	BuyingRate  decimal.Decimal
	SellingRate decimal.Decimal
}

// RecordRate stores the buying/selling rate for a currency and date,
// replacing any earlier figure for the same day.
func (s *ExchangeRateService) RecordRate(ctx context.Context, in RecordRateInput, actor models.Actor) (*models.ExchangeRate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.CurrencyID == uuid.Nil || in.Date.IsZero() {
		return nil, fmt.Errorf("%w: currency and date are required", apperrors.ErrValidation)
	}
	if !in.BuyingRate.IsPositive() || !in.SellingRate.IsPositive() {
		return nil, fmt.Errorf("%w: rates must be positive", apperrors.ErrValidation)
	}
	if in.BuyingRate.GreaterThan(in.SellingRate) {
		return nil, fmt.Errorf("%w: buying rate exceeds selling rate", apperrors.ErrValidation)
	}

	rate := models.ExchangeRate{
		CurrencyID:  in.CurrencyID,
		RateDate:    domain.Day(in.Date),
		BuyingRate:  in.BuyingRate,
		SellingRate: in.SellingRate,
		CreatedBy:   actor.ID,
	}
	q := s.store.Queries()
	if _, err := q.GetCurrency(ctx, rate.CurrencyID); err != nil {
		return nil, err
	}
	if err := q.UpsertExchangeRate(ctx, rate); err != nil {
		return nil, err
	}

	if s.cache != nil {
		// overwrite rather than delete so a concurrent reader cannot re-cache the old figure
		key := rateCacheKey(rate.CurrencyID, rate.RateDate)
		if err := s.cache.Set(ctx, key, rate.MidRate().String(), s.ttl).Err(); err != nil {
			zap.L().Warn("mid-rate cache update failed", zap.Error(err))
			if err := s.cache.Del(ctx, key).Err(); err != nil {
				zap.L().Warn("mid-rate cache invalidation failed", zap.Error(err))
			}
		}
	}
	return &rate, nil
}

// MidRate returns (buying + selling) / 2 for currency on date.
func (s *ExchangeRateService) MidRate(ctx context.Context, currencyID uuid.UUID, date time.Time) (decimal.Decimal, bool, error) {
	day := domain.Day(date)
	key := rateCacheKey(currencyID, day)

	if s.cache != nil {
		val, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			if mid, perr := decimal.NewFromString(val); perr == nil {
				observability.IncrementRateCacheLookup("hit")
				return mid, true, nil
			}
		case errors.Is(err, redis.Nil):
			observability.IncrementRateCacheLookup("miss")
		default:
			observability.IncrementRateCacheLookup("error")
			zap.L().Warn("mid-rate cache lookup failed", zap.Error(err))
		}
	}

	rate, err := s.store.Queries().GetExchangeRate(ctx, currencyID, day)
	if errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	mid := rate.MidRate()
	s.fillCache(ctx, key, mid)
	return mid, true, nil
}

// fillCache stores a mid-rate read from the database only when the key is
// absent, so it never replaces a figure written by RecordRate.
func (s *ExchangeRateService) fillCache(ctx context.Context, key string, mid decimal.Decimal) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetNX(ctx, key, mid.String(), s.ttl).Err(); err != nil {
		zap.L().Warn("mid-rate cache set failed", zap.Error(err))
	}
}

func rateCacheKey(currencyID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s:%s:%s", rateCachePrefix, currencyID, date.Format(domain.DateLayout))
}
