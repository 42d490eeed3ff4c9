package service

import (
	"strings"
	"time"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/shopspring/decimal"
)

// Options ties the engine to the deployment's catalog codes and reporting
// conventions.
type Options struct {
	BaseCurrency     string
	CashItemCode     string
	DueFromBanksCode string
	DueToBanksCode   string
	CapitalFallback  decimal.Decimal
	CashCoverTopN    int
}

// DefaultOptions returns the options used when configuration leaves them unset.
func DefaultOptions() Options {
	return Options{
		BaseCurrency:     "ETB",
		CashItemCode:     domain.DefaultCashItemCode,
		DueFromBanksCode: domain.DefaultDueFromBanksCode,
		DueToBanksCode:   domain.DefaultDueToBanksCode,
		CapitalFallback:  decimal.Zero,
		CashCoverTopN:    5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if strings.TrimSpace(o.BaseCurrency) == "" {
		o.BaseCurrency = d.BaseCurrency
	}
	if strings.TrimSpace(o.CashItemCode) == "" {
		o.CashItemCode = d.CashItemCode
	}
	if strings.TrimSpace(o.DueFromBanksCode) == "" {
		o.DueFromBanksCode = d.DueFromBanksCode
	}
	if strings.TrimSpace(o.DueToBanksCode) == "" {
		o.DueToBanksCode = d.DueToBanksCode
	}
	if o.CashCoverTopN <= 0 {
		o.CashCoverTopN = d.CashCoverTopN
	}
	return o
}

// Clock returns the current time. Services default to time.Now in UTC.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
