package domain

import "github.com/shopspring/decimal"

// PercentScale is the number of decimal places kept on reported percentages.
const PercentScale = 6

var hundred = decimal.NewFromInt(100)

// Percentage returns part / whole * 100, or zero when whole is zero.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(PercentScale)
}

// CategoryTotals holds the authorized balance sums of one currency on one date.
type CategoryTotals struct {
	Asset         decimal.Decimal
	Liability     decimal.Decimal
	MemoAsset     decimal.Decimal
	MemoLiability decimal.Decimal
}

// Add folds amount into the bucket for category. Unknown categories are ignored.
func (c *CategoryTotals) Add(category string, amount decimal.Decimal) {
	switch category {
	case CategoryAsset:
		c.Asset = c.Asset.Add(amount)
	case CategoryLiability:
		c.Liability = c.Liability.Add(amount)
	case CategoryMemoAsset:
		c.MemoAsset = c.MemoAsset.Add(amount)
	case CategoryMemoLiability:
		c.MemoLiability = c.MemoLiability.Add(amount)
	}
}

// TotalLiability is liability + memo liability as shown on the totals report.
func (c CategoryTotals) TotalLiability() decimal.Decimal {
	return c.Liability.Add(c.MemoLiability)
}

// NetPosition is (asset + memo asset) - (liability + memo liability).
func (c CategoryTotals) NetPosition() decimal.Decimal {
	return c.Asset.Add(c.MemoAsset).Sub(c.Liability.Add(c.MemoLiability))
}

// Exposure is the open position of one currency converted to base currency.
type Exposure struct {
	Position      decimal.Decimal
	MidRate       decimal.Decimal
	PositionLocal decimal.Decimal
	Percentage    decimal.Decimal
	Type          string
}

// ComputeExposure converts the net position of totals with midRate and
// expresses it against capital.
func ComputeExposure(totals CategoryTotals, midRate, capital decimal.Decimal) Exposure {
	position := totals.NetPosition()
	local := position.Mul(midRate)
	kind := PositionLong
	if position.IsNegative() {
		kind = PositionShort
	}
	return Exposure{
		Position:      position,
		MidRate:       midRate,
		PositionLocal: local,
		Percentage:    Percentage(local, capital),
		Type:          kind,
	}
}

// OverallPosition aggregates per-currency local positions.
type OverallPosition struct {
	TotalLong           decimal.Decimal
	TotalShort          decimal.Decimal
	OverallOpenPosition decimal.Decimal
	OverallPercentage   decimal.Decimal
}

// ComputeOverall sums long and short exposures. The overall open position is
// the dominating side, negative when shorts exceed longs.
func ComputeOverall(locals []decimal.Decimal, capital decimal.Decimal) OverallPosition {
	long, short := decimal.Zero, decimal.Zero
	for _, l := range locals {
		switch {
		case l.IsPositive():
			long = long.Add(l)
		case l.IsNegative():
			short = short.Add(l.Abs())
		}
	}
	overall := long
	if short.GreaterThan(long) {
		overall = short.Neg()
	}
	return OverallPosition{
		TotalLong:           long,
		TotalShort:          short,
		OverallOpenPosition: overall,
		OverallPercentage:   Percentage(overall, capital),
	}
}
