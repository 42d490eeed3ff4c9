package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyTotals is one row of the totals report.
type CurrencyTotals struct {
	CurrencyID     uuid.UUID       `json:"currency_id"`
	CurrencyCode   string          `json:"currency_code"`
	Asset          decimal.Decimal `json:"asset"`
	Liability      decimal.Decimal `json:"liability"`
	MemoAsset      decimal.Decimal `json:"memo_asset"`
	MemoLiability  decimal.Decimal `json:"memo_liability"`
	TotalLiability decimal.Decimal `json:"total_liability"`
	CashOnHand     decimal.Decimal `json:"cash_on_hand"`
}

type CurrencyPosition struct {
	CurrencyID    uuid.UUID       `json:"currency_id"`
	CurrencyCode  string          `json:"currency_code"`
	Asset         decimal.Decimal `json:"asset"`
	Liability     decimal.Decimal `json:"liability"`
	MemoAsset     decimal.Decimal `json:"memo_asset"`
	MemoLiability decimal.Decimal `json:"memo_liability"`
	Position      decimal.Decimal `json:"position"`
	MidRate       decimal.Decimal `json:"mid_rate"`
	PositionLocal decimal.Decimal `json:"position_local"`
	Percentage    decimal.Decimal `json:"percentage"`
	Type          string          `json:"type"`
}

type PositionReport struct {
	Date                time.Time          `json:"date"`
	BaseCurrency        string             `json:"base_currency"`
	Capital             decimal.Decimal    `json:"capital"`
	Currencies          []CurrencyPosition `json:"currencies"`
	TotalLong           decimal.Decimal    `json:"total_long"`
	TotalShort          decimal.Decimal    `json:"total_short"`
	OverallOpenPosition decimal.Decimal    `json:"overall_open_position"`
	OverallPercentage   decimal.Decimal    `json:"overall_percentage"`
}

type BankLimitStatus struct {
	BankID     uuid.UUID        `json:"bank_id"`
	BankName   string           `json:"bank_name"`
	Balance    decimal.Decimal  `json:"balance"`
	Percentage decimal.Decimal  `json:"percentage"`
	MaxLimit   *decimal.Decimal `json:"max_limit,omitempty"`
	MinLimit   *decimal.Decimal `json:"min_limit,omitempty"`
	Status     string           `json:"status"`
	Variation  decimal.Decimal  `json:"variation"`
}

type CurrencyLimits struct {
	CurrencyID   uuid.UUID         `json:"currency_id"`
	CurrencyCode string            `json:"currency_code"`
	Total        decimal.Decimal   `json:"total"`
	Banks        []BankLimitStatus `json:"banks"`
}

type LimitsReport struct {
	Date       time.Time        `json:"date"`
	Currencies []CurrencyLimits `json:"currencies"`
}

type CashCoverBank struct {
	BankID     uuid.UUID       `json:"bank_id"`
	BankName   string          `json:"bank_name"`
	Balance    decimal.Decimal `json:"balance"`
	Percentage decimal.Decimal `json:"percentage"`
}

type CurrencyCashCover struct {
	CurrencyID    uuid.UUID       `json:"currency_id"`
	CurrencyCode  string          `json:"currency_code"`
	Total         decimal.Decimal `json:"total"`
	TopBanks      []CashCoverBank `json:"top_banks"`
	TopTotal      decimal.Decimal `json:"top_total"`
	TopPercentage decimal.Decimal `json:"top_percentage"`
	OtherBanks    int             `json:"other_banks"`
	OthersTotal   decimal.Decimal `json:"others_total"`
}

type CashCoverReport struct {
	Date       time.Time           `json:"date"`
	TopN       int                 `json:"top_n"`
	Currencies []CurrencyCashCover `json:"currencies"`
}
