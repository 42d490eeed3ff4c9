package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

type Currency struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

type BalanceItem struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	BalanceType  string    `json:"balance_type"`
	DisplayOrder int       `json:"display_order"`
	Active       bool      `json:"active"`
}

type BalanceEntry struct {
	ID              uuid.UUID       `json:"id"`
	BalanceDate     time.Time       `json:"balance_date"`
	CurrencyID      uuid.UUID       `json:"currency_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	Source          string          `json:"source"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	AuthorizedBy    *uuid.UUID      `json:"authorized_by,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	TransactionDate time.Time       `json:"transaction_date"`
	CurrencyID      uuid.UUID       `json:"currency_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Rate            decimal.Decimal `json:"rate"`
	Status          string          `json:"status"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	AuthorizedBy    *uuid.UUID      `json:"authorized_by,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CapitalRecord struct {
	ID            uuid.UUID       `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate time.Time       `json:"effective_date"`
	CurrencyCode  string          `json:"currency_code"`
	Active        bool            `json:"active"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ExchangeRate struct {
	CurrencyID  uuid.UUID       `json:"currency_id"`
	RateDate    time.Time       `json:"rate_date"`
	BuyingRate  decimal.Decimal `json:"buying_rate"`
	SellingRate decimal.Decimal `json:"selling_rate"`
	CreatedBy   uuid.UUID       `json:"created_by"`
}

// MidRate is the midpoint between buying and selling rate.
func (r ExchangeRate) MidRate() decimal.Decimal {
	return r.BuyingRate.Add(r.SellingRate).Div(decimal.NewFromInt(2))
}

type CorrespondentBank struct {
	ID         uuid.UUID        `json:"id"`
	Name       string           `json:"name"`
	CurrencyID uuid.UUID        `json:"currency_id"`
	MaxLimit   *decimal.Decimal `json:"max_limit,omitempty"`
	MinLimit   *decimal.Decimal `json:"min_limit,omitempty"`
	Active     bool             `json:"active"`
	CreatedAt  time.Time        `json:"created_at"`
}

type CorrespondentBalance struct {
	ID            uuid.UUID       `json:"id"`
	BankID        uuid.UUID       `json:"bank_id"`
	BalanceDate   time.Time       `json:"balance_date"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Alert struct {
	ID                uuid.UUID       `json:"id"`
	BankID            uuid.UUID       `json:"bank_id"`
	AlertType         string          `json:"alert_type"`
	CurrentPercentage decimal.Decimal `json:"current_percentage"`
	LimitPercentage   decimal.Decimal `json:"limit_percentage"`
	Variation         decimal.Decimal `json:"variation"`
	AlertDate         time.Time       `json:"alert_date"`
	IsResolved        bool            `json:"is_resolved"`
	ResolvedBy        *uuid.UUID      `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
