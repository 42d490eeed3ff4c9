package repository

import (
	"context"
	"time"

	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogQuerier reads reference data maintained outside the engine.
type CatalogQuerier interface {
	GetCurrency(ctx context.Context, id uuid.UUID) (models.Currency, error)
	ListActiveCurrencies(ctx context.Context) ([]models.Currency, error)
	GetBalanceItem(ctx context.Context, id uuid.UUID) (models.BalanceItem, error)
	GetBalanceItemByCode(ctx context.Context, code string) (models.BalanceItem, error)
}

// RateQuerier stores externally supplied daily exchange rates.
type RateQuerier interface {
	UpsertExchangeRate(ctx context.Context, rate models.ExchangeRate) error
	GetExchangeRate(ctx context.Context, currencyID uuid.UUID, date time.Time) (models.ExchangeRate, error)
}

// BalanceEntryQuerier persists dated per-currency/per-item balance entries.
type BalanceEntryQuerier interface {
	// LockBalanceKey serializes writers of one (date, currency, item) key until the
	// surrounding transaction ends.
	LockBalanceKey(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) error
	InsertBalanceEntry(ctx context.Context, entry models.BalanceEntry) error
	GetBalanceEntry(ctx context.Context, id uuid.UUID) (models.BalanceEntry, error)
	GetBalanceEntryForUpdate(ctx context.Context, id uuid.UUID) (models.BalanceEntry, error)
	// GetBalanceEntryByKey does not lock; writers take LockBalanceKey first.
	GetBalanceEntryByKey(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) (models.BalanceEntry, error)
	GetLatestAuthorizedEntryBefore(ctx context.Context, date time.Time, currencyID, itemID uuid.UUID) (models.BalanceEntry, error)
	UpdateBalanceEntry(ctx context.Context, entry models.BalanceEntry) (int64, error)
	DeleteBalanceEntry(ctx context.Context, id uuid.UUID) (int64, error)
	ListBalanceEntries(ctx context.Context, date time.Time) ([]models.BalanceEntry, error)
	SumAuthorizedByCategory(ctx context.Context, date time.Time, excludeItemID uuid.UUID) ([]CategoryTotalRow, error)
}

// TransactionQuerier persists purchase/sale transactions.
type TransactionQuerier interface {
	InsertTransaction(ctx context.Context, tx models.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, params UpdateTransactionStatusParams) (int64, error)
	ListTransactions(ctx context.Context, date time.Time) ([]models.Transaction, error)
	SumAuthorizedTransactions(ctx context.Context, date time.Time) ([]TransactionTotalRow, error)
}

// CapitalQuerier persists the paid-up capital timeline.
type CapitalQuerier interface {
	LockCapitalTimeline(ctx context.Context) error
	ListCapitalRecords(ctx context.Context) ([]models.CapitalRecord, error)
	InsertCapitalRecord(ctx context.Context, rec models.CapitalRecord) error
	UpdateCapitalAmount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (int64, error)
	DeactivateCapitalRecord(ctx context.Context, id uuid.UUID) (int64, error)
}

// CorrespondentQuerier persists correspondent banks and their daily balances.
type CorrespondentQuerier interface {
	InsertCorrespondentBank(ctx context.Context, bank models.CorrespondentBank) error
	GetCorrespondentBank(ctx context.Context, id uuid.UUID) (models.CorrespondentBank, error)
	ListCorrespondentBanks(ctx context.Context, activeOnly bool) ([]models.CorrespondentBank, error)
	UpdateCorrespondentLimits(ctx context.Context, id uuid.UUID, maxLimit, minLimit *decimal.Decimal) (int64, error)
	UpsertCorrespondentBalance(ctx context.Context, bal models.CorrespondentBalance) (models.CorrespondentBalance, error)
	GetCorrespondentBalance(ctx context.Context, bankID uuid.UUID, date time.Time) (models.CorrespondentBalance, error)
	// SumCorrespondentBalances totals balances of active banks in currencyID on date.
	SumCorrespondentBalances(ctx context.Context, currencyID uuid.UUID, date time.Time) (decimal.Decimal, error)
	// ListBankBalances returns every active bank with its balance on date (zero when absent).
	ListBankBalances(ctx context.Context, date time.Time) ([]BankBalanceRow, error)
}

// AlertQuerier persists limit breach alerts.
type AlertQuerier interface {
	// InsertAlertIfAbsent inserts alert unless an unresolved alert already exists for
	// (bank, date, type). It reports whether a row was inserted.
	InsertAlertIfAbsent(ctx context.Context, alert models.Alert) (bool, error)
	GetAlert(ctx context.Context, id uuid.UUID) (models.Alert, error)
	ResolveAlert(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) (int64, error)
	ListUnresolvedAlerts(ctx context.Context, date *time.Time) ([]models.Alert, error)
}

// AuditQuerier appends to the immutable audit trail.
type AuditQuerier interface {
	InsertAuditLog(ctx context.Context, params InsertAuditLogParams) error
}

// Querier is the full data access contract used by services.
type Querier interface {
	CatalogQuerier
	RateQuerier
	BalanceEntryQuerier
	TransactionQuerier
	CapitalQuerier
	CorrespondentQuerier
	AlertQuerier
	AuditQuerier

	// Savepoint runs fn so that its writes are undone on error without aborting
	// the surrounding transaction.
	Savepoint(ctx context.Context, fn func(q Querier) error) error
}

type CategoryTotalRow struct {
	CurrencyID uuid.UUID
	Category   string
	Amount     decimal.Decimal
}

type TransactionTotalRow struct {
	CurrencyID uuid.UUID
	Purchases  decimal.Decimal
	Sales      decimal.Decimal
}

type BankBalanceRow struct {
	Bank    models.CorrespondentBank
	Balance decimal.Decimal
}

type UpdateTransactionStatusParams struct {
	ID              uuid.UUID
	Status          string
	AuthorizedBy    *uuid.UUID
	RejectionReason string
}

type InsertAuditLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  *string
	NextState  *string
	Metadata   []byte
}
