package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// catalogItem resolves a balance item the engine depends on. A missing item is
// a configuration fault.
func catalogItem(ctx context.Context, qtx repository.Querier, code string) (models.BalanceItem, error) {
	item, err := qtx.GetBalanceItemByCode(ctx, code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return models.BalanceItem{}, fmt.Errorf("%w: balance item %s is not configured", apperrors.ErrDependencyMissing, code)
	}
	return item, err
}

// carryForward returns the latest authorized amount before date, or zero.
func carryForward(ctx context.Context, qtx repository.Querier, date time.Time, currencyID, itemID uuid.UUID) (decimal.Decimal, error) {
	prev, err := qtx.GetLatestAuthorizedEntryBefore(ctx, date, currencyID, itemID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return prev.Amount, nil
}

// ledgerDelta is one balance movement caused by an authorized transaction.
type ledgerDelta struct {
	item  models.BalanceItem
	delta decimal.Decimal
}

// propagationDeltas returns the ledger movements of txn: cash on hand moves by
// the signed amount, purchases raise due-from-banks and sales lower
// due-to-banks.
func propagationDeltas(ctx context.Context, qtx repository.Querier, opts Options, txn models.Transaction) ([]ledgerDelta, error) {
	cash, err := catalogItem(ctx, qtx, opts.CashItemCode)
	if err != nil {
		return nil, err
	}
	secondaryCode := opts.DueFromBanksCode
	signed := txn.Amount
	if txn.Type == domain.TxTypeSale {
		secondaryCode = opts.DueToBanksCode
		signed = txn.Amount.Neg()
	}
	secondary, err := catalogItem(ctx, qtx, secondaryCode)
	if err != nil {
		return nil, err
	}
	return []ledgerDelta{
		{item: cash, delta: signed},
		{item: secondary, delta: signed},
	}, nil
}

// applyDelta upserts the authorized entry for (date, currency, item) to
// baseline + delta. The baseline is today's authorized amount when one exists,
// otherwise the latest authorized amount before today, otherwise zero.
func applyDelta(ctx context.Context, qtx repository.Querier, audit *AuditService, txn models.Transaction, d ledgerDelta, actorID *uuid.UUID, at time.Time) error {
	date := txn.TransactionDate
	if err := qtx.LockBalanceKey(ctx, date, txn.CurrencyID, d.item.ID); err != nil {
		return err
	}

	existing, err := qtx.GetBalanceEntryByKey(ctx, date, txn.CurrencyID, d.item.ID)
	found := err == nil
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if found {
		if existing, err = qtx.GetBalanceEntryForUpdate(ctx, existing.ID); err != nil {
			return err
		}
	}

	var baseline decimal.Decimal
	if found && existing.Status == domain.StatusAuthorized {
		baseline = existing.Amount
	} else {
		baseline, err = carryForward(ctx, qtx, date, txn.CurrencyID, d.item.ID)
		if err != nil {
			return err
		}
	}
	amount := baseline.Add(d.delta)
	meta := auditMetadata(map[string]string{
		"transaction_id": txn.ID.String(),
		"baseline":       baseline.String(),
		"amount":         amount.String(),
	})

	if !found {
		entry := models.BalanceEntry{
			ID:           uuid.New(),
			BalanceDate:  date,
			CurrencyID:   txn.CurrencyID,
			ItemID:       d.item.ID,
			Amount:       amount,
			Status:       domain.StatusAuthorized,
			Source:       domain.SourceTransaction,
			CreatedBy:    txn.CreatedBy,
			AuthorizedBy: actorID,
			CreatedAt:    at,
			UpdatedAt:    at,
		}
		if err := qtx.InsertBalanceEntry(ctx, entry); err != nil {
			return err
		}
		return audit.Write(ctx, qtx, auditEntityBalanceEntry, entry.ID, actorID, "propagate", "", domain.StatusAuthorized, meta)
	}

	prevStatus := existing.Status
	if prevStatus != domain.StatusAuthorized {
		// an unauthorized draft for the key is superseded by the computed figure
		existing.Source = domain.SourceTransaction
		existing.RejectionReason = ""
	}
	existing.Amount = amount
	existing.Status = domain.StatusAuthorized
	existing.AuthorizedBy = actorID
	existing.UpdatedAt = at
	rows, err := qtx.UpdateBalanceEntry(ctx, existing)
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "propagate balance entry"); err != nil {
		return err
	}
	return audit.Write(ctx, qtx, auditEntityBalanceEntry, existing.ID, actorID, "propagate", prevStatus, domain.StatusAuthorized, meta)
}
