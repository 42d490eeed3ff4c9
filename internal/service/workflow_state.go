package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/observability"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
)

// transitionEntryState moves a balance entry along the workflow and writes the
// audit row in the same transaction. The (date, currency, item) key lock is
// taken before the row lock, the same order propagation uses.
func transitionEntryState(ctx context.Context, qtx repository.Querier, audit *AuditService, entryID uuid.UUID, nextState string, actorID *uuid.UUID, reason string, at time.Time) (models.BalanceEntry, error) {
	key, err := qtx.GetBalanceEntry(ctx, entryID)
	if err != nil {
		return models.BalanceEntry{}, fmt.Errorf("get current entry state: %w", err)
	}
	if err := qtx.LockBalanceKey(ctx, key.BalanceDate, key.CurrencyID, key.ItemID); err != nil {
		return models.BalanceEntry{}, err
	}
	entry, err := qtx.GetBalanceEntryForUpdate(ctx, entryID)
	if err != nil {
		return models.BalanceEntry{}, fmt.Errorf("get current entry state: %w", err)
	}
	current := entry.Status
	if err := domain.CheckTransition(auditEntityBalanceEntry, entryID.String(), current, nextState); err != nil {
		return models.BalanceEntry{}, err
	}

	entry.Status = nextState
	entry.AuthorizedBy, entry.RejectionReason = workflowFields(nextState, entry.AuthorizedBy, actorID, reason)
	entry.UpdatedAt = at

	rows, err := qtx.UpdateBalanceEntry(ctx, entry)
	if err != nil {
		return models.BalanceEntry{}, fmt.Errorf("update entry state: %w", err)
	}
	if err := requireExactlyOne(rows, "update entry state"); err != nil {
		return models.BalanceEntry{}, err
	}

	if err := audit.Write(ctx, qtx, auditEntityBalanceEntry, entryID, actorID, "transition", current, nextState, reasonMetadata(reason)); err != nil {
		return models.BalanceEntry{}, err
	}
	observability.IncrementWorkflowTransition(auditEntityBalanceEntry, nextState)
	return entry, nil
}

// transitionTransactionState is the transaction counterpart of transitionEntryState.
func transitionTransactionState(ctx context.Context, qtx repository.Querier, audit *AuditService, txID uuid.UUID, nextState string, actorID *uuid.UUID, reason string) (models.Transaction, error) {
	txn, err := qtx.GetTransactionForUpdate(ctx, txID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("get current transaction state: %w", err)
	}
	current := txn.Status
	if err := domain.CheckTransition(auditEntityTransaction, txID.String(), current, nextState); err != nil {
		return models.Transaction{}, err
	}

	txn.Status = nextState
	txn.AuthorizedBy, txn.RejectionReason = workflowFields(nextState, txn.AuthorizedBy, actorID, reason)

	rows, err := qtx.UpdateTransactionStatus(ctx, repository.UpdateTransactionStatusParams{
		ID:              txID,
		Status:          nextState,
		AuthorizedBy:    txn.AuthorizedBy,
		RejectionReason: txn.RejectionReason,
	})
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction state: %w", err)
	}
	if err := requireExactlyOne(rows, "update transaction state"); err != nil {
		return models.Transaction{}, err
	}

	if err := audit.Write(ctx, qtx, auditEntityTransaction, txID, actorID, "transition", current, nextState, reasonMetadata(reason)); err != nil {
		return models.Transaction{}, err
	}
	observability.IncrementWorkflowTransition(auditEntityTransaction, nextState)
	return txn, nil
}

// workflowFields returns the authorizer and rejection reason a record carries
// after moving to next.
func workflowFields(next string, authorizedBy, actorID *uuid.UUID, reason string) (*uuid.UUID, string) {
	switch next {
	case domain.StatusAuthorized:
		return actorID, ""
	case domain.StatusRejected:
		return nil, reason
	case domain.StatusDraft:
		return nil, ""
	}
	return authorizedBy, ""
}

func reasonMetadata(reason string) []byte {
	if reason == "" {
		return nil
	}
	return auditMetadata(map[string]string{"reason": reason})
}
