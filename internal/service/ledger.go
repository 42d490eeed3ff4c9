package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// LedgerService maintains dated per-currency balance entries under the
// maker-checker workflow.
type LedgerService struct {
	store QueryStore
	audit *AuditService
	clock Clock
}

func NewLedgerService(store QueryStore, audit *AuditService) *LedgerService {
	return &LedgerService{store: store, audit: audit, clock: systemClock}
}

// WithClock overrides the time source used for audit timestamps.
func (s *LedgerService) WithClock(clock Clock) *LedgerService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

type CreateEntryInput struct {
	Date       time.Time
	CurrencyID uuid.UUID
	ItemID     uuid.UUID
	Amount     decimal.Decimal
	Notes      string
}

type UpdateEntryInput struct {
	Amount decimal.Decimal
	Notes  *string
}

// CreateEntry records a new balance entry. Actors with authorizer privilege
// create it directly in authorized status.
func (s *LedgerService) CreateEntry(ctx context.Context, in CreateEntryInput, actor models.Actor) (*models.BalanceEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: balance date is required", apperrors.ErrValidation)
	}
	if in.CurrencyID == uuid.Nil || in.ItemID == uuid.Nil {
		return nil, fmt.Errorf("%w: currency and item are required", apperrors.ErrValidation)
	}

	at := s.clock()
	entry := models.BalanceEntry{
		ID:          uuid.New(),
		BalanceDate: domain.Day(in.Date),
		CurrencyID:  in.CurrencyID,
		ItemID:      in.ItemID,
		Amount:      in.Amount,
		Status:      domain.InitialStatus(actor.Role),
		Source:      domain.SourceManual,
		CreatedBy:   actor.ID,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if entry.Status == domain.StatusAuthorized {
		entry.AuthorizedBy = actorRef(actor)
	}

	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetCurrency(ctx, in.CurrencyID); err != nil {
			return err
		}
		if _, err := qtx.GetBalanceItem(ctx, in.ItemID); err != nil {
			return err
		}
		if err := qtx.LockBalanceKey(ctx, entry.BalanceDate, entry.CurrencyID, entry.ItemID); err != nil {
			return err
		}
		_, err := qtx.GetBalanceEntryByKey(ctx, entry.BalanceDate, entry.CurrencyID, entry.ItemID)
		if err == nil {
			return fmt.Errorf("%w: balance entry for %s already exists", apperrors.ErrDuplicate, entry.BalanceDate.Format(domain.DateLayout))
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if err := qtx.InsertBalanceEntry(ctx, entry); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, auditEntityBalanceEntry, entry.ID, actorRef(actor), "create", "", entry.Status,
			auditMetadata(map[string]string{"amount": entry.Amount.String()}))
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementWorkflowTransition(auditEntityBalanceEntry, entry.Status)
	zap.L().Info("balance entry created",
		zap.String("entry_id", entry.ID.String()),
		zap.String("status", entry.Status),
		zap.String("actor_id", actor.ID.String()),
	)
	return &entry, nil
}

// Submit moves a draft entry to submitted.
func (s *LedgerService) Submit(ctx context.Context, entryID uuid.UUID, actor models.Actor) (*models.BalanceEntry, error) {
	return s.transition(ctx, entryID, domain.StatusSubmitted, actor, "")
}

// Authorize moves a submitted entry to authorized. Requires authorizer privilege.
func (s *LedgerService) Authorize(ctx context.Context, entryID uuid.UUID, actor models.Actor) (*models.BalanceEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot authorize balance entries", apperrors.ErrPermission, actor.Role)
	}
	return s.transition(ctx, entryID, domain.StatusAuthorized, actor, "")
}

// Reject returns a submitted entry to its maker with a reason.
func (s *LedgerService) Reject(ctx context.Context, entryID uuid.UUID, reason string, actor models.Actor) (*models.BalanceEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot reject balance entries", apperrors.ErrPermission, actor.Role)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", apperrors.ErrValidation)
	}
	return s.transition(ctx, entryID, domain.StatusRejected, actor, reason)
}

// Reopen moves a rejected entry back to draft so it can be corrected.
func (s *LedgerService) Reopen(ctx context.Context, entryID uuid.UUID, actor models.Actor) (*models.BalanceEntry, error) {
	return s.transition(ctx, entryID, domain.StatusDraft, actor, "")
}

func (s *LedgerService) transition(ctx context.Context, entryID uuid.UUID, next string, actor models.Actor, reason string) (*models.BalanceEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var out models.BalanceEntry
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		var err error
		out, err = transitionEntryState(ctx, qtx, s.audit, entryID, next, actorRef(actor), reason, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("balance entry transitioned",
		zap.String("entry_id", entryID.String()),
		zap.String("status", next),
		zap.String("actor_id", actor.ID.String()),
	)
	return &out, nil
}

// Update changes the amount (and optionally notes) of an entry. Draft and
// submitted entries are editable by anyone; authorized entries only through
// the admin override.
func (s *LedgerService) Update(ctx context.Context, entryID uuid.UUID, in UpdateEntryInput, actor models.Actor) (*models.BalanceEntry, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var out models.BalanceEntry
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		entry, action, err := s.lockForChange(ctx, qtx, entryID, actor, "update")
		if err != nil {
			return err
		}
		prevAmount := entry.Amount
		entry.Amount = in.Amount
		if action == "override_update" {
			// overridden figures win over the recomputed cash on hand
			entry.Source = domain.SourceManual
		}
		if in.Notes != nil {
			entry.Notes = strings.TrimSpace(*in.Notes)
		}
		entry.UpdatedAt = s.clock()

		rows, err := qtx.UpdateBalanceEntry(ctx, entry)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "update balance entry"); err != nil {
			return err
		}
		out = entry
		return s.audit.Write(ctx, qtx, auditEntityBalanceEntry, entry.ID, actorRef(actor), action, entry.Status, entry.Status,
			auditMetadata(map[string]string{"previous_amount": prevAmount.String(), "amount": entry.Amount.String()}))
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an entry under the same rules as Update.
func (s *LedgerService) Delete(ctx context.Context, entryID uuid.UUID, actor models.Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		entry, action, err := s.lockForChange(ctx, qtx, entryID, actor, "delete")
		if err != nil {
			return err
		}
		rows, err := qtx.DeleteBalanceEntry(ctx, entry.ID)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "delete balance entry"); err != nil {
			return err
		}
		return s.audit.Write(ctx, qtx, auditEntityBalanceEntry, entry.ID, actorRef(actor), action, entry.Status, "",
			auditMetadata(map[string]string{"amount": entry.Amount.String()}))
	})
}

// lockForChange loads and locks an entry and decides whether actor may change
// it. It returns the audit action to record.
func (s *LedgerService) lockForChange(ctx context.Context, qtx repository.Querier, entryID uuid.UUID, actor models.Actor, verb string) (models.BalanceEntry, string, error) {
	current, err := qtx.GetBalanceEntry(ctx, entryID)
	if err != nil {
		return models.BalanceEntry{}, "", err
	}
	if err := qtx.LockBalanceKey(ctx, current.BalanceDate, current.CurrencyID, current.ItemID); err != nil {
		return models.BalanceEntry{}, "", err
	}
	entry, err := qtx.GetBalanceEntryForUpdate(ctx, entryID)
	if err != nil {
		return models.BalanceEntry{}, "", err
	}

	switch {
	case entry.Status == domain.StatusAuthorized:
		if !domain.CanOverride(actor.Role) {
			return models.BalanceEntry{}, "", fmt.Errorf("%w: %s of an authorized entry requires admin override", apperrors.ErrPermission, verb)
		}
		zap.L().Warn("admin override on authorized balance entry",
			zap.String("entry_id", entry.ID.String()),
			zap.String("action", verb),
			zap.String("actor_id", actor.ID.String()),
		)
		return entry, "override_" + verb, nil
	case domain.Editable(entry.Status):
		return entry, verb, nil
	default:
		return models.BalanceEntry{}, "", fmt.Errorf("%w: cannot %s balance entry in status %s", apperrors.ErrStateConflict, verb, entry.Status)
	}
}

func (s *LedgerService) GetEntry(ctx context.Context, entryID uuid.UUID) (*models.BalanceEntry, error) {
	entry, err := s.store.Queries().GetBalanceEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *LedgerService) ListEntries(ctx context.Context, date time.Time) ([]models.BalanceEntry, error) {
	return s.store.Queries().ListBalanceEntries(ctx, domain.Day(date))
}
