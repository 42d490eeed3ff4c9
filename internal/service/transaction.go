package service

import (
	"context"
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

// TransactionService records purchase/sale transactions and propagates
// authorized ones into the balance ledger.
type TransactionService struct {
	store QueryStore
	audit *AuditService
	opts  Options
	clock Clock
}

func NewTransactionService(store QueryStore, audit *AuditService, opts Options) *TransactionService {
	return &TransactionService{store: store, audit: audit, opts: opts.withDefaults(), clock: systemClock}
}

// WithClock overrides the time source used for timestamps.
func (s *TransactionService) WithClock(clock Clock) *TransactionService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

type CreateTransactionInput struct {
	Date       time.Time
	CurrencyID uuid.UUID
	Type       string
	Amount     decimal.Decimal
	Rate       decimal.Decimal
	Notes      string
}

func (in CreateTransactionInput) validate() error {
	if in.Date.IsZero() {
		return fmt.Errorf("%w: transaction date is required", apperrors.ErrValidation)
	}
	if in.CurrencyID == uuid.Nil {
		return fmt.Errorf("%w: currency is required", apperrors.ErrValidation)
	}
	if !domain.ValidTxType(in.Type) {
		return fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, in.Type)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if !in.Rate.IsPositive() {
		return fmt.Errorf("%w: rate must be positive", apperrors.ErrValidation)
	}
	return nil
}

// Create records a transaction in draft, or authorized and already propagated
// when the actor has authorizer privilege.
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput, actor models.Actor) (*models.Transaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if err := in.validate(); err != nil {
		return nil, err
	}

	at := s.clock()
	txn := models.Transaction{
		ID:              uuid.New(),
		TransactionDate: domain.Day(in.Date),
		CurrencyID:      in.CurrencyID,
		Type:            in.Type,
		Amount:          in.Amount,
		Rate:            in.Rate,
		Status:          domain.InitialStatus(actor.Role),
		CreatedBy:       actor.ID,
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if txn.Status == domain.StatusAuthorized {
		txn.AuthorizedBy = actorRef(actor)
	}

	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if _, err := qtx.GetCurrency(ctx, txn.CurrencyID); err != nil {
			return err
		}
		if err := qtx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, auditEntityTransaction, txn.ID, actorRef(actor), "create", "", txn.Status,
			auditMetadata(map[string]string{"type": txn.Type, "amount": txn.Amount.String()})); err != nil {
			return err
		}
		if txn.Status != domain.StatusAuthorized {
			return nil
		}
		return s.propagate(ctx, qtx, txn, actorRef(actor), at)
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementWorkflowTransition(auditEntityTransaction, txn.Status)
	zap.L().Info("transaction created",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("type", txn.Type),
		zap.String("status", txn.Status),
	)
	return &txn, nil
}

// Submit moves a draft transaction to submitted.
func (s *TransactionService) Submit(ctx context.Context, txID uuid.UUID, actor models.Actor) (*models.Transaction, error) {
	return s.transition(ctx, txID, domain.StatusSubmitted, actor, "")
}

// Authorize approves a submitted transaction and, in the same database
// transaction, moves cash on hand and the matching due-from/due-to item.
// Any failure leaves both the transaction and the ledger untouched.
func (s *TransactionService) Authorize(ctx context.Context, txID uuid.UUID, actor models.Actor) (*models.Transaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot authorize transactions", apperrors.ErrPermission, actor.Role)
	}

	var out models.Transaction
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		txn, err := transitionTransactionState(ctx, qtx, s.audit, txID, domain.StatusAuthorized, actorRef(actor), "")
		if err != nil {
			return err
		}
		out = txn
		return s.propagate(ctx, qtx, txn, actorRef(actor), s.clock())
	})
	if err != nil {
		zap.L().Warn("transaction authorization rolled back",
			zap.String("transaction_id", txID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("transaction authorized",
		zap.String("transaction_id", out.ID.String()),
		zap.String("type", out.Type),
		zap.String("amount", out.Amount.String()),
	)
	return &out, nil
}

// Reject returns a submitted transaction with a reason; the ledger is not touched.
func (s *TransactionService) Reject(ctx context.Context, txID uuid.UUID, reason string, actor models.Actor) (*models.Transaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot reject transactions", apperrors.ErrPermission, actor.Role)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", apperrors.ErrValidation)
	}
	return s.transition(ctx, txID, domain.StatusRejected, actor, reason)
}

// Reopen moves a rejected transaction back to draft.
func (s *TransactionService) Reopen(ctx context.Context, txID uuid.UUID, actor models.Actor) (*models.Transaction, error) {
	return s.transition(ctx, txID, domain.StatusDraft, actor, "")
}

func (s *TransactionService) transition(ctx context.Context, txID uuid.UUID, next string, actor models.Actor, reason string) (*models.Transaction, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var out models.Transaction
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		var err error
		out, err = transitionTransactionState(ctx, qtx, s.audit, txID, next, actorRef(actor), reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *TransactionService) propagate(ctx context.Context, qtx repository.Querier, txn models.Transaction, actorID *uuid.UUID, at time.Time) error {
	deltas, err := propagationDeltas(ctx, qtx, s.opts, txn)
	if err != nil {
		return err
	}
	for _, d := range deltas {
		if err := applyDelta(ctx, qtx, s.audit, txn, d, actorID, at); err != nil {
			return fmt.Errorf("propagate %s: %w", d.item.Code, err)
		}
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, txID uuid.UUID) (*models.Transaction, error) {
	txn, err := s.store.Queries().GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *TransactionService) List(ctx context.Context, date time.Time) ([]models.Transaction, error) {
	return s.store.Queries().ListTransactions(ctx, domain.Day(date))
}
