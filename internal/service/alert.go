package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/ayo6706/fcy-position/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertService exposes the resolution lifecycle of limit alerts.
type AlertService struct {
	store QueryStore
	audit *AuditService
	clock Clock
}

func NewAlertService(store QueryStore, audit *AuditService) *AlertService {
	return &AlertService{store: store, audit: audit, clock: systemClock}
}

// WithClock overrides the time source used for resolution timestamps.
func (s *AlertService) WithClock(clock Clock) *AlertService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// ActiveAlerts lists unresolved alerts, optionally for a single date.
func (s *AlertService) ActiveAlerts(ctx context.Context, date *time.Time) ([]models.Alert, error) {
	if date != nil {
		d := domain.Day(*date)
		date = &d
	}
	return s.store.Queries().ListUnresolvedAlerts(ctx, date)
}

// Resolve marks an alert resolved by actor.
func (s *AlertService) Resolve(ctx context.Context, alertID uuid.UUID, actor models.Actor) (*models.Alert, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var out models.Alert
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		alert, err := qtx.GetAlert(ctx, alertID)
		if err != nil {
			return err
		}
		if alert.IsResolved {
			return fmt.Errorf("%w: alert %s is already resolved", apperrors.ErrStateConflict, alertID)
		}
		at := s.clock()
		rows, err := qtx.ResolveAlert(ctx, alertID, actor.ID, at)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: alert %s is already resolved", apperrors.ErrStateConflict, alertID)
		}
		alert.IsResolved = true
		alert.ResolvedBy = actorRef(actor)
		alert.ResolvedAt = &at
		out = alert
		return s.audit.Write(ctx, qtx, auditEntityAlert, alertID, actorRef(actor), "resolve", "open", "resolved", nil)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("alert resolved", zap.String("alert_id", alertID.String()), zap.String("actor_id", actor.ID.String()))
	return &out, nil
}
