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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CapitalService maintains the paid-up capital timeline.
type CapitalService struct {
	store QueryStore
	audit *AuditService
	opts  Options
	clock Clock
}

func NewCapitalService(store QueryStore, audit *AuditService, opts Options) *CapitalService {
	return &CapitalService{store: store, audit: audit, opts: opts.withDefaults(), clock: systemClock}
}

// WithClock overrides "now", which decides whether an upsert is future-dated.
func (s *CapitalService) WithClock(clock Clock) *CapitalService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func (s *CapitalService) timeline(ctx context.Context, q repository.Querier) (domain.CapitalTimeline, []models.CapitalRecord, error) {
	records, err := q.ListCapitalRecords(ctx)
	if err != nil {
		return domain.CapitalTimeline{}, nil, err
	}
	return domain.NewCapitalTimeline(capitalPoints(records), s.opts.CapitalFallback), records, nil
}

// CapitalForDate returns the capital in effect on date, or the configured fallback.
func (s *CapitalService) CapitalForDate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	tl, _, err := s.timeline(ctx, s.store.Queries())
	if err != nil {
		return decimal.Zero, err
	}
	return tl.ValueAt(date), nil
}

// CurrentCapital returns the capital in effect today.
func (s *CapitalService) CurrentCapital(ctx context.Context) (decimal.Decimal, error) {
	return s.CapitalForDate(ctx, s.clock())
}

// CapitalHistory returns every record, active or not, ordered by effective date.
func (s *CapitalService) CapitalHistory(ctx context.Context) ([]models.CapitalRecord, error) {
	return s.store.Queries().ListCapitalRecords(ctx)
}

// UpsertCapital places amount on the timeline at effectiveDate. An existing
// record for the same date is updated in place; otherwise a new active record
// is inserted and superseded records are deactivated.
func (s *CapitalService) UpsertCapital(ctx context.Context, amount decimal.Decimal, effectiveDate time.Time, actor models.Actor) (*models.CapitalRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !domain.CanAuthorize(actor.Role) {
		return nil, fmt.Errorf("%w: role %q cannot change capital", apperrors.ErrPermission, actor.Role)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: capital amount must be positive", apperrors.ErrValidation)
	}
	if effectiveDate.IsZero() {
		return nil, fmt.Errorf("%w: effective date is required", apperrors.ErrValidation)
	}

	day := domain.Day(effectiveDate)
	var out models.CapitalRecord
	err := s.store.RunInTx(ctx, func(qtx repository.Querier) error {
		if err := qtx.LockCapitalTimeline(ctx); err != nil {
			return err
		}
		_, records, err := s.timeline(ctx, qtx)
		if err != nil {
			return err
		}
		plan := domain.PlanCapitalUpsert(capitalPoints(records), day, s.clock())

		if plan.UpdateID != uuid.Nil {
			rows, err := qtx.UpdateCapitalAmount(ctx, plan.UpdateID, amount)
			if err != nil {
				return err
			}
			if err := requireExactlyOne(rows, "update capital amount"); err != nil {
				return err
			}
			for _, r := range records {
				if r.ID == plan.UpdateID {
					out = r
				}
			}
			prev := out.Amount
			out.Amount = amount
			return s.audit.Write(ctx, qtx, auditEntityCapital, out.ID, actorRef(actor), "update", "", "",
				auditMetadata(map[string]string{"previous_amount": prev.String(), "amount": amount.String()}))
		}

		for _, id := range plan.Deactivate {
			rows, err := qtx.DeactivateCapitalRecord(ctx, id)
			if err != nil {
				return err
			}
			if err := requireExactlyOne(rows, "deactivate capital record"); err != nil {
				return err
			}
			if err := s.audit.Write(ctx, qtx, auditEntityCapital, id, actorRef(actor), "deactivate", "active", "inactive", nil); err != nil {
				return err
			}
		}

		out = models.CapitalRecord{
			ID:            uuid.New(),
			Amount:        amount,
			EffectiveDate: day,
			CurrencyCode:  s.opts.BaseCurrency,
			Active:        true,
			CreatedBy:     actor.ID,
			CreatedAt:     s.clock(),
		}
		if err := qtx.InsertCapitalRecord(ctx, out); err != nil {
			return err
		}
		meta := map[string]string{"amount": amount.String(), "effective_date": day.Format(domain.DateLayout)}
		if plan.Predecessor != uuid.Nil {
			meta["predecessor_id"] = plan.Predecessor.String()
		}
		if plan.FutureDated {
			meta["future_dated"] = "true"
		}
		return s.audit.Write(ctx, qtx, auditEntityCapital, out.ID, actorRef(actor), "create", "", "active", auditMetadata(meta))
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("capital upserted",
		zap.String("record_id", out.ID.String()),
		zap.String("amount", amount.String()),
		zap.Time("effective_date", day),
	)
	return &out, nil
}

func capitalPoints(records []models.CapitalRecord) []domain.CapitalPoint {
	points := make([]domain.CapitalPoint, 0, len(records))
	for _, r := range records {
		points = append(points, domain.CapitalPoint{
			ID:            r.ID,
			EffectiveDate: r.EffectiveDate,
			Amount:        r.Amount,
			Active:        r.Active,
			CreatedAt:     r.CreatedAt,
		})
	}
	return points
}
