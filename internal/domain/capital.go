package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CapitalPoint is one record of the paid-up capital timeline.
type CapitalPoint struct {
	ID            uuid.UUID
	EffectiveDate time.Time
	Amount        decimal.Decimal
	Active        bool
	CreatedAt     time.Time
}

// CapitalTimeline answers "which capital figure is in effect on date D".
// Only active points participate; they are kept ordered by effective date.
type CapitalTimeline struct {
	points   []CapitalPoint
	fallback decimal.Decimal
}

// NewCapitalTimeline builds a timeline from records, ignoring inactive ones.
func NewCapitalTimeline(records []CapitalPoint, fallback decimal.Decimal) CapitalTimeline {
	points := make([]CapitalPoint, 0, len(records))
	for _, r := range records {
		if r.Active {
			points = append(points, r)
		}
	}
	sortCapital(points)
	return CapitalTimeline{points: points, fallback: fallback}
}

// EffectiveAt returns the active point with the greatest effective date <= date.
func (t CapitalTimeline) EffectiveAt(date time.Time) (CapitalPoint, bool) {
	day := Day(date)
	// points are ascending; ties on effective date resolve to the newest record
	idx := sort.Search(len(t.points), func(i int) bool {
		return Day(t.points[i].EffectiveDate).After(day)
	})
	if idx == 0 {
		return CapitalPoint{}, false
	}
	return t.points[idx-1], true
}

// ValueAt returns the capital amount in effect on date, or the fallback.
func (t CapitalTimeline) ValueAt(date time.Time) decimal.Decimal {
	if p, ok := t.EffectiveAt(date); ok {
		return p.Amount
	}
	return t.fallback
}

// Points returns the active points in effective-date order.
func (t CapitalTimeline) Points() []CapitalPoint {
	out := make([]CapitalPoint, len(t.points))
	copy(out, t.points)
	return out
}

// CapitalUpsertPlan describes the writes needed to place a new capital figure
// on the timeline.
type CapitalUpsertPlan struct {
	// UpdateID is set when a record already exists for the exact effective date;
	// it is updated in place and nothing else changes.
	UpdateID uuid.UUID
	// Deactivate lists records that stop being active.
	Deactivate []uuid.UUID
	// Predecessor is the active record in effect just before a backdated date.
	Predecessor uuid.UUID
	Insert      bool
	FutureDated bool
}

// PlanCapitalUpsert decides how to insert a capital figure effective on
// effectiveDate given the existing records and the current time.
//
// A future-dated figure deactivates every active record immediately. A
// backdated figure deactivates the latest active record only when that record
// takes effect after the new date. Other active records dated after the new
// date stay active and keep taking effect from their own dates, so with Jan,
// Mar and May active a Feb insert retires May and leaves Mar in place.
func PlanCapitalUpsert(records []CapitalPoint, effectiveDate, now time.Time) CapitalUpsertPlan {
	day := Day(effectiveDate)

	var exact *CapitalPoint
	for i := range records {
		r := records[i]
		if !Day(r.EffectiveDate).Equal(day) {
			continue
		}
		if exact == nil || preferExact(r, *exact) {
			exact = &records[i]
		}
	}
	if exact != nil {
		return CapitalUpsertPlan{UpdateID: exact.ID}
	}

	plan := CapitalUpsertPlan{Insert: true}
	timeline := NewCapitalTimeline(records, decimal.Zero)

	if day.After(Day(now)) {
		plan.FutureDated = true
		for _, p := range timeline.points {
			plan.Deactivate = append(plan.Deactivate, p.ID)
		}
		return plan
	}

	if prev, ok := timeline.EffectiveAt(day.AddDate(0, 0, -1)); ok {
		plan.Predecessor = prev.ID
	}
	if n := len(timeline.points); n > 0 {
		current := timeline.points[n-1]
		if Day(current.EffectiveDate).After(day) {
			plan.Deactivate = append(plan.Deactivate, current.ID)
		}
	}
	return plan
}

func preferExact(candidate, existing CapitalPoint) bool {
	if candidate.Active != existing.Active {
		return candidate.Active
	}
	return candidate.CreatedAt.After(existing.CreatedAt)
}

func sortCapital(points []CapitalPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		di, dj := Day(points[i].EffectiveDate), Day(points[j].EffectiveDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return points[i].CreatedAt.Before(points[j].CreatedAt)
	})
}
