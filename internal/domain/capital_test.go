package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func point(eff string, amount int64, active bool) CapitalPoint {
	return CapitalPoint{
		ID:            uuid.New(),
		EffectiveDate: day(eff),
		Amount:        decimal.NewFromInt(amount),
		Active:        active,
		CreatedAt:     time.Now(),
	}
}

func TestCapitalTimeline_ValueAt(t *testing.T) {
	fallback := decimal.NewFromInt(42)
	tl := NewCapitalTimeline([]CapitalPoint{
		point("2024-03-01", 2000, true),
		point("2024-01-01", 1000, true),
		point("2024-02-01", 9999, false),
	}, fallback)

	assert.True(t, tl.ValueAt(day("2023-12-31")).Equal(fallback))
	assert.True(t, tl.ValueAt(day("2024-01-01")).Equal(decimal.NewFromInt(1000)))
	assert.True(t, tl.ValueAt(day("2024-02-15")).Equal(decimal.NewFromInt(1000)))
	assert.True(t, tl.ValueAt(day("2024-03-01")).Equal(decimal.NewFromInt(2000)))
	assert.True(t, tl.ValueAt(day("2025-01-01")).Equal(decimal.NewFromInt(2000)))
	assert.Len(t, tl.Points(), 2)
}

func TestPlanCapitalUpsert_ExactDateUpdatesInPlace(t *testing.T) {
	existing := point("2024-01-01", 1000, true)
	plan := PlanCapitalUpsert([]CapitalPoint{existing}, day("2024-01-01"), day("2024-06-01"))

	assert.Equal(t, existing.ID, plan.UpdateID)
	assert.False(t, plan.Insert)
	assert.Empty(t, plan.Deactivate)
}

func TestPlanCapitalUpsert_LaterBackdatedKeepsEarlier(t *testing.T) {
	// Scenario: an older active figure stays active when a newer (but past) one arrives.
	existing := point("2024-01-01", 1000, true)
	plan := PlanCapitalUpsert([]CapitalPoint{existing}, day("2024-03-01"), day("2024-06-01"))

	require.True(t, plan.Insert)
	assert.Empty(t, plan.Deactivate)
	assert.Equal(t, existing.ID, plan.Predecessor)
}

func TestPlanCapitalUpsert_EarlierBackdatedDeactivatesCurrent(t *testing.T) {
	first := point("2024-01-01", 1000, true)
	current := point("2024-03-01", 2000, true)
	plan := PlanCapitalUpsert([]CapitalPoint{first, current}, day("2024-02-01"), day("2024-06-01"))

	require.True(t, plan.Insert)
	assert.Equal(t, []uuid.UUID{current.ID}, plan.Deactivate)
	assert.Equal(t, first.ID, plan.Predecessor)
}

func TestPlanCapitalUpsert_FutureDatedDeactivatesAllActive(t *testing.T) {
	a := point("2024-01-01", 1000, true)
	b := point("2024-03-01", 2000, true)
	c := point("2023-01-01", 500, false)
	plan := PlanCapitalUpsert([]CapitalPoint{a, b, c}, day("2024-07-01"), day("2024-06-01"))

	require.True(t, plan.Insert)
	assert.True(t, plan.FutureDated)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, plan.Deactivate)
}

func TestPlanCapitalUpsert_BackdatedRetiresOnlyLatestActive(t *testing.T) {
	jan := point("2024-01-01", 1000, true)
	mar := point("2024-03-01", 3000, true)
	may := point("2024-05-01", 5000, true)
	plan := PlanCapitalUpsert([]CapitalPoint{jan, mar, may}, day("2024-02-01"), day("2024-06-01"))

	require.True(t, plan.Insert)
	assert.Equal(t, []uuid.UUID{may.ID}, plan.Deactivate)
	assert.Equal(t, jan.ID, plan.Predecessor)

	feb := point("2024-02-01", 2000, true)
	may.Active = false
	tl := NewCapitalTimeline([]CapitalPoint{jan, feb, mar, may}, decimal.Zero)
	assert.True(t, tl.ValueAt(day("2024-02-15")).Equal(decimal.NewFromInt(2000)))
	assert.True(t, tl.ValueAt(day("2024-04-01")).Equal(decimal.NewFromInt(3000)))
	assert.True(t, tl.ValueAt(day("2024-06-01")).Equal(decimal.NewFromInt(3000)))
}
