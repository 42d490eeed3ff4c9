package domain

import "github.com/shopspring/decimal"

// LimitViolation is one breach of a correspondent bank concentration limit.
type LimitViolation struct {
	Type      string
	Limit     decimal.Decimal
	Variation decimal.Decimal
}

// LimitCheck is the concentration of one bank within its currency on a date.
type LimitCheck struct {
	Percentage decimal.Decimal
	Status     string
	Violations []LimitViolation
}

// EvaluateLimits computes balance / total * 100 and compares it against the
// optional limits. ok is false when total is zero and nothing can be said.
func EvaluateLimits(balance, total decimal.Decimal, maxLimit, minLimit *decimal.Decimal) (LimitCheck, bool) {
	if total.IsZero() {
		return LimitCheck{}, false
	}
	pct := Percentage(balance, total)
	check := LimitCheck{Percentage: pct, Status: LimitStatusWithin}

	if maxLimit != nil && pct.GreaterThan(*maxLimit) {
		check.Status = LimitStatusAboveMax
		check.Violations = append(check.Violations, LimitViolation{
			Type:      AlertMaxLimitExceeded,
			Limit:     *maxLimit,
			Variation: pct.Sub(*maxLimit),
		})
	}
	if minLimit != nil && pct.LessThan(*minLimit) {
		check.Status = LimitStatusBelowMin
		check.Violations = append(check.Violations, LimitViolation{
			Type:      AlertMinLimitViolated,
			Limit:     *minLimit,
			Variation: minLimit.Sub(pct),
		})
	}
	return check, true
}
