// Package profit computes client profitability from hourly rate, spent
// hours, and a target-hours budget. All callers share this one set of
// formulas; derived values are never stored independently of it.
package profit

import "errors"

// ErrInvalidHourlyRate is returned when the hourly rate is zero or negative.
var ErrInvalidHourlyRate = errors.New("hourly rate must be positive")

// ErrNegativeHours is returned when spent or target hours are negative.
var ErrNegativeHours = errors.New("hours cannot be negative")

// Result holds the derived profitability values for one client.
type Result struct {
	Revenue          float64 `json:"revenue"`
	ProfitabilityPct float64 `json:"profitability_percentage"`
	RemainingHours   float64 `json:"remaining_hours"`
	IsProfitable     bool    `json:"is_profitable"`
}

// Compute derives revenue, profitability percentage, remaining hours, and
// the profitable flag from the three input fields.
//
// A target of zero hours yields a percentage of exactly zero ("neutral"),
// which also counts as profitable. This conflates "no target set" with
// break-even; it is intentional and must not be changed without a matching
// data migration.
func Compute(hourlyRate, targetHours, spentHours float64) (Result, error) {
	if hourlyRate <= 0 {
		return Result{}, ErrInvalidHourlyRate
	}
	if targetHours < 0 || spentHours < 0 {
		return Result{}, ErrNegativeHours
	}

	revenue := hourlyRate * spentHours

	pct := 0.0
	if targetHours > 0 {
		targetRevenue := targetHours * hourlyRate
		pct = ((revenue / targetRevenue) - 1) * 100
	}

	result := Result{
		Revenue:          revenue,
		ProfitabilityPct: pct,
		IsProfitable:     pct >= 0,
	}

	if !result.IsProfitable {
		remaining := (targetHours*hourlyRate - revenue) / hourlyRate
		if remaining < 0 {
			remaining = 0
		}
		result.RemainingHours = remaining
	}

	return result, nil
}
