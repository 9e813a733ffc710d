// Package alert implements the low-balance alert pipeline: the threshold
// evaluator, the email notifier and the scheduled runner that ties them
// to the alert ledger.
package alert

import "finwatch/internal/core"

type Severity string

const (
	SeverityWarning  Severity = "warning"  // remaining balance at or below 10% of salary
	SeverityCritical Severity = "critical" // remaining balance at or below 5% of salary
)

// Thresholds as remaining-balance fractions of salary, exact in cents:
// remaining/salary <= 1/10 is expressed as remaining*10 <= salary.
const (
	fireDenominator     = 10
	criticalDenominator = 20
)

// Decision is the outcome of evaluating an aggregate result.
type Decision struct {
	ShouldFire bool
	Percentage float64
	Severity   Severity
}

// Evaluate maps a spending summary to an alert decision. It is pure.
//
// Fires iff salary > 0 and the remaining balance is at or below 10% of
// salary; the 10% boundary is inclusive and the comparison is done in
// integer cents, so no float rounding can flip it. A zero salary means
// insufficient data, never an error: the decision does not fire.
func Evaluate(result core.AggregateResult) Decision {
	if result.Salary.Cents <= 0 {
		return Decision{}
	}

	remaining := result.RemainingBalance().Cents
	d := Decision{Percentage: result.RemainingPercentage()}
	if remaining*fireDenominator > result.Salary.Cents {
		return d
	}

	d.ShouldFire = true
	d.Severity = SeverityWarning
	if remaining*criticalDenominator <= result.Salary.Cents {
		d.Severity = SeverityCritical
	}
	return d
}
