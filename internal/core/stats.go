package core

// CategoryTotal is an amount and expense count aggregated by category.
type CategoryTotal struct {
	Category Category
	Total    Money
	Count    int
}

// AggregateResult is the derived spending summary for a user and period.
// It is recomputed fresh on every read and never persisted.
type AggregateResult struct {
	UserID        string
	Period        Period
	Salary        Money
	Categories    []CategoryTotal // only categories with at least one expense
	TotalExpenses Money
}

// RemainingBalance is salary minus total expenses, exact in cents.
// It goes negative when the user has overspent.
func (r AggregateResult) RemainingBalance() Money {
	return Money{Cents: r.Salary.Cents - r.TotalExpenses.Cents}
}

// RemainingPercentage is the remaining balance as a percentage of salary.
// Undefined for a zero salary; returns 0 there, callers must check Salary
// before treating the value as meaningful.
func (r AggregateResult) RemainingPercentage() float64 {
	if r.Salary.Cents <= 0 {
		return 0
	}
	return float64(r.RemainingBalance().Cents) / float64(r.Salary.Cents) * 100
}
