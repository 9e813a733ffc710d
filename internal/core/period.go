package core

import (
	"fmt"
	"time"
)

// Period is a half-open calendar-month window [Start, End) in a specific
// timezone. It is the unit of aggregation and alert deduplication.
type Period struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

// PeriodOf returns the period containing the given instant, interpreted in
// the instant's own location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month(), Location: t.Location()}
}

// Start is the first instant of the period (inclusive).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, p.loc())
}

// End is the first instant of the following period (exclusive).
// An expense dated exactly at End belongs to the next period.
func (p Period) End() time.Time {
	return time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, p.loc())
}

// Contains reports whether t falls inside the half-open window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

// Key is the period identity used by the alert ledger, e.g. "2026-08".
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	return p.Key()
}

func (p Period) loc() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
