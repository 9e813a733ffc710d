// Package stats computes the per-period spending summary for a user.
// The same computation backs the dashboard read path and the alert
// pipeline; it is recomputed fresh on every call and never cached.
package stats

import (
	"context"
	"errors"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/store"
)

type Service struct {
	users    store.UserStore
	expenses store.ExpenseStore
}

func NewService(users store.UserStore, expenses store.ExpenseStore) *Service {
	return &Service{users: users, expenses: expenses}
}

// ComputeStats aggregates the user's expenses for the given period.
// Returns core.ErrUserNotFound for an unknown user and a *core.QueryError
// when the record store read fails. An empty expense set is not an error:
// totals are zero and the remaining balance equals the salary.
func (s *Service) ComputeStats(ctx context.Context, userID string, p core.Period) (core.AggregateResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return core.AggregateResult{}, err
	}
	return s.aggregate(ctx, user, p)
}

// ComputeCurrentStats aggregates the user's current calendar month,
// resolved in the user's own timezone.
func (s *Service) ComputeCurrentStats(ctx context.Context, userID string, now time.Time) (core.AggregateResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return core.AggregateResult{}, err
	}
	return s.aggregate(ctx, user, core.PeriodOf(now.In(user.Location())))
}

// AggregateFor computes stats for an already-loaded user. The alert
// runner uses this to avoid a second user lookup per tick.
func (s *Service) AggregateFor(ctx context.Context, user core.User, p core.Period) (core.AggregateResult, error) {
	return s.aggregate(ctx, user, p)
}

func (s *Service) getUser(ctx context.Context, userID string) (core.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return core.User{}, err
		}
		return core.User{}, &core.QueryError{Op: "get user", Err: err}
	}
	return user, nil
}

func (s *Service) aggregate(ctx context.Context, user core.User, p core.Period) (core.AggregateResult, error) {
	totals, err := s.expenses.CategoryTotals(ctx, user.ID, p)
	if err != nil {
		return core.AggregateResult{}, &core.QueryError{Op: "category totals", Err: err}
	}

	result := core.AggregateResult{
		UserID:     user.ID,
		Period:     p,
		Salary:     user.Salary,
		Categories: totals,
	}
	for _, ct := range totals {
		result.TotalExpenses.Cents += ct.Total.Cents
	}
	return result, nil
}
