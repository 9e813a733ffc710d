// Package store defines the ports for the record store and the alert
// ledger. Adapters live in the sqlite and memory subpackages.
package store

import (
	"context"
	"time"

	"finwatch/internal/core"
)

type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		// GetUser returns core.ErrUserNotFound when the id is unknown.
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		// ListUsers returns every registered user. The alert runner calls
		// this once per tick to take a consistent snapshot.
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) error
		// ListExpenses returns the user's expenses inside the half-open
		// period window, newest first.
		ListExpenses(ctx context.Context, userID string, p core.Period) ([]core.Expense, error)
		// CategoryTotals aggregates the user's expenses inside the period
		// by category. Categories without expenses are omitted.
		CategoryTotals(ctx context.Context, userID string, p core.Period) ([]core.CategoryTotal, error)
	}

	// AlertLedger records which (user, period) pairs have already received
	// a successful low-balance notification.
	AlertLedger interface {
		HasSent(ctx context.Context, userID, periodKey string) (bool, error)
		// RecordSent is idempotent: recording the same key twice keeps a
		// single entry.
		RecordSent(ctx context.Context, userID, periodKey string, at time.Time) error
		// PruneBefore removes entries older than the given period key and
		// returns how many were deleted.
		PruneBefore(ctx context.Context, periodKey string) (int64, error)
	}

	// Store is the full persistence surface used by the binaries.
	Store interface {
		UserStore
		ExpenseStore
		AlertLedger
		Close() error
	}
)
