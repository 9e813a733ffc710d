// Package sqlite persists users, expenses and the alert ledger in a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func New(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, salary_cents, timezone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Salary.Cents, u.Timezone, u.CreatedAt.UnixNano())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return core.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, salary_cents, timezone, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, salary_cents, timezone, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Salary.Cents, &u.Timezone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return u, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, salary_cents, timezone, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Salary.Cents, &u.Timezone, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CreatedAt = time.Unix(0, createdAt).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category, amount_cents, description, spent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Category), e.Amount.Cents, e.Description,
		e.SpentAt.UnixNano(), e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID string, p core.Period) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, amount_cents, description, spent_at, created_at
		 FROM expenses
		 WHERE user_id = ? AND spent_at >= ? AND spent_at < ?
		 ORDER BY spent_at DESC`,
		userID, p.Start().UnixNano(), p.End().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var category string
		var spentAt, createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &category, &e.Amount.Cents, &e.Description, &spentAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Category = core.Category(category)
		e.SpentAt = time.Unix(0, spentAt).UTC()
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) CategoryTotals(ctx context.Context, userID string, p core.Period) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents), COUNT(*)
		 FROM expenses
		 WHERE user_id = ? AND spent_at >= ? AND spent_at < ?
		 GROUP BY category
		 ORDER BY category`,
		userID, p.Start().UnixNano(), p.End().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		var category string
		if err := rows.Scan(&category, &ct.Total.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.Category = core.Category(category)
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

func (r *Repository) HasSent(ctx context.Context, userID, periodKey string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM alert_ledger WHERE user_id = ? AND period = ?`, userID, periodKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check alert ledger: %w", err)
	}
	return true, nil
}

func (r *Repository) RecordSent(ctx context.Context, userID, periodKey string, at time.Time) error {
	// INSERT OR IGNORE keeps the write idempotent under the UNIQUE index
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alert_ledger (user_id, period, sent_at) VALUES (?, ?, ?)`,
		userID, periodKey, at.UnixNano())
	if err != nil {
		return fmt.Errorf("record alert sent: %w", err)
	}
	return nil
}

func (r *Repository) PruneBefore(ctx context.Context, periodKey string) (int64, error) {
	// Period keys are zero-padded "YYYY-MM", so string order is time order
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM alert_ledger WHERE period < ?`, periodKey)
	if err != nil {
		return 0, fmt.Errorf("prune alert ledger: %w", err)
	}
	return res.RowsAffected()
}
