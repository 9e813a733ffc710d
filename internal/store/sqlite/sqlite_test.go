package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finwatch/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "finwatch_test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestUserRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := core.User{
		ID:        "u1",
		Name:      "Priya",
		Email:     "priya@example.com",
		Salary:    core.Money{Cents: 5_000_000},
		Timezone:  "Asia/Kolkata",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := repo.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != u.Name || got.Email != u.Email || got.Salary.Cents != u.Salary.Cents || got.Timezone != u.Timezone {
		t.Errorf("GetUser = %+v, want %+v", got, u)
	}

	if _, err := repo.GetUser(ctx, "ghost"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	if err := repo.CreateUser(ctx, core.User{ID: "u2", Name: "X", Email: "priya@example.com"}); !errors.Is(err, core.ErrEmailTaken) {
		t.Errorf("duplicate email: got %v, want ErrEmailTaken", err)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Errorf("ListUsers = %d users, %v; want 1", len(users), err)
	}
}

func TestExpenseWindowAndTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := core.User{ID: "u1", Name: "A", Email: "a@example.com", CreatedAt: time.Now().UTC()}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	period := core.Period{Year: 2026, Month: time.August, Location: time.UTC}
	add := func(id string, cat core.Category, cents int64, at time.Time) {
		t.Helper()
		err := repo.CreateExpense(ctx, core.Expense{
			ID: id, UserID: "u1", Category: cat,
			Amount: core.Money{Cents: cents}, Description: "x",
			SpentAt: at, CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	mid := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	add("e1", core.CategoryFood, 300_000, mid)
	add("e2", core.CategoryFood, 200_000, mid.Add(time.Hour))
	add("e3", core.CategoryTransport, 4_050_000, mid)
	add("boundary-start", core.CategoryOther, 100, period.Start())
	add("boundary-end", core.CategoryOther, 100, period.End()) // excluded: next period

	expenses, err := repo.ListExpenses(ctx, "u1", period)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(expenses) != 4 {
		t.Errorf("ListExpenses = %d rows, want 4 (end boundary excluded)", len(expenses))
	}

	totals, err := repo.CategoryTotals(ctx, "u1", period)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	byCat := map[core.Category]core.CategoryTotal{}
	for _, ct := range totals {
		byCat[ct.Category] = ct
	}
	if food := byCat[core.CategoryFood]; food.Total.Cents != 500_000 || food.Count != 2 {
		t.Errorf("food = %+v", food)
	}
	if tr := byCat[core.CategoryTransport]; tr.Total.Cents != 4_050_000 || tr.Count != 1 {
		t.Errorf("transport = %+v", tr)
	}
	if other := byCat[core.CategoryOther]; other.Total.Cents != 100 || other.Count != 1 {
		t.Errorf("other = %+v (end boundary must not be counted)", other)
	}
}

func TestAlertLedger(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := core.User{ID: "u1", Name: "A", Email: "a@example.com", CreatedAt: time.Now().UTC()}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	sent, err := repo.HasSent(ctx, "u1", "2026-08")
	if err != nil || sent {
		t.Fatalf("HasSent on empty ledger = %v, %v", sent, err)
	}

	at := time.Now().UTC()
	if err := repo.RecordSent(ctx, "u1", "2026-08", at); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	// Idempotent: the duplicate insert is ignored
	if err := repo.RecordSent(ctx, "u1", "2026-08", at.Add(time.Hour)); err != nil {
		t.Fatalf("second RecordSent: %v", err)
	}

	sent, err = repo.HasSent(ctx, "u1", "2026-08")
	if err != nil || !sent {
		t.Errorf("HasSent = %v, %v, want true", sent, err)
	}
	if sent, _ := repo.HasSent(ctx, "u1", "2026-09"); sent {
		t.Error("new period must start unsent")
	}

	_ = repo.RecordSent(ctx, "u1", "2025-12", at)
	pruned, err := repo.PruneBefore(ctx, "2026-01")
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if sent, _ := repo.HasSent(ctx, "u1", "2026-08"); !sent {
		t.Error("recent entry must survive pruning")
	}
}
