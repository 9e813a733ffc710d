package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finwatch/internal/core"
)

func TestUserRoundtrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := core.User{ID: "u1", Name: "A", Email: "a@example.com", Salary: core.Money{Cents: 100}}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil || got.Email != "a@example.com" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}

	if _, err := s.GetUser(ctx, "ghost"); !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	if err := s.CreateUser(ctx, core.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, core.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Errorf("GetUserByEmail = %+v, %v", byEmail, err)
	}
}

func TestCategoryTotalsRespectsWindow(t *testing.T) {
	s := New()
	ctx := context.Background()
	period := core.Period{Year: 2026, Month: time.August, Location: time.UTC}

	add := func(id string, cents int64, at time.Time) {
		t.Helper()
		err := s.CreateExpense(ctx, core.Expense{
			ID: id, UserID: "u1", Category: core.CategoryFood,
			Amount: core.Money{Cents: cents}, Description: "x", SpentAt: at,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	add("in1", 100, period.Start())
	add("in2", 200, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))
	add("out", 400, period.End()) // belongs to September

	totals, err := s.CategoryTotals(ctx, "u1", period)
	if err != nil {
		t.Fatalf("CategoryTotals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("got %d groups, want 1", len(totals))
	}
	if totals[0].Total.Cents != 300 || totals[0].Count != 2 {
		t.Errorf("totals = %+v, want 300 cents over 2 expenses", totals[0])
	}
}

func TestLedgerIdempotency(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Now()

	sent, err := s.HasSent(ctx, "u1", "2026-08")
	if err != nil || sent {
		t.Fatalf("HasSent on empty ledger = %v, %v", sent, err)
	}

	if err := s.RecordSent(ctx, "u1", "2026-08", at); err != nil {
		t.Fatalf("RecordSent: %v", err)
	}
	if err := s.RecordSent(ctx, "u1", "2026-08", at.Add(time.Hour)); err != nil {
		t.Fatalf("second RecordSent: %v", err)
	}

	if s.LedgerSize() != 1 {
		t.Errorf("ledger size = %d, want 1 after duplicate record", s.LedgerSize())
	}

	sent, err = s.HasSent(ctx, "u1", "2026-08")
	if err != nil || !sent {
		t.Errorf("HasSent = %v, %v, want true", sent, err)
	}

	// A new period naturally starts unsent
	sent, _ = s.HasSent(ctx, "u1", "2026-09")
	if sent {
		t.Error("new period must start with no ledger entry")
	}
}

func TestLedgerPruneBefore(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Now()

	_ = s.RecordSent(ctx, "u1", "2025-07", at)
	_ = s.RecordSent(ctx, "u1", "2026-07", at)
	_ = s.RecordSent(ctx, "u1", "2026-08", at)

	pruned, err := s.PruneBefore(ctx, "2026-08")
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
	if sent, _ := s.HasSent(ctx, "u1", "2026-08"); !sent {
		t.Error("current period entry must survive pruning")
	}
}
