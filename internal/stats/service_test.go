package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/store/memory"
)

func seedUser(t *testing.T, s *memory.Store, salaryCents int64) core.User {
	t.Helper()
	u := core.User{
		ID:        "u1",
		Name:      "Priya",
		Email:     "priya@example.com",
		Salary:    core.Money{Cents: salaryCents},
		CreatedAt: time.Now(),
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedExpense(t *testing.T, s *memory.Store, category core.Category, cents int64, at time.Time) {
	t.Helper()
	e := core.Expense{
		ID:          string(category) + at.String(),
		UserID:      "u1",
		Category:    category,
		Amount:      core.Money{Cents: cents},
		Description: "seed",
		SpentAt:     at,
	}
	if err := s.CreateExpense(context.Background(), e); err != nil {
		t.Fatalf("seed expense: %v", err)
	}
}

func TestComputeStatsScenario(t *testing.T) {
	s := memory.New()
	seedUser(t, s, 5_000_000) // salary 50000

	period := core.Period{Year: 2026, Month: time.August, Location: time.UTC}
	mid := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	// 3000 + 2000 food, 40500 transport
	seedExpense(t, s, core.CategoryFood, 300_000, mid)
	seedExpense(t, s, core.CategoryFood, 200_000, mid)
	seedExpense(t, s, core.CategoryTransport, 4_050_000, mid)

	svc := NewService(s, s)
	res, err := svc.ComputeStats(context.Background(), "u1", period)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}

	if len(res.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(res.Categories))
	}
	byCat := map[core.Category]core.CategoryTotal{}
	for _, ct := range res.Categories {
		byCat[ct.Category] = ct
	}
	if food := byCat[core.CategoryFood]; food.Total.Cents != 500_000 || food.Count != 2 {
		t.Errorf("food = %+v, want total 500000 count 2", food)
	}
	if tr := byCat[core.CategoryTransport]; tr.Total.Cents != 4_050_000 || tr.Count != 1 {
		t.Errorf("transport = %+v, want total 4050000 count 1", tr)
	}

	if res.TotalExpenses.Cents != 4_550_000 {
		t.Errorf("TotalExpenses = %d, want 4550000", res.TotalExpenses.Cents)
	}
	if res.RemainingBalance().Cents != 450_000 {
		t.Errorf("RemainingBalance = %d, want 450000", res.RemainingBalance().Cents)
	}
	if res.RemainingPercentage() != 9.0 {
		t.Errorf("RemainingPercentage = %v, want 9.0", res.RemainingPercentage())
	}
}

func TestComputeStatsEmptyExpenseSet(t *testing.T) {
	s := memory.New()
	seedUser(t, s, 5_000_000)

	svc := NewService(s, s)
	period := core.Period{Year: 2026, Month: time.August, Location: time.UTC}
	res, err := svc.ComputeStats(context.Background(), "u1", period)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}

	if len(res.Categories) != 0 {
		t.Errorf("got %d categories, want none", len(res.Categories))
	}
	if res.TotalExpenses.Cents != 0 {
		t.Errorf("TotalExpenses = %d, want 0", res.TotalExpenses.Cents)
	}
	if res.RemainingBalance().Cents != 5_000_000 {
		t.Errorf("RemainingBalance = %d, want full salary", res.RemainingBalance().Cents)
	}
	if res.RemainingPercentage() != 100.0 {
		t.Errorf("RemainingPercentage = %v, want 100.0", res.RemainingPercentage())
	}
}

func TestComputeStatsUnknownUser(t *testing.T) {
	svc := NewService(memory.New(), memory.New())
	period := core.Period{Year: 2026, Month: time.August, Location: time.UTC}
	_, err := svc.ComputeStats(context.Background(), "ghost", period)
	if !errors.Is(err, core.ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestComputeStatsHalfOpenWindow(t *testing.T) {
	s := memory.New()
	seedUser(t, s, 5_000_000)

	period := core.Period{Year: 2026, Month: time.August, Location: time.UTC}
	// The first two fall inside the window; the boundary instant belongs
	// to September and the one just before Start to July.
	seedExpense(t, s, core.CategoryFood, 100_000, period.Start())
	seedExpense(t, s, core.CategoryFood, 100_000, period.End().Add(-time.Nanosecond))
	seedExpense(t, s, core.CategoryFood, 100_000, period.End())
	seedExpense(t, s, core.CategoryFood, 100_000, period.Start().Add(-time.Nanosecond))

	svc := NewService(s, s)
	res, err := svc.ComputeStats(context.Background(), "u1", period)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if res.TotalExpenses.Cents != 200_000 {
		t.Errorf("TotalExpenses = %d, want 200000 (window must be half-open)", res.TotalExpenses.Cents)
	}
}

func TestComputeCurrentStatsUsesUserTimezone(t *testing.T) {
	if _, err := time.LoadLocation("Asia/Kolkata"); err != nil {
		t.Skip("tzdata not available")
	}

	s := memory.New()
	u := core.User{
		ID: "u1", Name: "Priya", Email: "priya@example.com",
		Salary: core.Money{Cents: 5_000_000}, Timezone: "Asia/Kolkata",
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}

	// 19:00 UTC July 31st is already August in Kolkata; an expense at that
	// instant belongs to August there.
	at := time.Date(2026, 7, 31, 19, 0, 0, 0, time.UTC)
	seedExpense(t, s, core.CategoryFood, 100_000, at)

	svc := NewService(s, s)
	res, err := svc.ComputeCurrentStats(context.Background(), "u1", at)
	if err != nil {
		t.Fatalf("ComputeCurrentStats: %v", err)
	}
	if res.Period.Month != time.August {
		t.Errorf("period month = %v, want August in user's timezone", res.Period.Month)
	}
	if res.TotalExpenses.Cents != 100_000 {
		t.Errorf("TotalExpenses = %d, want 100000", res.TotalExpenses.Cents)
	}
}
