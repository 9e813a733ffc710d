package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finwatch/internal/alert"
	"finwatch/internal/core"
	"finwatch/internal/stats"
	"finwatch/internal/store/memory"
)

type fakeTrigger struct {
	err   error
	calls int
}

func (f *fakeTrigger) TriggerAsync(ctx context.Context, now time.Time) error {
	f.calls++
	return f.err
}

func newTestServer(t *testing.T) (*Server, *memory.Store, *fakeTrigger) {
	t.Helper()
	st := memory.New()
	trigger := &fakeTrigger{}
	s := NewServer(":0", Deps{
		Users:    st,
		Expenses: st,
		Stats:    stats.NewService(st, st),
		Trigger:  trigger,
	})
	return s, st, trigger
}

func seedUser(t *testing.T, st *memory.Store, salaryCents int64) core.User {
	t.Helper()
	user := core.User{
		ID:        "user-1",
		Name:      "Asha",
		Email:     "asha@example.com",
		Salary:    core.Money{Cents: salaryCents},
		Timezone:  "UTC",
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func doRequest(s *Server, method, path, userID string, body string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestRegisterUser(t *testing.T) {
	s, _, _ := newTestServer(t)

	body := `{"name":"Asha","email":"asha@example.com","salary":"50000","timezone":"UTC"}`
	rec := doRequest(s, http.MethodPost, "/api/users", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected generated user id")
	}
	if resp.Salary != 50000 {
		t.Errorf("salary = %v, want 50000", resp.Salary)
	}

	// Same email again is a conflict
	rec = doRequest(s, http.MethodPost, "/api/users", "", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate email status = %d, want 409", rec.Code)
	}
}

func TestRegisterUserRejectsInvalid(t *testing.T) {
	s, _, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad salary", `{"name":"A","email":"a@b.com","salary":"a lot"}`, http.StatusUnprocessableEntity},
		{"negative salary", `{"name":"A","email":"a@b.com","salary":"-10"}`, http.StatusUnprocessableEntity},
		{"missing email", `{"name":"A","salary":"100"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/users", "", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tc.want, rec.Body)
			}
		})
	}
}

func TestExpenseStats(t *testing.T) {
	s, st, _ := newTestServer(t)
	user := seedUser(t, st, 5_000_000) // 50,000.00

	now := time.Now().UTC()
	expenses := []struct {
		category core.Category
		cents    int64
	}{
		{core.CategoryFood, 2_000_000},
		{core.CategoryUtilities, 1_500_000},
		{core.CategoryTransport, 1_050_000},
	}
	for i, e := range expenses {
		err := st.CreateExpense(context.Background(), core.Expense{
			ID:          "e-" + string(rune('a'+i)),
			UserID:      user.ID,
			Category:    e.category,
			Amount:      core.Money{Cents: e.cents},
			Description: "seed",
			SpentAt:     now,
			CreatedAt:   now,
		})
		if err != nil {
			t.Fatalf("seed expense: %v", err)
		}
	}

	rec := doRequest(s, http.MethodGet, "/api/expenses/stats", user.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalExpenses != 45500 {
		t.Errorf("totalExpenses = %v, want 45500", resp.TotalExpenses)
	}
	if resp.RemainingBalance != 4500 {
		t.Errorf("remainingBalance = %v, want 4500", resp.RemainingBalance)
	}
	if resp.BalancePercentage != 9.0 {
		t.Errorf("balancePercentage = %v, want 9.0", resp.BalancePercentage)
	}
	if len(resp.MonthlyExpenses) != 3 {
		t.Errorf("got %d category rows, want 3", len(resp.MonthlyExpenses))
	}
}

func TestExpenseStatsRequiresIdentity(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/expenses/stats", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec = doRequest(s, http.MethodGet, "/api/expenses/stats", "nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	s, st, _ := newTestServer(t)
	user := seedUser(t, st, 5_000_000)

	body := `{"category":"food","amount":"120.50","description":"groceries"}`
	rec := doRequest(s, http.MethodPost, "/api/expenses", user.ID, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}

	var created expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Amount != 120.5 {
		t.Errorf("amount = %v, want 120.5", created.Amount)
	}

	rec = doRequest(s, http.MethodGet, "/api/expenses", user.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d: %s", rec.Code, rec.Body)
	}
	var listed []expenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Errorf("listed = %+v, want the created expense", listed)
	}
}

func TestCreateExpenseRejectsBadCategory(t *testing.T) {
	s, st, _ := newTestServer(t)
	user := seedUser(t, st, 5_000_000)

	body := `{"category":"yachts","amount":"9.99","description":"x"}`
	rec := doRequest(s, http.MethodPost, "/api/expenses", user.ID, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestManualAlertRun(t *testing.T) {
	s, _, trigger := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/admin/alerts/run", "", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body)
	}
	if trigger.calls != 1 {
		t.Errorf("trigger calls = %d, want 1", trigger.calls)
	}
	if !strings.Contains(rec.Body.String(), "started") {
		t.Errorf("body = %s, want started", rec.Body)
	}

	trigger.err = alert.ErrRunInProgress
	rec = doRequest(s, http.MethodPost, "/api/admin/alerts/run", "", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("busy status = %d, want 409: %s", rec.Code, rec.Body)
	}

	rec = doRequest(s, http.MethodGet, "/api/admin/alerts/run", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
