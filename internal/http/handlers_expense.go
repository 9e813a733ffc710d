package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finwatch/internal/amqp"
	"finwatch/internal/core"
)

type createExpenseRequest struct {
	Category    string `json:"category"`
	Amount      string `json:"amount"` // decimal string
	Description string `json:"description"`
	SpentAt     string `json:"spentAt"` // RFC3339 or YYYY-MM-DD, defaults to now
}

type expenseResponse struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	SpentAt     string  `json:"spentAt"`
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateExpense(w, r)
	case http.MethodGet:
		s.handleListExpenses(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := core.ParseCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid category")
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	spentAt, err := parseSpentAt(req.SpentAt, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid spentAt")
		return
	}

	// The expense must belong to an existing user
	if _, err := s.users.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load user", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	expense := core.Expense{
		ID:          uuid.NewString(),
		UserID:      userID,
		Category:    category,
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		SpentAt:     spentAt,
		CreatedAt:   time.Now().UTC(),
	}
	if err := expense.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.expenses.CreateExpense(r.Context(), expense); err != nil {
		slog.ErrorContext(r.Context(), "Failed to save expense",
			"error", err, "user_id", userID, "amount_cents", expense.Amount.Cents)
		writeError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	// Archive asynchronously; the expense is already saved locally
	s.publishArchiveTask(r, expense)

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load user", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	now := time.Now().In(user.Location())
	year, month := parseYearMonth(r, now.Year(), int(now.Month()))
	period := core.Period{Year: year, Month: time.Month(month), Location: user.Location()}

	expenses, err := s.expenses.ListExpenses(r.Context(), userID, period)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses",
			"error", err, "user_id", userID, "period", period.Key())
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) publishArchiveTask(r *http.Request, e core.Expense) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewArchiveExpenseTask(amqp.ArchiveExpenseMessage{
		ExpenseID:   e.ID,
		UserID:      e.UserID,
		Category:    string(e.Category),
		AmountCents: e.Amount.Cents,
		Description: e.Description,
		SpentAt:     e.SpentAt,
	})
	if err := s.publisher.PublishTask(r.Context(), msg); err != nil {
		slog.ErrorContext(r.Context(), "Failed to queue archive task",
			"error", err, "expense_id", e.ID)
	}
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Category:    string(e.Category),
		Amount:      e.Amount.Units(),
		Description: e.Description,
		SpentAt:     e.SpentAt.Format(time.RFC3339),
	}
}
