package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"finwatch/internal/alert"
	"finwatch/internal/core"
)

type categoryStat struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type statsResponse struct {
	MonthlyExpenses   []categoryStat `json:"monthlyExpenses"`
	TotalExpenses     float64        `json:"totalExpenses"`
	RemainingBalance  float64        `json:"remainingBalance"`
	BalancePercentage float64        `json:"balancePercentage"`
	Salary            float64        `json:"salary"`
}

// handleExpenseStats is the dashboard read path: it recomputes the
// current-month summary fresh on every call and never goes through the
// alert ledger or notifier.
func (s *Server) handleExpenseStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := callerID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := s.stats.ComputeCurrentStats(ctx, userID, time.Now())
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.ErrorContext(ctx, "Failed to compute stats", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	resp := statsResponse{
		MonthlyExpenses:   make([]categoryStat, 0, len(result.Categories)),
		TotalExpenses:     result.TotalExpenses.Units(),
		RemainingBalance:  result.RemainingBalance().Units(),
		BalancePercentage: result.RemainingPercentage(),
		Salary:            result.Salary.Units(),
	}
	for _, ct := range result.Categories {
		resp.MonthlyExpenses = append(resp.MonthlyExpenses, categoryStat{
			Category: string(ct.Category),
			Total:    ct.Total.Units(),
			Count:    ct.Count,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleAlertRun is the manual admin trigger. It runs one alert tick
// immediately, subject to the same overlap guard as the daily timer.
func (s *Server) handleAlertRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Runs on the app context: the tick must survive this request
	err := s.trigger.TriggerAsync(s.appCtx, time.Now())
	if err != nil {
		if errors.Is(err, alert.ErrRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "already-running"})
			return
		}
		slog.ErrorContext(r.Context(), "Failed to trigger alert run", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to trigger alert run")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
