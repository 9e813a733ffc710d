package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finwatch/internal/amqp"
	"finwatch/internal/core"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Salary   string `json:"salary"` // decimal string, e.g. "50000" or "50000.00"
	Timezone string `json:"timezone"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Salary   float64 `json:"salary"`
	Timezone string  `json:"timezone"`
}

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	salaryCents, err := core.ParseDecimalToCents(req.Salary)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid salary")
		return
	}

	user := core.User{
		ID:        uuid.NewString(),
		Name:      sanitizeInput(req.Name),
		Email:     sanitizeInput(req.Email),
		Salary:    core.Money{Cents: salaryCents},
		Timezone:  sanitizeInput(req.Timezone),
		CreatedAt: time.Now().UTC(),
	}
	if err := user.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// The store's unique email index remains the guard under concurrency
	if _, err := s.users.GetUserByEmail(r.Context(), user.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, core.ErrUserNotFound) {
		slog.ErrorContext(r.Context(), "Failed to check email", "error", err, "email", user.Email)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create user", "error", err, "email", user.Email)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	// Welcome email is fire-and-forget: queue it, don't block or fail
	// registration on it
	s.publishWelcomeMail(r.Context(), user)

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := callerID(r)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to load user", "error", err, "user_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (s *Server) publishWelcomeMail(ctx context.Context, user core.User) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Task queue not available, skipping welcome mail", "user_id", user.ID)
		return
	}
	msg := amqp.NewWelcomeMailTask(user.ID, user.Name, user.Email)
	if err := s.publisher.PublishTask(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to queue welcome mail",
			"error", err, "user_id", user.ID)
	}
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Salary:   u.Salary.Units(),
		Timezone: u.Timezone,
	}
}
