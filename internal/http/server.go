// Package http serves the JSON API consumed by the dashboard client and
// the admin trigger. Authentication is an external collaborator: the
// caller's identity arrives as an X-User-ID header set by the gateway.
package http

import (
	"context"
	"net/http"
	"time"

	"finwatch/internal/amqp"
	"finwatch/internal/stats"
	"finwatch/internal/store"
)

// TaskPublisher is the optional async task queue. Nil disables publishing.
type TaskPublisher interface {
	PublishTask(ctx context.Context, msg *amqp.TaskMessage) error
}

// AlertTrigger starts one alert tick in the background; returns
// alert.ErrRunInProgress when a run already holds the gate.
type AlertTrigger interface {
	TriggerAsync(ctx context.Context, now time.Time) error
}

type Server struct {
	http.Server

	users     store.UserStore
	expenses  store.ExpenseStore
	stats     *stats.Service
	trigger   AlertTrigger
	publisher TaskPublisher

	// appCtx outlives individual requests; background work started from
	// a handler (manual alert tick) runs on it instead of the request
	// context.
	appCtx       context.Context
	dashboardURL string
}

type Deps struct {
	Users          store.UserStore
	Expenses       store.ExpenseStore
	Stats          *stats.Service
	Trigger        AlertTrigger
	Publisher      TaskPublisher // may be nil
	MetricsHandler http.Handler  // may be nil
	AppCtx         context.Context
	DashboardURL   string
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		users:        deps.Users,
		expenses:     deps.Expenses,
		stats:        deps.Stats,
		trigger:      deps.Trigger,
		publisher:    deps.Publisher,
		appCtx:       deps.AppCtx,
		dashboardURL: deps.DashboardURL,
	}
	if s.appCtx == nil {
		s.appCtx = context.Background()
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/users", s.handleRegisterUser)
	mux.HandleFunc("/api/users/me", s.handleCurrentUser)
	mux.HandleFunc("/api/expenses", s.handleExpenses)
	mux.HandleFunc("/api/expenses/stats", s.handleExpenseStats)
	mux.HandleFunc("/api/admin/alerts/run", s.handleAlertRun)
	if deps.MetricsHandler != nil {
		mux.Handle("/metrics", deps.MetricsHandler)
	}

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
