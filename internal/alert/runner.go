package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"finwatch/internal/core"
)

// ErrRunInProgress is returned when a tick is requested while another is
// still running. The caller skips; ticks are never queued.
var ErrRunInProgress = errors.New("alert run already in progress")

type (
	// UserLister supplies the per-tick user snapshot.
	UserLister interface {
		ListUsers(ctx context.Context) ([]core.User, error)
	}

	// Aggregator computes the spending summary for one user and period.
	Aggregator interface {
		AggregateFor(ctx context.Context, user core.User, p core.Period) (core.AggregateResult, error)
	}

	// Ledger tracks which (user, period) pairs were already notified.
	Ledger interface {
		HasSent(ctx context.Context, userID, periodKey string) (bool, error)
		RecordSent(ctx context.Context, userID, periodKey string, at time.Time) error
	}

	// Deliverer sends the alert message for a firing decision.
	Deliverer interface {
		Notify(ctx context.Context, user core.User, result core.AggregateResult, decision Decision) error
	}

	// Metrics records pipeline counters. All methods must be safe for
	// concurrent use.
	Metrics interface {
		RecordTick(duration time.Duration)
		RecordTickSkipped()
		RecordUserProcessed()
		RecordAlertSent()
		RecordAlertFailure(reason string)
	}
)

// Options configures the Runner.
type Options struct {
	// Hour and Minute are the local wall-clock time at which the daily
	// tick fires.
	Hour   int
	Minute int
	// Location resolves the wall-clock schedule; defaults to time.Local.
	Location *time.Location
	// Concurrency bounds the per-user fan-out inside a tick.
	Concurrency int
	// QueryTimeout bounds the aggregation read for one user.
	QueryTimeout time.Duration
	Metrics      Metrics
}

// Runner drives the alert pipeline. It is a two-state machine, Idle and
// Running: a tick that arrives while one is in flight is skipped, never
// queued, which keeps ledger check-then-record serialized per key (each
// user appears once in a tick's snapshot and ticks never overlap).
type Runner struct {
	users    UserLister
	stats    Aggregator
	ledger   Ledger
	notifier Deliverer
	opts     Options

	running atomic.Bool
}

func NewRunner(users UserLister, stats Aggregator, ledger Ledger, notifier Deliverer, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 15 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	return &Runner{
		users:    users,
		stats:    stats,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
	}
}

// Start blocks until ctx is cancelled, firing one tick at the configured
// wall-clock time each day. Ticks missed while the process was down are
// not backfilled; the next slot is computed from the current time.
func (r *Runner) Start(ctx context.Context) {
	slog.InfoContext(ctx, "Alert scheduler started",
		"hour", r.opts.Hour,
		"minute", r.opts.Minute,
		"location", r.opts.Location.String(),
		"concurrency", r.opts.Concurrency)

	for {
		next := nextRunAt(time.Now().In(r.opts.Location), r.opts.Hour, r.opts.Minute)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "Alert scheduler stopped")
			return
		case now := <-timer.C:
			if err := r.RunOnce(ctx, now); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					slog.WarnContext(ctx, "Skipping scheduled tick, previous run still in progress")
					r.opts.Metrics.RecordTickSkipped()
					continue
				}
				slog.ErrorContext(ctx, "Alert tick failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single tick synchronously. Returns ErrRunInProgress
// when another tick holds the gate.
func (r *Runner) RunOnce(ctx context.Context, now time.Time) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer r.running.Store(false)
	return r.runTick(ctx, now)
}

// TriggerAsync starts a tick in the background for the manual admin
// trigger. The gate is acquired before returning, so a concurrent tick is
// rejected rather than queued.
func (r *Runner) TriggerAsync(ctx context.Context, now time.Time) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	go func() {
		defer r.running.Store(false)
		if err := r.runTick(ctx, now); err != nil {
			slog.ErrorContext(ctx, "Manual alert tick failed", "error", err)
		}
	}()
	return nil
}

func (r *Runner) runTick(ctx context.Context, now time.Time) error {
	start := time.Now()

	// Consistent snapshot: enumerated once at tick start
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return &core.QueryError{Op: "list users", Err: err}
	}

	slog.InfoContext(ctx, "Alert tick started", "user_count", len(users))

	sem := semaphore.NewWeighted(int64(r.opts.Concurrency))
	var wg sync.WaitGroup

	for _, user := range users {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Shutting down mid-tick: abandon the rest, they are
			// retried on the next tick.
			slog.WarnContext(ctx, "Alert tick interrupted", "error", err)
			break
		}

		wg.Add(1)
		go func(u core.User) {
			defer wg.Done()
			defer sem.Release(1)
			r.processUser(ctx, u, now)
		}(user)
	}

	wg.Wait()

	duration := time.Since(start)
	r.opts.Metrics.RecordTick(duration)
	slog.InfoContext(ctx, "Alert tick completed",
		"user_count", len(users),
		"duration_ms", duration.Milliseconds())
	return nil
}

// processUser runs the aggregate -> evaluate -> ledger check -> notify ->
// ledger record sequence for one user. Every failure is logged with user
// context and swallowed so the remaining users still get processed.
func (r *Runner) processUser(ctx context.Context, user core.User, now time.Time) {
	period := core.PeriodOf(now.In(user.Location()))
	r.opts.Metrics.RecordUserProcessed()

	queryCtx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
	result, err := r.stats.AggregateFor(queryCtx, user, period)
	cancel()
	if err != nil {
		reason := "query"
		if errors.Is(err, core.ErrUserNotFound) {
			reason = "not_found"
		}
		r.opts.Metrics.RecordAlertFailure(reason)
		slog.ErrorContext(ctx, "Aggregation failed",
			"user_id", user.ID, "period", period.Key(), "error", err)
		return
	}

	decision := Evaluate(result)
	if !decision.ShouldFire {
		return
	}

	sent, err := r.ledger.HasSent(ctx, user.ID, period.Key())
	if err != nil {
		r.opts.Metrics.RecordAlertFailure("ledger")
		slog.ErrorContext(ctx, "Ledger check failed",
			"user_id", user.ID, "period", period.Key(), "error", err)
		return
	}
	if sent {
		// Already notified for this period; the condition persisting
		// does not re-fire.
		return
	}

	if err := r.notifier.Notify(ctx, user, result, decision); err != nil {
		// No ledger write on failure: the send stays retryable.
		r.opts.Metrics.RecordAlertFailure("delivery")
		slog.ErrorContext(ctx, "Alert delivery failed",
			"user_id", user.ID, "period", period.Key(), "error", err)
		return
	}

	if err := r.ledger.RecordSent(ctx, user.ID, period.Key(), now); err != nil {
		r.opts.Metrics.RecordAlertFailure("ledger")
		slog.ErrorContext(ctx, "Ledger record failed",
			"user_id", user.ID, "period", period.Key(), "error", err)
		return
	}

	r.opts.Metrics.RecordAlertSent()
	slog.InfoContext(ctx, "Low balance alert sent",
		"user_id", user.ID,
		"period", period.Key(),
		"severity", string(decision.Severity),
		"remaining_percentage", decision.Percentage)
}

// nextRunAt returns the next instant at hour:minute strictly after now,
// in now's location.
func nextRunAt(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(time.Duration) {}

func (nopMetrics) RecordTickSkipped() {}

func (nopMetrics) RecordUserProcessed() {}

func (nopMetrics) RecordAlertSent() {}

func (nopMetrics) RecordAlertFailure(string) {}
