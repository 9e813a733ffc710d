package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finwatch/internal/alert"
	appamqp "finwatch/internal/amqp"
	"finwatch/internal/config"
	"finwatch/internal/core"
	apphttp "finwatch/internal/http"
	"finwatch/internal/mail"
	"finwatch/internal/metrics"
	"finwatch/internal/stats"
	"finwatch/internal/store"
	"finwatch/internal/store/memory"
	"finwatch/internal/store/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting finwatch")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose data backend
	var repo store.Store
	switch cfg.DataBackend {
	case "sqlite":
		sqliteRepo, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		repo = sqliteRepo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		repo = memory.New()
		logger.Info("Initialized memory backend")
	}
	defer repo.Close()

	// Optional AMQP task queue for welcome mail and expense archival
	var publisher apphttp.TaskPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without task queue", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP task queue initialized", "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - welcome mail and archival are off")
	}

	statsService := stats.NewService(repo, repo)

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
	notifier := alert.NewNotifier(sender, cfg.DashboardURL, cfg.DeliveryTimeout)

	collector := metrics.NewCollector()

	hour, minute, _ := cfg.ScheduleTime()
	runner := alert.NewRunner(repo, statsService, repo, notifier, alert.Options{
		Hour:         hour,
		Minute:       minute,
		Location:     cfg.ScheduleLocation(),
		Concurrency:  cfg.AlertConcurrency,
		QueryTimeout: cfg.QueryTimeout,
		Metrics:      collector,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:          repo,
		Expenses:       repo,
		Stats:          statsService,
		Trigger:        runner,
		Publisher:      publisher,
		MetricsHandler: collector.Handler(),
		AppCtx:         ctx,
		DashboardURL:   cfg.DashboardURL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Daily alert scheduler
	go runner.Start(ctx)

	// Old alert-ledger entries carry no deduplication value once their
	// period is long past; prune them daily
	if cfg.LedgerKeepPeriods > 0 {
		go pruneLedgerLoop(ctx, repo, cfg.LedgerKeepPeriods, cfg.ScheduleLocation())
	}

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting finwatch server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func pruneLedgerLoop(ctx context.Context, ledger store.AlertLedger, keepPeriods int, loc *time.Location) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		cutoff := core.PeriodOf(time.Now().In(loc).AddDate(0, -keepPeriods, 0))
		pruned, err := ledger.PruneBefore(ctx, cutoff.Key())
		if err != nil {
			slog.ErrorContext(ctx, "Ledger prune failed", "error", err, "cutoff", cutoff.Key())
		} else if pruned > 0 {
			slog.InfoContext(ctx, "Pruned alert ledger", "entries", pruned, "cutoff", cutoff.Key())
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
