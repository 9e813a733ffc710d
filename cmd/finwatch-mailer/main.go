package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appamqp "finwatch/internal/amqp"
	"finwatch/internal/config"
	"finwatch/internal/export"
	"finwatch/internal/mail"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting finwatch-mailer")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mailer worker")
		os.Exit(1)
	}

	amqpClient, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sheets archive is optional; without a spreadsheet the worker only
	// sends mail
	var archiver *export.SheetsArchiver
	if cfg.ArchiveSpreadsheetID != "" {
		archiver, err = export.NewSheetsArchiver(ctx, cfg.ArchiveSpreadsheetID, cfg.ArchiveSheetName)
		if err != nil {
			logger.Warn("Failed to initialize Sheets archiver, archive tasks will be dropped", "error", err)
			archiver = nil
		} else {
			logger.Info("Sheets archiver initialized", "spreadsheet", cfg.ArchiveSpreadsheetID)
		}
	}

	worker := &taskWorker{
		sender:       sender,
		archiver:     archiver,
		dashboardURL: cfg.DashboardURL,
		sendTimeout:  cfg.DeliveryTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Consuming task queue", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeTasks(ctx, worker.handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Mailer stopped gracefully")
}

type taskWorker struct {
	sender       mail.Sender
	archiver     *export.SheetsArchiver
	dashboardURL string
	sendTimeout  time.Duration
}

func (w *taskWorker) handle(msg *appamqp.TaskMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()

	switch msg.Kind {
	case appamqp.KindWelcomeMail:
		if msg.Mail == nil {
			return fmt.Errorf("welcome mail task without payload")
		}
		subject, body, err := mail.WelcomeEmail(msg.Mail.Name, w.dashboardURL)
		if err != nil {
			return err
		}
		if err := w.sender.Send(ctx, msg.Mail.Email, subject, body); err != nil {
			return fmt.Errorf("send welcome mail: %w", err)
		}
		slog.InfoContext(ctx, "Welcome mail sent", "user_id", msg.Mail.UserID)
		return nil

	case appamqp.KindArchiveExpense:
		if msg.Archive == nil {
			return fmt.Errorf("archive task without payload")
		}
		if w.archiver == nil {
			slog.WarnContext(ctx, "No archiver configured, dropping archive task",
				"expense_id", msg.Archive.ExpenseID)
			return nil
		}
		if err := w.archiver.Append(ctx, *msg.Archive); err != nil {
			return fmt.Errorf("archive expense: %w", err)
		}
		slog.InfoContext(ctx, "Expense archived", "expense_id", msg.Archive.ExpenseID)
		return nil

	default:
		slog.WarnContext(ctx, "Unknown task kind, dropping", "kind", msg.Kind)
		return nil
	}
}
