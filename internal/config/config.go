package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Data backend
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPPassword string

	// Alert pipeline
	AlertSchedule     string // local wall-clock "HH:MM"
	AlertTimezone     string // IANA name for the schedule clock
	AlertConcurrency  int
	QueryTimeout      time.Duration
	DeliveryTimeout   time.Duration
	DashboardURL      string
	LedgerKeepPeriods int // ledger entries older than this many months are pruned

	// Sheets archive
	ArchiveSpreadsheetID string
	ArchiveSheetName     string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finwatch.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finwatch"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mail_tasks"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		AlertSchedule:     getEnv("ALERT_SCHEDULE", "09:00"),
		AlertTimezone:     getEnv("ALERT_TIMEZONE", "Local"),
		AlertConcurrency:  getEnvInt("ALERT_CONCURRENCY", 8),
		QueryTimeout:      getEnvDuration("QUERY_TIMEOUT", 15*time.Second),
		DeliveryTimeout:   getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),
		DashboardURL:      getEnv("DASHBOARD_URL", "http://localhost:3000/dashboard"),
		LedgerKeepPeriods: getEnvInt("LEDGER_KEEP_PERIODS", 12),

		ArchiveSpreadsheetID: getEnv("ARCHIVE_SPREADSHEET_ID", ""),
		ArchiveSheetName:     getEnv("ARCHIVE_SHEET_NAME", "Expenses"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if _, _, err := c.ScheduleTime(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid alert schedule '%s': %v", c.AlertSchedule, err))
	}

	if c.AlertTimezone != "" && c.AlertTimezone != "Local" {
		if _, err := time.LoadLocation(c.AlertTimezone); err != nil {
			errors = append(errors, fmt.Sprintf("invalid alert timezone '%s': %v", c.AlertTimezone, err))
		}
	}

	if c.AlertConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid alert concurrency %d: must be at least 1", c.AlertConcurrency))
	}
	if c.QueryTimeout <= 0 {
		errors = append(errors, "query timeout must be positive")
	}
	if c.DeliveryTimeout <= 0 {
		errors = append(errors, "delivery timeout must be positive")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// ScheduleTime parses AlertSchedule into hour and minute.
func (c *Config) ScheduleTime() (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(c.AlertSchedule), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", parts[1])
	}
	return hour, minute, nil
}

// ScheduleLocation resolves the timezone the daily schedule runs in.
func (c *Config) ScheduleLocation() *time.Location {
	if c.AlertTimezone == "" || c.AlertTimezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.AlertTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
