// Package export appends archived expense rows to a Google spreadsheet.
// The mailer worker feeds it from the AMQP task queue.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finwatch/internal/amqp"
	"finwatch/internal/core"
)

type SheetsArchiver struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsArchiver creates an archiver for the given spreadsheet using
// Service Account credentials from GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or Application Default Credentials.
func NewSheetsArchiver(ctx context.Context, spreadsheetID, sheetName string) (*SheetsArchiver, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		sheetName = "Expenses"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsArchiver{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); credsJSON != "" {
		return gsheet.NewService(ctx,
			goption.WithCredentialsJSON([]byte(credsJSON)),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	if credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")); credsFile != "" {
		return gsheet.NewService(ctx,
			goption.WithCredentialsFile(credsFile),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	// Fall back to Application Default Credentials
	return gsheet.NewService(ctx, goption.WithScopes(gsheet.SpreadsheetsScope))
}

// Append writes one archived expense as a row:
// date, user id, category, description, amount.
func (a *SheetsArchiver) Append(ctx context.Context, m amqp.ArchiveExpenseMessage) error {
	row := []interface{}{
		m.SpentAt.Format("2006-01-02"),
		m.UserID,
		m.Category,
		m.Description,
		core.Money{Cents: m.AmountCents}.Units(),
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, a.sheetName+"!A:E", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append archive row: %w", err)
	}
	return nil
}
