package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spesefx/internal/core"
	"spesefx/internal/log"
	"spesefx/internal/sheets"
)

// Ensure interface conformance
var _ sheets.RecordWriter = (*Client)(nil)

// Client mirrors normalized expenses into a single sheet of a spreadsheet,
// one row per record.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with service account
// credentials from the environment.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	credentialsJSON, err := loadCredentials(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWithService(svc, spreadsheetID, sheetName, logger)
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func loadCredentials(ctx context.Context, logger *log.Logger) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// EnsureHeader writes the column titles to the first row when it is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1:%s1", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{headerRow()}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Wrote header row", "sheet", c.sheetName)
	return nil
}

// Append implements sheets.RecordWriter
func (c *Client) Append(ctx context.Context, e core.NormalizedExpense) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if e.ID == "" {
		return "", errors.New("record has no id")
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{recordRow(e)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	c.logger.DebugContext(ctx, "Appended expense row",
		log.FieldExpenseID, e.ID,
		"sheets_ref", ref)
	return ref, nil
}
