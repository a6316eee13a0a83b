// Package google writes budget reports to a Google Sheets spreadsheet using
// service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cashflow/internal/core"
	ports "cashflow/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabBase       string

	mu    sync.Mutex
	known map[string]bool // tabs known to exist
}

var _ ports.BudgetWriter = (*Client)(nil)

// Credentials selects the service account key. JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

// Load returns the key bytes, falling back to GOOGLE_APPLICATION_CREDENTIALS.
func (c Credentials) Load() ([]byte, error) {
	json := strings.TrimSpace(c.JSON)
	file := strings.TrimSpace(c.File)
	if json == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case json != "":
		return []byte(json), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// New creates a client writing into spreadsheetID. Tabs are named after
// tabBase, see sheets.TabName.
func New(ctx context.Context, spreadsheetID, tabBase string, creds Credentials) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	key, err := creds.Load()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(key),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, tabBase: tabBase, known: map[string]bool{}}, nil
}

// WriteBudget clears the user's month tab and writes the report into it.
func (c *Client) WriteBudget(ctx context.Context, userID string, report core.BudgetReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := report.Month.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	tab := ports.TabName(c.tabBase, userID, report.Month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	quoted := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted+"!A:G", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", tab, err)
	}

	rows := ports.BudgetRows(report)
	rng := fmt.Sprintf("%s!A1:G%d", quoted, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	return rng, nil
}

// ensureTab adds the tab unless the spreadsheet already has it.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[tab] {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.known[sh.Properties.Title] = true
		}
	}
	if c.known[tab] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	c.known[tab] = true
	slog.InfoContext(ctx, "Created budget tab", "tab", tab)
	return nil
}

// quoteTab wraps a tab title for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
