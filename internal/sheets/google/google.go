// Package google pushes the end-of-day tables to a Google spreadsheet, one
// tab per table suffixed with the date.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"caisse/internal/log"
	"caisse/internal/report"
	ports "caisse/internal/sheets"
)

var ErrNoCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")

// Ensure interface conformance
var _ ports.WorkbookWriter = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	// CredentialsJSON wins over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger.WithComponent(log.ComponentSheets)}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, ErrNoCredentials
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteTables adds the missing tabs in one batch, then rewrites every tab
// concurrently. It returns the spreadsheet URL.
func (c *Client) WriteTables(ctx context.Context, date string, tables []report.Table) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(tables) == 0 {
		return "", errors.New("no table to write")
	}

	existing, err := c.tabs(ctx)
	if err != nil {
		return "", err
	}
	var add []*gsheet.Request
	for _, t := range tables {
		name := ports.TabName(t.Name, date)
		if existing[name] {
			continue
		}
		add = append(add, &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: name},
		}})
	}
	if len(add) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: add}).
			Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("add tabs for %s: %w", date, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tables {
		g.Go(func() error {
			return c.writeTab(gctx, ports.TabName(t.Name, date), t)
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	ref := "https://docs.google.com/spreadsheets/d/" + c.spreadsheetID
	c.logger.InfoContext(ctx, "Spreadsheet updated", log.FieldDate, date, "tabs", len(tables), "new_tabs", len(add))
	return ref, nil
}

func (c *Client) tabs(ctx context.Context) (map[string]bool, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	out := make(map[string]bool, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			out[s.Properties.Title] = true
		}
	}
	return out, nil
}

// writeTab clears the tab first so a shorter day leaves no stale rows.
func (c *Client) writeTab(ctx context.Context, name string, t report.Table) error {
	rng := quote(name)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}
	vr := &gsheet.ValueRange{Values: values(t)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	return nil
}

func values(t report.Table) [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	for _, row := range append([][]string{t.Header}, t.Rows...) {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		out = append(out, cells)
	}
	return out
}

// quote makes a tab name usable in A1 notation.
func quote(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
