// Package google mirrors ledger events into a Google Sheets spreadsheet,
// one tab per calendar year.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/ports"
)

const defaultSheetName = "Ledger"

var _ ports.LedgerMirror = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; when both are empty
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// sheetBase is the tab name without the year prefix.
	sheetBase string
	logger    *applog.Logger
}

func sheetsLogger() *applog.Logger {
	return applog.New(applog.Config{Component: applog.ComponentSheets, Handler: slog.Default().Handler()})
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	sheetsLogger().InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return newWithService(svc, spreadsheetID, cfg.SheetName), nil
}

func newWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = defaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase, logger: sheetsLogger()}
}

func loadCredentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// AppendEntry writes ev as a new row in the tab of the entry's year and
// returns the A1 range that was written.
func (c *Client) AppendEntry(ctx context.Context, ev core.LedgerEvent) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, ev.Date.Year())
	rng := fmt.Sprintf("%s!A:J", quoteSheet(sheet))
	vr := &gsheet.ValueRange{Values: [][]any{entryRow(ev)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates == nil {
		return "", fmt.Errorf("append to sheet %s: empty update response", sheet)
	}
	ref := resp.Updates.UpdatedRange
	if row, ok := rowOf(ref); ok {
		c.logger.DebugContext(ctx, "Ledger entry appended",
			applog.FieldOperation, applog.OpAppend,
			applog.FieldEntryID, ev.EntryID,
			"sheet", sheet,
			"row", row)
	}
	return ref, nil
}

// entryRow lays out one event as Date, Kind, Entry, Account, Category,
// Counterpart, Description, Amount, Obligation, Retired.
func entryRow(ev core.LedgerEvent) []any {
	return []any{
		ev.Date.Format("2006-01-02"),
		string(ev.Kind),
		ev.EntryID,
		ev.AccountID,
		optionalID(ev.CategoryID),
		optionalID(ev.CounterpartID),
		ev.Description,
		ev.Value.String(),
		optionalID(ev.ObligationID),
		ev.Retired,
	}
}

func optionalID(id int64) any {
	if id == 0 {
		return ""
	}
	return id
}

// quoteSheet quotes tab names containing spaces for use in A1 notation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
