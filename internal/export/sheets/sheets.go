// Package sheets appends ledger report rows to a Google spreadsheet using a
// service account.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"khata/internal/core"
	"khata/internal/log"
	"khata/internal/reconcile"
)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New builds a client. Without extra options the service account is read
// from CredentialsJSON, CredentialsFile or GOOGLE_APPLICATION_CREDENTIALS,
// in that order.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing GOOGLE_SHEET_NAME")
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: cfg.SheetName, logger: logger}, nil
}

func credentials(ctx context.Context, cfg Config, logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		logger.DebugContext(ctx, "Reading service account credentials", log.FieldFile, file)
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return raw, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// EntryRows lays out entries as sheet rows: account, date, bill, cash,
// total, P/L and cleaned notes. Amounts stay numeric so the sheet can sum them.
func EntryRows(accountName string, entries []core.LedgerEntry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		bill, _ := e.Bill.Float64()
		cash, _ := e.Cash.Float64()
		total, _ := e.Total.Float64()
		rows = append(rows, []any{
			accountName,
			e.Date.Display(),
			bill,
			cash,
			total,
			string(e.ProfitLoss),
			reconcile.CleanNotes(e.Notes),
		})
	}
	return rows
}

// Append adds rows after the last filled row of the sheet and returns the
// updated range.
func (c *Client) Append(ctx context.Context, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}
	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to append to sheet %s: %w", c.sheetName, err)
	}
	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Rows appended", log.FieldSheetsRef, ref, log.FieldCount, len(rows))
	return ref, nil
}

// AppendEntries is Append over EntryRows.
func (c *Client) AppendEntries(ctx context.Context, accountName string, entries []core.LedgerEntry) (string, error) {
	return c.Append(ctx, EntryRows(accountName, entries))
}
