// Package importer turns spreadsheet rows into ledger entries.
//
// A sheet is scanned for a header row carrying Date, Bill and Cash columns
// within its first rows. Every row below it is either imported, skipped as
// blank, or rejected with a "Row N: ..." message where N is the 1-based
// spreadsheet row.
package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/log"
)

const (
	// HeaderSearchRows bounds how far down the header row may appear.
	HeaderSearchRows = 5

	MsgColumnsNotFound = "Required columns not found. Excel file must have Date, Bill, and Cash columns."
	MsgNoValidData     = "No valid data found in the Excel file."
)

// Result reports the outcome of one import. Entries are ready to be
// dispatched to the store; nothing is persisted here.
type Result struct {
	Success       bool               `json:"success"`
	ImportedCount int                `json:"importedCount"`
	SkippedCount  int                `json:"skippedCount"`
	Errors        []string           `json:"errors"`
	Entries       []core.LedgerEntry `json:"entries,omitempty"`
}

type Importer struct {
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Importer)

func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(im *Importer) { im.logger = logger.WithComponent(log.ComponentImport) }
}

func New(opts ...Option) *Importer {
	im := &Importer{
		now:    time.Now,
		logger: log.DefaultLogger().WithComponent(log.ComponentImport),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

type columns struct {
	header, date, bill, cash int
}

// findColumns looks for the header in the first HeaderSearchRows rows. A
// cell containing "date" marks the header row; "bill" and "cash" columns
// may be found on any scanned row.
func findColumns(rows [][]string) (columns, bool) {
	c := columns{header: -1, date: -1, bill: -1, cash: -1}
	for i := 0; i < min(HeaderSearchRows, len(rows)); i++ {
		for j, cell := range rows[i] {
			cell = strings.ToLower(strings.TrimSpace(cell))
			switch {
			case strings.Contains(cell, "date"):
				c.header = i
				c.date = j
			case strings.Contains(cell, "bill"):
				c.bill = j
			case strings.Contains(cell, "cash"):
				c.cash = j
			}
		}
		if c.header >= 0 && c.date >= 0 && c.bill >= 0 && c.cash >= 0 {
			return c, true
		}
	}
	return c, false
}

// Parse converts rows into entries for accountID.
func (im *Importer) Parse(rows [][]string, accountID string) Result {
	res := Result{Success: true, Errors: []string{}}

	cols, ok := findColumns(rows)
	if !ok {
		res.Success = false
		res.Errors = append(res.Errors, MsgColumnsNotFound)
		return res
	}

	now := im.now()
	note := "Imported from Excel on " + core.DateOf(now.In(core.Location())).Display()
	batch := now.UnixMilli()

	for i := cols.header + 1; i < len(rows); i++ {
		row := rows[i]
		dateCell := strings.TrimSpace(cell(row, cols.date))
		billCell := strings.TrimSpace(cell(row, cols.bill))
		cashCell := strings.TrimSpace(cell(row, cols.cash))
		if dateCell == "" && billCell == "" && cashCell == "" {
			continue
		}

		date, err := parseDateCell(dateCell)
		if err != nil {
			res.reject(fmt.Sprintf("Row %d: Invalid date format %q. Must be dd/mm/yyyy.", i+1, dateCell))
			continue
		}
		bill, err := core.ParseAmount(billCell)
		if err != nil {
			res.reject(fmt.Sprintf("Row %d: Invalid bill amount %q. Must be a positive number.", i+1, billCell))
			continue
		}
		cash, err := core.ParseAmount(cashCell)
		if err != nil {
			res.reject(fmt.Sprintf("Row %d: Invalid cash amount %q. Must be a positive number.", i+1, cashCell))
			continue
		}

		id := fmt.Sprintf("import-%d-%d", batch, i)
		res.Entries = append(res.Entries, core.NewLedgerEntry(id, accountID, date, bill, cash, note))
		res.ImportedCount++
	}

	if res.ImportedCount == 0 && len(res.Errors) == 0 {
		res.Success = false
		res.Errors = append(res.Errors, MsgNoValidData)
	}

	im.logger.Info("Parsed import rows",
		log.FieldAccountID, accountID,
		log.FieldCount, res.ImportedCount,
		"skipped", res.SkippedCount,
		log.FieldSuccess, res.Success,
	)
	return res
}

func (r *Result) reject(msg string) {
	r.Errors = append(r.Errors, msg)
	r.SkippedCount++
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseDateCell accepts a dd/mm/yyyy string or a spreadsheet serial number.
func parseDateCell(s string) (core.Date, error) {
	if core.IsDisplayDate(s) {
		return core.ParseDisplayDate(s)
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	if serial < 1 {
		return core.Date{}, fmt.Errorf("%w: serial %v", core.ErrInvalidDate, serial)
	}
	return core.FromExcelSerial(serial)
}

// Amounts returns the bill and cash sums of an import, for previews.
func (r Result) Amounts() (bill, cash decimal.Decimal) {
	bill, cash = decimal.Zero, decimal.Zero
	for _, e := range r.Entries {
		bill = bill.Add(e.Bill)
		cash = cash.Add(e.Cash)
	}
	return bill, cash
}
