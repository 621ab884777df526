// Package export renders ledger entries and reports for people: xlsx
// workbooks, a plain text table, and rows for a Google spreadsheet.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"khata/internal/core"
	"khata/internal/reconcile"
	"khata/internal/report"
)

// OpeningLabel replaces the Good in Cart label on exported report rows.
const OpeningLabel = reconcile.OpeningNote

var printer = message.NewPrinter(language.MustParse("en-IN"))

// FormatAmount renders an amount with Indian digit grouping (12,34,567.5)
// and at most two decimals.
func FormatAmount(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2)))
}

// FormatRupees renders the cumulative style "Rs.12,345.00", keeping the sign.
func FormatRupees(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-Rs." + FormatAmount(d.Abs()) + ".00"
	}
	return "Rs." + FormatAmount(d) + ".00"
}

// FilterInfo describes the active filter the way report headers print it.
func FilterInfo(f report.Filter) string {
	switch f.Type {
	case report.FilterDateRange:
		if !f.Start.IsZero() && !f.End.IsZero() {
			return fmt.Sprintf("Date Range: %s to %s", f.Start.Display(), f.End.Display())
		}
	case report.FilterMonth:
		if y, m, err := report.ParseMonth(f.Month); err == nil {
			return fmt.Sprintf("Month: %s %d", time.Month(m+1), y)
		}
	}
	return "All Entries"
}

// GoodInCartInfo is the header line of an exported Good in Cart report.
func GoodInCartInfo(r *reconcile.Report) string {
	return fmt.Sprintf("Good in Cart Report: %s to %s", r.StartDate.Display(), r.EndDate.Display())
}

// ReportFilename names a ledger workbook exported on day.
func ReportFilename(day core.Date) string {
	return fmt.Sprintf("ledger-report-%02d-%02d-%04d.xlsx", day.Day, int(day.Month), day.Year)
}

// MonthFilename is the worker's per month workbook name, YYYY-MM.xlsx.
func MonthFilename(year, month0 int) string {
	return report.FormatMonth(year, month0) + ".xlsx"
}

// GoodInCartEntries turns report rows into printable entries and a summary
// over them. Opening rows carry the Hindi inventory label.
func GoodInCartEntries(r *reconcile.Report) ([]core.LedgerEntry, core.Summary) {
	entries := make([]core.LedgerEntry, 0, len(r.Rows))
	summary := core.Summary{
		TotalBills:    decimal.Zero,
		TotalCash:     decimal.Zero,
		NetProfitLoss: r.OverallTotal,
		NetType:       r.OverallPL,
		EntriesCount:  len(r.Rows),
	}
	for _, row := range r.Rows {
		label := row.ProfitLoss
		if label == core.GoodInCartLabel {
			label = OpeningLabel
		}
		entries = append(entries, core.LedgerEntry{
			ID:         row.ID,
			Date:       row.Date,
			Bill:       row.Bill,
			Cash:       row.Cash,
			Total:      row.Total,
			ProfitLoss: label,
			Notes:      row.Notes,
		})
		summary.TotalBills = summary.TotalBills.Add(row.Bill)
		summary.TotalCash = summary.TotalCash.Add(row.Cash)
	}
	return entries, summary
}
