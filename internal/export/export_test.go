package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"khata/internal/core"
	"khata/internal/reconcile"
	"khata/internal/report"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"5000", "5,000"},
		{"123456", "1,23,456"},
		{"1234567.5", "12,34,567.5"},
		{"-2500", "-2,500"},
		{"10.256", "10.26"},
	}
	for _, tt := range tests {
		if got := FormatAmount(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	if got := FormatRupees(decimal.NewFromInt(-5500)); got != "-Rs.5,500.00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatRupees(decimal.NewFromInt(300)); got != "Rs.300.00" {
		t.Fatalf("got %q", got)
	}
}

func TestFilterInfo(t *testing.T) {
	tests := []struct {
		f    report.Filter
		want string
	}{
		{report.Filter{}, "All Entries"},
		{report.Filter{Type: report.FilterMonth, Month: "2024-03"}, "Month: March 2024"},
		{report.Filter{Type: report.FilterMonth, Month: "bad"}, "All Entries"},
		{report.Filter{Type: report.FilterDateRange, Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)}, "Date Range: 01/01/2024 to 31/01/2024"},
		{report.Filter{Type: report.FilterDateRange, Start: core.NewDate(2024, 1, 1)}, "All Entries"},
	}
	for _, tt := range tests {
		if got := FilterInfo(tt.f); got != tt.want {
			t.Errorf("FilterInfo(%+v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestFilenames(t *testing.T) {
	if got := ReportFilename(core.NewDate(2024, 2, 5)); got != "ledger-report-05-02-2024.xlsx" {
		t.Fatalf("got %q", got)
	}
	if got := MonthFilename(2024, 0); got != "2024-01.xlsx" {
		t.Fatalf("got %q", got)
	}
}

func sampleEntries() []core.LedgerEntry {
	return []core.LedgerEntry{
		core.NewLedgerEntry("a", "default", core.NewDate(2024, 1, 5), decimal.NewFromInt(5000), decimal.NewFromInt(3000), "Imported from Excel on 01/02/2024"),
		core.NewLedgerEntry("b", "default", core.NewDate(2024, 1, 6), decimal.Zero, decimal.NewFromInt(4000), "cash in"),
	}
}

func readSheet(t *testing.T, raw []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if name := f.GetSheetName(0); name != reportSheet {
		t.Fatalf("unexpected sheet %q", name)
	}
	rows, err := f.GetRows(reportSheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return rows
}

func findRow(rows [][]string, first string) []string {
	for _, r := range rows {
		if len(r) > 0 && r[0] == first {
			return r
		}
	}
	return nil
}

func TestExcel(t *testing.T) {
	entries := sampleEntries()
	summary := report.CalculateSummary(entries)
	raw, err := Excel(entries, summary, "Main Account - All Entries")
	if err != nil {
		t.Fatalf("excel: %v", err)
	}
	rows := readSheet(t, raw)

	if rows[0][0] != "Ledger Report" || rows[1][0] != "Main Account - All Entries" {
		t.Fatalf("unexpected title rows %v", rows[:2])
	}
	if r := findRow(rows, "Net Profit:"); r == nil || r[1] != "-2,000" {
		t.Fatalf("unexpected net row %v", r)
	}
	if r := findRow(rows, "05/01/2024"); r == nil || r[1] != "5,000" || r[3] != "2,000" || r[4] != "Loss" || len(r) > 5 && r[5] != "" {
		t.Fatalf("unexpected first entry row %v", r)
	}
	if r := findRow(rows, "06/01/2024"); r == nil || r[1] != "" || r[3] != "-4,000" || r[5] != "cash in" {
		t.Fatalf("unexpected second entry row %v", r)
	}
	if findRow(rows, "Cumulative Total:") != nil || findRow(rows, "bakyya") != nil {
		t.Fatalf("monthly lines must be absent outside the monthly view")
	}
}

func TestExcelMonthlyView(t *testing.T) {
	entries := sampleEntries()
	summary := report.CalculateSummary(entries)
	summary.IsMonthlyView = true
	summary.PreviousTotal = decimal.NewFromInt(1500)
	summary.CurrentMonthTotal = decimal.NewFromInt(-2000)
	summary.CumulativeTotal = decimal.NewFromInt(-500)

	raw, err := Excel(entries, summary, "Month: January 2024")
	if err != nil {
		t.Fatalf("excel: %v", err)
	}
	rows := readSheet(t, raw)
	if r := findRow(rows, "Cumulative Total:"); r == nil || r[1] != "-Rs.500.00 bakyya" {
		t.Fatalf("unexpected cumulative row %v", r)
	}
	if r := findRow(rows, "Total"); r == nil || r[3] != "-2000" {
		t.Fatalf("unexpected totals row %v", r)
	}
	if r := findRow(rows, "bakyya"); r == nil || r[3] != "-Rs.500.00" {
		t.Fatalf("unexpected bakyya row %v", r)
	}
}

func TestGoodInCartExcel(t *testing.T) {
	gic := []core.GoodInCartEntry{
		{ID: "g1", Date: core.NewDate(2024, 1, 1), Value: decimal.NewFromInt(1000), AccountID: "default"},
		{ID: "g2", Date: core.NewDate(2024, 1, 10), Value: decimal.NewFromInt(1500), AccountID: "default"},
	}
	rep, err := reconcile.GenerateGoodInCartReport("2024-01-10", "default", gic, sampleEntries())
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	entries, summary := GoodInCartEntries(rep)
	if entries[0].ProfitLoss != OpeningLabel || summary.EntriesCount != len(rep.Rows) {
		t.Fatalf("unexpected conversion %+v %+v", entries[0], summary)
	}

	raw, err := GoodInCartExcel(rep, "Main Account")
	if err != nil {
		t.Fatalf("excel: %v", err)
	}
	rows := readSheet(t, raw)
	if !strings.HasPrefix(rows[1][0], "Main Account - Good in Cart Report: 01/01/2024 to ") {
		t.Fatalf("unexpected info row %v", rows[1])
	}
}

func TestText(t *testing.T) {
	entries := sampleEntries()
	summary := report.CalculateSummary(entries)
	summary.IsMonthlyView = true
	summary.CumulativeTotal = decimal.NewFromInt(1200)

	var buf bytes.Buffer
	if err := Text(&buf, entries, summary, 4); err != nil {
		t.Fatalf("text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"05/01/2024", "5,000", "-4,000", "cas…", "Net Profit:", "-2,000", "Cumulative Total:", "Rs.1,200.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Imported from Excel") {
		t.Errorf("import provenance must be stripped:\n%s", out)
	}
}
