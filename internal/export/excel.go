package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"khata/internal/core"
	"khata/internal/reconcile"
)

const reportSheet = "Ledger Report"

var entryHeader = []any{"Date", "Bill", "Cash", "Total", "P/L", "Notes"}

// signed keeps the minus sign in front of the grouped digits.
func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + FormatAmount(d.Abs())
	}
	return FormatAmount(d)
}

func positiveOrBlank(d decimal.Decimal) string {
	if d.IsPositive() {
		return FormatAmount(d)
	}
	return ""
}

type sheetWriter struct {
	f   *excelize.File
	row int
	err error
}

func (w *sheetWriter) add(values ...any) int {
	w.row++
	if w.err != nil || len(values) == 0 {
		return w.row
	}
	ref, _ := excelize.CoordinatesToCellName(1, w.row)
	if err := w.f.SetSheetRow(reportSheet, ref, &values); err != nil {
		w.err = fmt.Errorf("write row %d: %w", w.row, err)
	}
	return w.row
}

func (w *sheetWriter) style(fromRow, toRow int, lastCol string, s *excelize.Style) {
	if w.err != nil {
		return
	}
	id, err := w.f.NewStyle(s)
	if err != nil {
		w.err = fmt.Errorf("create style: %w", err)
		return
	}
	if err := w.f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", fromRow), fmt.Sprintf("%s%d", lastCol, toRow), id); err != nil {
		w.err = fmt.Errorf("apply style: %w", err)
	}
}

// Excel renders entries under a summary block. Monthly summaries add the
// previous, current month and cumulative lines at the top and a totals
// block at the bottom. Import provenance is stripped from notes.
func Excel(entries []core.LedgerEntry, summary core.Summary, filterInfo string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	w := &sheetWriter{f: f}

	w.add("Ledger Report")
	w.add(filterInfo)
	w.add()
	w.add("Summary")
	summaryStart := w.add("Total Bills:", FormatAmount(summary.TotalBills))
	w.add("Total Cash:", FormatAmount(summary.TotalCash))
	w.add(fmt.Sprintf("Net %s:", summary.NetType), signed(summary.NetProfitLoss))
	summaryEnd := w.add("Total Entries:", summary.EntriesCount)
	previousRow := 0
	if summary.IsMonthlyView {
		previousRow = w.add("Previous Total:", signed(summary.PreviousTotal))
		w.add("Current Month Total:", signed(summary.CurrentMonthTotal))
		summaryEnd = w.add("Cumulative Total:", FormatRupees(summary.CumulativeTotal)+" bakyya")
	}
	w.add()

	headerRow := w.add(entryHeader...)
	for _, e := range entries {
		w.add(
			e.Date.Display(),
			positiveOrBlank(e.Bill),
			positiveOrBlank(e.Cash),
			signed(e.Total),
			string(e.ProfitLoss),
			reconcile.CleanNotes(e.Notes),
		)
	}

	if summary.IsMonthlyView {
		current := summary.CurrentMonthTotal
		if current.IsZero() {
			current = summary.NetProfitLoss
		}
		w.add()
		w.add("Total", FormatAmount(summary.TotalBills), FormatAmount(summary.TotalCash), current.String())
		w.add("", "", "Previous Total", summary.PreviousTotal.String())
		w.add("bakyya", "", "Cumulative Total", FormatRupees(summary.CumulativeTotal))
	}

	w.style(1, 1, "A", &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	w.style(summaryStart, summaryEnd, "B", &excelize.Style{
		Font: &excelize.Font{Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F0F8FF"}, Pattern: 1},
	})
	w.style(summaryStart, summaryEnd, "A", &excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F0F8FF"}, Pattern: 1},
	})
	if previousRow > 0 {
		w.style(previousRow, previousRow, "B", &excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 14},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"FFF2CC"}, Pattern: 1},
		})
	}
	thin := func(side string) excelize.Border { return excelize.Border{Type: side, Color: "000000", Style: 1} }
	w.style(headerRow, headerRow, "F", &excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"EFEFEF"}, Pattern: 1},
		Border: []excelize.Border{thin("top"), thin("bottom"), thin("left"), thin("right")},
	})
	if w.err != nil {
		return nil, w.err
	}

	for col, width := range map[string]float64{"A": 12, "B": 12, "C": 12, "D": 12, "E": 10, "F": 30} {
		if err := f.SetColWidth(reportSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// GoodInCartExcel renders a reconciliation report with the ledger layout.
func GoodInCartExcel(r *reconcile.Report, accountName string) ([]byte, error) {
	entries, summary := GoodInCartEntries(r)
	return Excel(entries, summary, accountName+" - "+GoodInCartInfo(r))
}
