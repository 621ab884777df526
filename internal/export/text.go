package export

import (
	"fmt"
	"io"
	"text/tabwriter"

	"khata/internal/core"
	"khata/internal/reconcile"
)

// Text prints entries as an aligned table followed by the summary lines.
// Notes longer than maxNotes runes are cut; zero keeps them whole.
func Text(w io.Writer, entries []core.LedgerEntry, summary core.Summary, maxNotes int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tBill\tCash\tTotal\tP/L\tNotes\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			e.Date.Display(),
			positiveOrBlank(e.Bill),
			positiveOrBlank(e.Cash),
			signed(e.Total),
			e.ProfitLoss,
			truncate(reconcile.CleanNotes(e.Notes), maxNotes),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	lines := [][2]string{
		{"Total Bills", FormatAmount(summary.TotalBills)},
		{"Total Cash", FormatAmount(summary.TotalCash)},
		{"Net " + string(summary.NetType), signed(summary.NetProfitLoss)},
		{"Total Entries", fmt.Sprint(summary.EntriesCount)},
	}
	if summary.IsMonthlyView {
		lines = append(lines,
			[2]string{"Previous Total", signed(summary.PreviousTotal)},
			[2]string{"Current Month Total", signed(summary.CurrentMonthTotal)},
			[2]string{"Cumulative Total", FormatRupees(summary.CumulativeTotal)},
		)
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range lines {
		fmt.Fprintf(tw, "%s:\t%s\n", l[0], l[1])
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
