package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"khata/internal/core"
	"khata/internal/export"
	"khata/internal/importer"
	"khata/internal/report"
	"khata/internal/services"
)

var (
	filterMonth string
	filterFrom  string
	filterTo    string

	cumulativeFlag bool
	yearFlag       int
)

func addFilterFlags(c *cobra.Command) {
	c.Flags().StringVarP(&filterMonth, "month", "m", "", "Calendar month, YYYY-MM.")
	c.Flags().StringVar(&filterFrom, "from", "", "First day of a date range.")
	c.Flags().StringVar(&filterTo, "to", "", "Last day of a date range.")
	c.MarkFlagsMutuallyExclusive("month", "from")
	c.MarkFlagsMutuallyExclusive("month", "to")
	c.MarkFlagsRequiredTogether("from", "to")
}

// filterFromFlags builds the entry filter from --month or --from/--to.
func filterFromFlags(now time.Time) (report.Filter, error) {
	month := strings.TrimSpace(filterMonth)
	switch {
	case month != "":
		if _, _, err := report.ParseMonth(month); err != nil {
			return report.Filter{}, err
		}
		return report.Filter{Type: report.FilterMonth, Month: month}, nil
	case filterFrom != "" || filterTo != "":
		start, err := parseDateArg(filterFrom, now)
		if err != nil {
			return report.Filter{}, err
		}
		end, err := parseDateArg(filterTo, now)
		if err != nil {
			return report.Filter{}, err
		}
		if end.Before(start) {
			return report.Filter{}, errors.New("--from must not be after --to")
		}
		return report.Filter{Type: report.FilterDateRange, Start: start, End: end}, nil
	default:
		return report.Filter{Type: report.FilterNone}, nil
	}
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the totals of the selected entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := filterFromFlags(time.Now())
		if err != nil {
			return err
		}
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		var s core.Summary
		if cumulativeFlag {
			if f.Type != report.FilterMonth {
				return errors.New("--cumulative needs --month")
			}
			s, err = l.CumulativeSummary(accountFlag, f.Month)
		} else {
			var view services.SummaryView
			view, err = l.Summary(accountFlag, f)
			s = view.Summary
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, export.FilterInfo(f))
		return writeSummary(out, s, useColor(out))
	},
}

// writeSummary prints the summary lines, coloring the net result.
func writeSummary(w io.Writer, s core.Summary, color bool) error {
	net := fmt.Sprintf("%s %s", export.FormatAmount(s.NetProfitLoss.Abs()), s.NetType)
	if color {
		net = paint(net, totalColor(s.NetProfitLoss, s.NetProfitLoss))
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total Bills:\t%s\n", export.FormatAmount(s.TotalBills))
	fmt.Fprintf(tw, "Total Cash:\t%s\n", export.FormatAmount(s.TotalCash))
	fmt.Fprintf(tw, "Net:\t%s\n", net)
	fmt.Fprintf(tw, "Entries:\t%d\n", s.EntriesCount)
	if s.IsMonthlyView {
		fmt.Fprintf(tw, "Previous Total:\t%s\n", s.PreviousTotal)
		fmt.Fprintf(tw, "Current Month Total:\t%s\n", s.CurrentMonthTotal)
		fmt.Fprintf(tw, "Cumulative Total:\t%s\n", export.FormatRupees(s.CumulativeTotal))
	}
	return tw.Flush()
}

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "Print the twelve month table of a year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		year := yearFlag
		if year == 0 {
			year = time.Now().In(core.Location()).Year()
		}
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		rows, err := l.Months(accountFlag, year)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		return writeMonths(out, rows, useColor(out))
	},
}

// writeMonths prints one line per month. With color, each net total is
// shaded by its size relative to the largest month of the year.
func writeMonths(w io.Writer, rows []core.MonthRow, color bool) error {
	scale := decimal.Zero
	for _, r := range rows {
		if a := r.NetTotal.Abs(); a.GreaterThan(scale) {
			scale = a
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tEntries\tNet\tResult\tCumulative\t")
	for _, r := range rows {
		net := export.FormatAmount(r.NetTotal.Abs())
		if color && r.EntriesCount > 0 {
			net = paint(net, totalColor(r.NetTotal, scale))
		}
		result := string(r.NetType)
		if r.EntriesCount == 0 {
			result = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			report.FormatMonth(r.Year, r.Month), r.EntriesCount, net, result, r.Cumulative)
	}
	return tw.Flush()
}

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write the selected entries and their summary to a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := filterFromFlags(time.Now())
		if err != nil {
			return err
		}
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		view, err := l.Summary(accountFlag, f)
		if err != nil {
			return err
		}
		if len(view.Entries) == 0 {
			return errors.New("no entries match the filter")
		}
		raw, err := export.Excel(view.Entries, view.Summary, export.FilterInfo(f))
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], raw, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(view.Entries), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Append the rows of an xlsx, xls or csv sheet to the account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		fh, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = fh.Close() }()

		res, err := l.Import(cmd.Context(), importer.New(importer.WithLogger(logger)), fh, filepath.Base(args[0]), accountFlag)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, msg := range res.Errors {
			fmt.Fprintln(out, "  "+msg)
		}
		if !res.Success {
			return fmt.Errorf("nothing imported from %s", args[0])
		}
		fmt.Fprintf(out, "Imported %d entries, skipped %d\n", res.ImportedCount, res.SkippedCount)
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template <file.xlsx>",
	Short: "Write an empty import workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		raw, err := importer.Template()
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], raw, 0o644)
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd, monthsCmd, exportCmd, importCmd, templateCmd)
	addFilterFlags(summaryCmd)
	addFilterFlags(exportCmd)
	summaryCmd.Flags().BoolVar(&cumulativeFlag, "cumulative", false, "Report January through --month.")
	monthsCmd.Flags().IntVarP(&yearFlag, "year", "y", 0, "Year to print (default: this year).")
}
