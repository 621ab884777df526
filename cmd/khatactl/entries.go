package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"khata/internal/core"
	"khata/internal/export"
	"khata/internal/store"
)

var (
	entryDate  string
	entryBill  string
	entryCash  string
	entryNotes string
	entryID    string

	gicValue string
)

var entryCmd = &cobra.Command{
	Use:     "entry",
	Aliases: []string{"entries"},
	Short:   "Record and list bill/cash entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an entry, or replace one with --id",
	Example: `  khatactl entry add --bill 1200+350 --notes "Sabzi mandi"
  khatactl entry add --date yesterday --cash 5,000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := entryFromFlags(time.Now())
		if err != nil {
			return err
		}
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		saved, err := l.SaveEntry(e)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s on %s: %s %s\n",
			saved.ID, saved.Date.Display(), export.FormatAmount(saved.Total.Abs()), saved.ProfitLoss)
		return nil
	},
}

// entryFromFlags builds the entry described by the add flags.
func entryFromFlags(now time.Time) (core.LedgerEntry, error) {
	d, err := parseDateArg(entryDate, now)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	bill, err := parseAmountArg(entryBill)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	cash, err := parseAmountArg(entryCash)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return core.NewLedgerEntry(entryID, accountFlag, d, bill, cash, entryNotes), nil
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the entries selected by the filter with their summary",
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
		view, err := l.Summary(accountFlag, f)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, export.FilterInfo(f))
		fmt.Fprintln(out)
		return export.Text(out, view.Entries, view.Summary, notesWidth(outputWidth(out)))
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := l.Dispatch(store.DeleteEntry{ID: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
		return nil
	},
}

var gicCmd = &cobra.Command{
	Use:   "gic",
	Short: "Record Good in Cart checkpoints and reconcile between them",
}

var gicAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a Good in Cart checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := parseDateArg(entryDate, time.Now())
		if err != nil {
			return err
		}
		v, err := parseAmountArg(gicValue)
		if err != nil {
			return err
		}
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		saved, err := l.SaveGoodInCart(core.GoodInCartEntry{
			ID:        entryID,
			Date:      d,
			Value:     v,
			Notes:     entryNotes,
			AccountID: accountFlag,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved checkpoint %s on %s: %s\n",
			saved.ID, saved.Date.Display(), export.FormatRupees(saved.Value))
		return nil
	},
}

var gicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Good in Cart checkpoints, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		gics, err := l.GoodInCart(accountFlag)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tDate\tValue\tNotes")
		for _, g := range gics {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, g.Date.Display(), export.FormatAmount(g.Value), g.Notes)
		}
		return tw.Flush()
	},
}

var gicReportCmd = &cobra.Command{
	Use:   "report <checkpoint-date>",
	Short: "Reconcile the ledger between the previous checkpoint and this one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := parseDateArg(args[0], time.Now())
		if err != nil {
			return err
		}
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		rep, err := l.GoodInCartReport(accountFlag, d.String())
		if err != nil {
			return err
		}
		if rep == nil {
			return errors.New("no Good in Cart checkpoints recorded for this account")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, export.GoodInCartInfo(rep))
		fmt.Fprintln(out)
		entries, summary := export.GoodInCartEntries(rep)
		if err := export.Text(out, entries, summary, notesWidth(outputWidth(out))); err != nil {
			return err
		}
		total := fmt.Sprintf("%s %s", export.FormatAmount(rep.OverallTotal.Abs()), rep.OverallPL)
		if useColor(out) {
			total = paint(total, totalColor(rep.OverallTotal, rep.OverallTotal))
		}
		fmt.Fprintf(out, "\nOverall: %s\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(entryCmd, gicCmd)
	entryCmd.AddCommand(entryAddCmd, entryListCmd, entryDeleteCmd)
	gicCmd.AddCommand(gicAddCmd, gicListCmd, gicReportCmd)

	for _, c := range []*cobra.Command{entryAddCmd, gicAddCmd} {
		c.Flags().StringVarP(&entryDate, "date", "d", "today", "Entry date: YYYY-MM-DD, dd/mm/yyyy, today or yesterday.")
		c.Flags().StringVarP(&entryNotes, "notes", "n", "", "Free text notes.")
		c.Flags().StringVar(&entryID, "id", "", "Replace the entry with this id instead of adding one.")
	}
	entryAddCmd.Flags().StringVarP(&entryBill, "bill", "b", "", "Bill amount, arithmetic allowed.")
	entryAddCmd.Flags().StringVarP(&entryCash, "cash", "c", "", "Cash amount, arithmetic allowed.")
	gicAddCmd.Flags().StringVarP(&gicValue, "value", "v", "", "Checkpoint value, arithmetic allowed.")
	_ = gicAddCmd.MarkFlagRequired("value")

	addFilterFlags(entryListCmd)
}
