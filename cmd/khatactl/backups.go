package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
)

var backupDescription string

var backupCmd = &cobra.Command{
	Use:     "backup",
	Aliases: []string{"backups"},
	Short:   "Create, restore and move backups of the whole ledger",
}

// age renders how long ago t was, e.g. "2 days 4 hours ago".
func age(t, now time.Time) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	return durafmt.Parse(d.Truncate(time.Minute)).LimitFirstN(2).String() + " ago"
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Store a manual backup of the current ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		b, err := l.CreateBackup(cmd.Context(), backupDescription)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created backup %s (%d entries, %d accounts)\n",
			b.Metadata.ID, b.Metadata.EntryCount, b.Metadata.AccountCount)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		backups, err := l.Backups().List(cmd.Context())
		if err != nil {
			return err
		}
		now := time.Now()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTaken\tKind\tEntries\tAccounts\tDescription")
		for i := len(backups) - 1; i >= 0; i-- {
			m := backups[i].Metadata
			kind := "manual"
			if m.IsAutomatic {
				kind = "auto"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				m.ID, age(m.Timestamp, now), kind, m.EntryCount, m.AccountCount, m.Description)
		}
		return tw.Flush()
	},
}

var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		s, err := l.Backups().Stats(cmd.Context())
		if err != nil {
			return err
		}
		last := "never"
		if s.LastBackup != nil {
			last = age(*s.LastBackup, time.Now())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d backups (%d automatic, %d manual), last %s\n",
			s.Total, s.Automatic, s.Manual, last)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Replace the ledger with a stored backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		data, err := l.RestoreBackup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d entries across %d accounts\n",
			len(data.LedgerEntries), len(data.Accounts))
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		if err := l.Backups().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %s\n", args[0])
		return nil
	},
}

var backupExportCmd = &cobra.Command{
	Use:   "export <id> [file]",
	Short: "Write a stored backup to a JSON file",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		raw, name, err := l.Backups().Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			name = args[1]
		}
		if err := os.WriteFile(name, raw, 0o600); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", name)
		return nil
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add a backup file to the stored backups",
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
		b, err := l.Backups().Import(cmd.Context(), fh)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported backup %s\n", b.Metadata.ID)
		return nil
	},
}

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Move the whole ledger document in and out as JSON",
}

var documentExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the current ledger document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		raw, err := l.ExportDocument()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		}
		return os.WriteFile(args[0], raw, 0o600)
	},
}

var documentImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the ledger with a document file",
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
		data, err := l.ImportDocument(fh)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d entries across %d accounts\n",
			len(data.LedgerEntries), len(data.Accounts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd, documentCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupStatsCmd, backupRestoreCmd,
		backupDeleteCmd, backupExportCmd, backupImportCmd)
	documentCmd.AddCommand(documentExportCmd, documentImportCmd)
	backupCreateCmd.Flags().StringVar(&backupDescription, "description", "", "Backup description.")
}
