package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"khata/internal/store"
)

var accountCmd = &cobra.Command{
	Use:     "account",
	Aliases: []string{"accounts"},
	Short:   "List and manage accounts",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, marking the current one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		data := l.State()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "\tID\tName\tEntries\tLast used")
		for _, a := range data.Accounts {
			mark := ""
			if a.ID == data.CurrentAccountID {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", mark, a.ID, a.Name,
				len(data.EntriesForAccount(a.ID)), a.LastUsed.Format("02/01/2006 15:04"))
		}
		return tw.Flush()
	},
}

var accountAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create an account and make it current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		acc, err := l.CreateAccount(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created account %q (%s)\n", acc.Name, acc.ID)
		return nil
	},
}

var accountRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := l.Dispatch(store.RenameAccount{ID: args[0], Name: args[1]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], args[1])
		return nil
	},
}

var accountUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Switch the current account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := l.Dispatch(store.SwitchAccount{ID: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Current account is now %s\n", args[0])
		return nil
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an account with all of its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger(cmd.Context())
		if err != nil {
			return err
		}
		if _, err := l.Dispatch(store.DeleteAccount{ID: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountListCmd, accountAddCmd, accountRenameCmd, accountUseCmd, accountDeleteCmd)
}
