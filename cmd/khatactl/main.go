// Command khatactl manages a khata ledger from the terminal.
package main

import (
	"context"
	"fmt"
	"os"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"

	"khata/internal/cli"
	"khata/internal/log"
)

var (
	accountFlag  string
	logLevelFlag string
	noColorFlag  bool

	ledger *cli.Ledger
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "khatactl",
	Short:         "Manage a khata ledger from the command line",
	Long:          "khatactl records bills and cash, Good in Cart checkpoints and backups in the configured khata store.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger = cli.SetupLogger(logLevelFlag, os.Stderr)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if ledger == nil {
			return nil
		}
		err := ledger.Close()
		ledger = nil
		return err
	},
}

// openLedger loads the configured store on first use.
func openLedger(ctx context.Context) (*cli.Ledger, error) {
	if ledger != nil {
		return ledger, nil
	}
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if logger == nil {
		logger = cli.SetupLogger(logLevelFlag, os.Stderr)
	}
	l, err := cli.OpenLedger(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}
	ledger = l
	return ledger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountFlag, "account", "a", "", "Account id (default: the current account).")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level written to stderr.")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output.")
}

func main() {
	cli.LoadEnvFile()

	cc.Init(&cc.Config{
		RootCmd:         rootCmd,
		Headings:        cc.HiCyan + cc.Bold + cc.Underline,
		Commands:        cc.HiYellow + cc.Bold,
		Example:         cc.Italic,
		ExecName:        cc.Bold,
		Flags:           cc.Bold,
		NoExtraNewlines: true,
		NoBottomNewline: true,
	})

	ctx, stop := cli.GracefulShutdown(context.Background(), log.DefaultLogger())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ledger != nil {
			_ = ledger.Close()
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
