package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizledger/ledgerd/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerd",
		Short:   "Double-entry accounting ledger engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "ledger.yaml", "path to ledger.yaml")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAccountCommand())
	rootCmd.AddCommand(newEntryCommand())
	rootCmd.AddCommand(newPeriodCommand())
	rootCmd.AddCommand(newTrialBalanceCommand())
	rootCmd.AddCommand(newIncomeStatementCommand())
	rootCmd.AddCommand(newBalanceSheetCommand())
	rootCmd.AddCommand(newCashFlowCommand())
	rootCmd.AddCommand(newReconcileCommand())

	return rootCmd
}
