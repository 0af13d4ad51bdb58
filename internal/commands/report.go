package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bizledger/ledgerd/internal/id"
	"github.com/bizledger/ledgerd/internal/model"
)

func newPeriodCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Manage accounting periods",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "close YYYY-MM",
		Short: "Close a period; postings dated inside it are rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := id.ParsePeriod(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.ClosePeriod(year, month); err != nil {
				return err
			}
			fmt.Printf("Closed period %s\n", id.FormatPeriod(year, month))
			return nil
		},
	})
	return cmd
}

func newTrialBalanceCommand() *cobra.Command {
	var asOfStr string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance at a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDate(asOfStr)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			tb, err := a.balances.TrialBalance(asOf)
			if err != nil {
				return err
			}

			fmt.Printf("Trial balance as of %s\n", asOf.Format(dateFormat))
			for _, row := range tb.Rows {
				fmt.Printf("  %-6s %-30s %12s %12s\n", row.AccountCode, row.AccountName,
					money(row.Debit), money(row.Credit))
			}
			fmt.Printf("  %-37s %12s %12s\n", "TOTAL", money(tb.TotalDebits), money(tb.TotalCredits))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOfStr, "as-of", "", "date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("as-of")
	return cmd
}

func newIncomeStatementCommand() *cobra.Command {
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "income-statement",
		Short: "Print the income statement for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate(fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate(toStr)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			is, err := a.statements.IncomeStatement(from, to)
			if err != nil {
				return err
			}

			fmt.Printf("Income statement %s to %s\n", fromStr, toStr)
			printReportLine(is.Revenue, 1)
			printReportLine(is.CostOfGoodsSold, 1)
			fmt.Printf("  %-40s %12s\n", "Gross Profit", money(is.GrossProfit))
			printReportLine(is.OperatingExp, 1)
			fmt.Printf("  %-40s %12s\n", "Operating Income", money(is.OperatingIncome))
			printReportLine(is.OtherRevenue, 1)
			printReportLine(is.OtherExpenses, 1)
			fmt.Printf("  %-40s %12s\n", "Net Income", money(is.NetIncome))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "period start YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&toStr, "to", "", "period end YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newBalanceSheetCommand() *cobra.Command {
	var asOfStr string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Print the balance sheet at a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseDate(asOfStr)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			bs, err := a.statements.BalanceSheet(asOf)
			if err != nil {
				return err
			}

			fmt.Printf("Balance sheet as of %s\n", asOfStr)
			printReportLine(bs.Assets, 1)
			printReportLine(bs.Liabilities, 1)
			printReportLine(bs.Equity, 1)
			return nil
		},
	}

	cmd.Flags().StringVar(&asOfStr, "as-of", "", "date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("as-of")
	return cmd
}

func newCashFlowCommand() *cobra.Command {
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "cash-flow",
		Short: "Print the cash flow statement for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate(fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate(toStr)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			cf, err := a.statements.CashFlow(from, to)
			if err != nil {
				return err
			}

			fmt.Printf("Cash flow %s to %s\n", fromStr, toStr)
			fmt.Printf("  %-40s %12s\n", "Net Income", money(cf.NetIncome))
			printReportLine(cf.Adjustments, 1)
			fmt.Printf("  %-40s %12s\n", "Net Cash Flow", money(cf.NetCashFlow))
			fmt.Printf("  %-40s %12s\n", "Opening Cash", money(cf.OpeningCash))
			fmt.Printf("  %-40s %12s\n", "Closing Cash", money(cf.ClosingCash))
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "period start YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&toStr, "to", "", "period end YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printReportLine(line model.ReportLine, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%-40s %12s\n", indent, line.Label, money(line.Amount))
	for _, child := range line.Children {
		printReportLine(child, depth+1)
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(model.MinorUnits)
}
