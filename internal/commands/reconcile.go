package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bizledger/ledgerd/internal/bankfeed"
	"github.com/bizledger/ledgerd/internal/id"
	"github.com/bizledger/ledgerd/internal/reconcile"
)

func newReconcileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a cash account against a bank statement",
	}
	cmd.AddCommand(newReconcileCreateCommand())
	cmd.AddCommand(newReconcileImportCommand())
	cmd.AddCommand(newReconcileAutoCommand())
	cmd.AddCommand(newReconcileMatchCommand())
	cmd.AddCommand(newReconcileUnmatchCommand())
	cmd.AddCommand(newReconcileCompleteCommand())
	cmd.AddCommand(newReconcileReopenCommand())
	return cmd
}

func newReconcileCreateCommand() *cobra.Command {
	var accountCode, fromStr, toStr, endingStr string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a reconciliation for a statement period",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate(fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate(toStr)
			if err != nil {
				return err
			}
			ending, err := decimal.NewFromString(endingStr)
			if err != nil {
				return fmt.Errorf("invalid ending balance %q: %w", endingStr, err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.accounts.GetByCode(accountCode)
			if err != nil {
				return err
			}

			recon, err := a.matcher.Create(acct.ID, from, to, ending)
			if err != nil {
				return err
			}
			fmt.Printf("Created reconciliation %s (%s), book balance at start: %s\n",
				id.FormatReconciliationRef(acct.Code, to), recon.ID, money(recon.BookBalanceStart))
			return nil
		},
	}

	cmd.Flags().StringVar(&accountCode, "account", "", "cash account code (required)")
	cmd.Flags().StringVar(&fromStr, "from", "", "statement period start YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&toStr, "to", "", "statement period end YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&endingStr, "ending-balance", "", "statement ending balance (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("ending-balance")

	return cmd
}

func newReconcileImportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import RECONCILIATION_ID FILE",
		Short: "Submit a bank statement CSV to a reconciliation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reconID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid reconciliation id %q: %w", args[0], err)
			}

			parser := bankfeed.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown statement format %q", format)
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("opening statement file: %w", err)
			}
			defer f.Close()

			txns, err := parser.Parse(f)
			if err != nil {
				return err
			}

			batch := make([]reconcile.StatementLineParams, 0, len(txns))
			for _, t := range txns {
				batch = append(batch, reconcile.StatementLineParams{
					Date:        t.Date,
					Amount:      t.Amount,
					Description: t.Description,
					ExternalID:  t.ExternalID,
				})
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			lines, err := a.matcher.SubmitStatement(reconID, batch)
			if err != nil {
				return err
			}
			// Files placed in the ledger's import/ directory move to
			// import/processed/ once submitted.
			if abs, err := filepath.Abs(args[1]); err == nil &&
				filepath.Base(filepath.Dir(abs)) == "import" {
				root := filepath.Dir(filepath.Dir(abs))
				if err := bankfeed.MarkProcessed(root, filepath.Base(abs)); err != nil {
					a.log.Warn().Err(err).Msg("could not move statement to processed")
				}
			}
			fmt.Printf("Imported %d statement lines\n", len(lines))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "statement CSV format")
	return cmd
}

func newReconcileAutoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auto RECONCILIATION_ID",
		Short: "Run automatic matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reconID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid reconciliation id %q: %w", args[0], err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			outcomes, err := a.matcher.AutoMatch(reconID)
			if err != nil {
				return err
			}

			matched, ambiguous, unmatched := 0, 0, 0
			for _, o := range outcomes {
				switch {
				case o.JournalLineID != uuid.Nil:
					matched++
				case o.Err != nil:
					ambiguous++
					fmt.Printf("  %v\n", o.Err)
				default:
					unmatched++
					fmt.Printf("  unmatched: statement line %s\n", o.StatementLineID)
				}
			}
			fmt.Printf("Matched %d, ambiguous %d, unmatched %d\n", matched, ambiguous, unmatched)
			return nil
		},
	}
}

func newReconcileMatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "match RECONCILIATION_ID STATEMENT_LINE_ID JOURNAL_LINE_ID",
		Short: "Manually confirm a pairing",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 3)
			for i, s := range args {
				id, err := uuid.Parse(s)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", s, err)
				}
				ids[i] = id
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.matcher.ConfirmMatch(ids[0], ids[1], ids[2]); err != nil {
				return err
			}
			fmt.Println("Match confirmed")
			return nil
		},
	}
}

func newReconcileUnmatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch RECONCILIATION_ID STATEMENT_LINE_ID",
		Short: "Clear a pairing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reconID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid reconciliation id %q: %w", args[0], err)
			}
			lineID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid statement line id %q: %w", args[1], err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.matcher.Unmatch(reconID, lineID); err != nil {
				return err
			}
			fmt.Println("Match cleared")
			return nil
		},
	}
}

func newReconcileCompleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "complete RECONCILIATION_ID",
		Short: "Verify convergence and freeze the reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reconID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid reconciliation id %q: %w", args[0], err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.matcher.Complete(reconID); err != nil {
				return err
			}
			fmt.Println("Reconciliation completed")
			return nil
		},
	}
}

func newReconcileReopenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen RECONCILIATION_ID",
		Short: "Reopen a completed reconciliation (audited)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reconID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid reconciliation id %q: %w", args[0], err)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.matcher.Reopen(reconID); err != nil {
				return err
			}
			fmt.Println("Reconciliation reopened")
			return nil
		},
	}
}
