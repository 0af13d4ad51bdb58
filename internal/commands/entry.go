package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bizledger/ledgerd/internal/journal"
	"github.com/bizledger/ledgerd/internal/model"
)

func newEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Create, post, and reverse journal entries",
	}
	cmd.AddCommand(newEntryAddCommand())
	cmd.AddCommand(newEntryPostCommand())
	cmd.AddCommand(newEntryReverseCommand())
	return cmd
}

func newEntryAddCommand() *cobra.Command {
	var dateStr, description, reference, entryType string
	var debits, credits []string
	var post bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a draft entry from CODE=AMOUNT debit/credit specs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			var lines []journal.LineParams
			for _, spec := range debits {
				lp, err := parseLineSpec(a, spec, true)
				if err != nil {
					return err
				}
				lines = append(lines, lp)
			}
			for _, spec := range credits {
				lp, err := parseLineSpec(a, spec, false)
				if err != nil {
					return err
				}
				lines = append(lines, lp)
			}

			entry, err := a.journal.CreateDraft(journal.DraftParams{
				Type:        model.EntryType(entryType),
				Date:        date,
				Description: description,
				Reference:   reference,
				Lines:       lines,
			})
			if err != nil {
				return err
			}

			if post {
				posted, err := a.engine.Post(entry.ID)
				if err != nil {
					return err
				}
				fmt.Printf("Posted entry %s (%s)\n", posted.EntryNumber, posted.ID)
				return nil
			}

			fmt.Printf("Created draft entry %s\n", entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "entry date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&description, "description", "", "entry description")
	cmd.Flags().StringVar(&reference, "reference", "", "external reference")
	cmd.Flags().StringVar(&entryType, "type", string(model.EntryTypeStandard), "standard|adjusting|closing")
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit line CODE=AMOUNT (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit line CODE=AMOUNT (repeatable)")
	cmd.Flags().BoolVar(&post, "post", false, "post immediately")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func newEntryPostCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "post ENTRY_ID",
		Short: "Post a draft entry (idempotent for already-posted ids)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entryID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}

			posted, err := a.engine.Post(entryID)
			if err != nil {
				return err
			}
			fmt.Printf("Posted entry %s\n", posted.EntryNumber)
			return nil
		},
	}
}

func newEntryReverseCommand() *cobra.Command {
	var dateStr, description string

	cmd := &cobra.Command{
		Use:   "reverse ENTRY_ID",
		Short: "Reverse a posted entry with a linked reversing entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			entryID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			reversal, err := a.engine.Reverse(entryID, date, description)
			if err != nil {
				return err
			}
			fmt.Printf("Reversed by entry %s (%s)\n", reversal.EntryNumber, reversal.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "reversal date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&description, "description", "", "reversal description")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

// parseLineSpec parses "CODE=AMOUNT" into a line on the given side.
func parseLineSpec(a *app, spec string, debit bool) (journal.LineParams, error) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 {
		return journal.LineParams{}, fmt.Errorf("invalid line spec %q, want CODE=AMOUNT", spec)
	}

	acct, err := a.accounts.GetByCode(parts[0])
	if err != nil {
		return journal.LineParams{}, err
	}
	amount, err := decimal.NewFromString(parts[1])
	if err != nil {
		return journal.LineParams{}, fmt.Errorf("invalid amount %q: %w", parts[1], err)
	}

	lp := journal.LineParams{AccountID: acct.ID}
	if debit {
		lp.Debit = amount
	} else {
		lp.Credit = amount
	}
	return lp, nil
}
