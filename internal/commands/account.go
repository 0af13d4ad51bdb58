package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bizledger/ledgerd/internal/chart"
	"github.com/bizledger/ledgerd/internal/model"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(newAccountAddCommand())
	cmd.AddCommand(newAccountDeactivateCommand())
	cmd.AddCommand(newAccountListCommand())
	return cmd
}

func newAccountAddCommand() *cobra.Command {
	var code, name, accountType, parentCode string
	var cash bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			parentID := uuid.Nil
			if parentCode != "" {
				parent, err := a.accounts.GetByCode(parentCode)
				if err != nil {
					return err
				}
				parentID = parent.ID
			}

			acct, err := a.accounts.Create(chart.CreateParams{
				Code:     code,
				Name:     name,
				Type:     model.AccountType(strings.ToLower(accountType)),
				ParentID: parentID,
				Cash:     cash,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Created account %s %s (%s)\n", acct.Code, acct.Name, acct.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "account code (required)")
	cmd.Flags().StringVar(&name, "name", "", "account name (required)")
	cmd.Flags().StringVar(&accountType, "type", "", "asset|liability|equity|revenue|expense (required)")
	cmd.Flags().StringVar(&parentCode, "parent", "", "parent account code")
	cmd.Flags().BoolVar(&cash, "cash", false, "mark as a cash/bank account")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newAccountDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate CODE",
		Short: "Deactivate an account (history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			acct, err := a.accounts.GetByCode(args[0])
			if err != nil {
				return err
			}
			if err := a.accounts.Deactivate(acct.ID); err != nil {
				return err
			}

			fmt.Printf("Deactivated account %s %s\n", acct.Code, acct.Name)
			return nil
		},
	}
}

func newAccountListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the account hierarchy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			forest, err := a.accounts.Hierarchy()
			if err != nil {
				return err
			}
			printForest(forest, 0)
			return nil
		},
	}
}

func printForest(nodes []*model.AccountNode, depth int) {
	for _, n := range nodes {
		status := ""
		if !n.Active {
			status = " (inactive)"
		}
		fmt.Printf("%s%s %s [%s]%s\n", strings.Repeat("  ", depth), n.Code, n.Name, n.Type, status)
		printForest(n.Children, depth+1)
	}
}
