package chart

import "github.com/bizledger/ledgerd/internal/model"

// defaultAccount is one row of the seed chart.
type defaultAccount struct {
	Code        string
	Name        string
	Type        model.AccountType
	Cash        bool
	Description string
}

// DefaultChart returns the seed chart of accounts for a new ledger.
func DefaultChart() []defaultAccount {
	return []defaultAccount{
		{Code: "1010", Name: "Business Checking", Type: model.AccountTypeAsset, Cash: true, Description: "Primary checking account"},
		{Code: "1020", Name: "Business Savings", Type: model.AccountTypeAsset, Cash: true, Description: "Savings account"},
		{Code: "1200", Name: "Accounts Receivable", Type: model.AccountTypeAsset},
		{Code: "2010", Name: "Credit Card", Type: model.AccountTypeLiability, Description: "Business credit card"},
		{Code: "2100", Name: "Accounts Payable", Type: model.AccountTypeLiability},
		{Code: "2200", Name: "Customer Credits", Type: model.AccountTypeLiability, Description: "Unapplied customer overpayments"},
		{Code: "3010", Name: "Owner's Equity", Type: model.AccountTypeEquity},
		{Code: "3900", Name: "Retained Earnings", Type: model.AccountTypeEquity},
		{Code: "4010", Name: "Service Revenue", Type: model.AccountTypeRevenue},
		{Code: "4020", Name: "Product Revenue", Type: model.AccountTypeRevenue},
		{Code: "4900", Name: "Other Revenue", Type: model.AccountTypeRevenue, Description: "Interest and misc income"},
		{Code: "5000", Name: "Cost of Goods Sold", Type: model.AccountTypeExpense},
		{Code: "6010", Name: "Advertising & Marketing", Type: model.AccountTypeExpense},
		{Code: "6020", Name: "Software & SaaS", Type: model.AccountTypeExpense, Description: "Software subscriptions"},
		{Code: "6030", Name: "Office Supplies", Type: model.AccountTypeExpense},
		{Code: "6040", Name: "Professional Services", Type: model.AccountTypeExpense, Description: "Legal, accounting, consulting"},
		{Code: "7010", Name: "Interest Expense", Type: model.AccountTypeExpense, Description: "Non-operating expense"},
	}
}

// Seed creates the default chart in an empty ledger.
func (s *Service) Seed() error {
	existing, err := s.All()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, d := range DefaultChart() {
		if _, err := s.Create(CreateParams{
			Code:        d.Code,
			Name:        d.Name,
			Type:        d.Type,
			Cash:        d.Cash,
			Description: d.Description,
		}); err != nil {
			return err
		}
	}
	return nil
}
