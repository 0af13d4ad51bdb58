package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrialBalanceRow is one account's balance bucketed by normal side.
type TrialBalanceRow struct {
	AccountID   uuid.UUID
	AccountCode string
	AccountName string
	AccountType AccountType
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// TrialBalance lists all active nonzero account balances at a date.
// TotalDebits must equal TotalCredits; anything else is ledger corruption.
type TrialBalance struct {
	AsOf         time.Time
	Rows         []TrialBalanceRow
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	GeneratedAt  time.Time
}

// ReportLine is a node in a financial statement tree. The tree is
// immutable once generated.
type ReportLine struct {
	Label    string
	Amount   decimal.Decimal
	IsTotal  bool
	Children []ReportLine
}

// IncomeStatement reports revenue and expense activity for a period.
type IncomeStatement struct {
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Revenue         ReportLine
	CostOfGoodsSold ReportLine
	GrossProfit     decimal.Decimal
	OperatingExp    ReportLine
	OperatingIncome decimal.Decimal
	OtherRevenue    ReportLine
	OtherExpenses   ReportLine
	NetIncome       decimal.Decimal
	GeneratedAt     time.Time
}

// BalanceSheet reports cumulative financial position at a date.
type BalanceSheet struct {
	AsOf             time.Time
	Assets           ReportLine
	Liabilities      ReportLine
	Equity           ReportLine
	RetainedEarnings decimal.Decimal
	GeneratedAt      time.Time
}

// CashFlowStatement reports cash movement for a period, indirect method.
type CashFlowStatement struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	NetIncome   decimal.Decimal
	Adjustments ReportLine
	NetCashFlow decimal.Decimal
	OpeningCash decimal.Decimal
	ClosingCash decimal.Decimal
	GeneratedAt time.Time
}
