package model

import "github.com/google/uuid"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account type naturally increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// Normal returns the normal balance side for the account type.
// Assets and expenses grow on the debit side, the rest on the credit side.
func (t AccountType) Normal() NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// Account is a node in the chart of accounts.
type Account struct {
	ID          uuid.UUID
	Code        string // unique, sortable; sibling ordering follows code
	Name        string
	Type        AccountType
	ParentID    uuid.UUID // uuid.Nil = top-level
	Active      bool
	Cash        bool // bank/cash account, eligible for reconciliation
	Description string
}

// Normal returns the account's normal balance side.
func (a Account) Normal() NormalBalance { return a.Type.Normal() }

// AccountNode is an account with its children, as returned by Hierarchy.
type AccountNode struct {
	Account
	Children []*AccountNode
}
