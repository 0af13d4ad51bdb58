package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationStatus is the lifecycle state of a bank reconciliation.
type ReconciliationStatus string

const (
	ReconInProgress ReconciliationStatus = "in_progress"
	ReconCompleted  ReconciliationStatus = "completed"
)

// BankReconciliation ties a statement period on a cash account to the
// book entries that explain it.
type BankReconciliation struct {
	ID                      uuid.UUID
	AccountID               uuid.UUID
	PeriodStart             time.Time
	PeriodEnd               time.Time
	StatementEndingBalance  decimal.Decimal
	BookBalanceStart        decimal.Decimal
	Status                  ReconciliationStatus
}

// BankStatementLine is one externally supplied bank transaction.
type BankStatementLine struct {
	ID               uuid.UUID
	ReconciliationID uuid.UUID
	Date             time.Time
	Amount           decimal.Decimal // positive = deposit, negative = withdrawal
	Description      string
	ExternalID       string
}

// Match pairs a bank statement line with a posted journal line. Matches
// reference lines, they never own them.
type Match struct {
	ID               uuid.UUID
	ReconciliationID uuid.UUID
	StatementLineID  uuid.UUID
	JournalLineID    uuid.UUID
	Auto             bool
}
