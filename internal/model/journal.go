package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusDraft    EntryStatus = "draft"
	StatusPosted   EntryStatus = "posted"
	StatusReversed EntryStatus = "reversed" // terminal
)

// EntryType classifies journal entries.
type EntryType string

const (
	EntryTypeStandard  EntryType = "standard"
	EntryTypeAdjusting EntryType = "adjusting"
	EntryTypeClosing   EntryType = "closing"
	EntryTypeReversing EntryType = "reversing"
)

// JournalEntry is a balanced set of lines moving value between accounts.
// EntryNumber is empty until the entry is posted.
type JournalEntry struct {
	ID           uuid.UUID
	EntryNumber  string // "JE-000042", assigned at post time, never reused
	Type         EntryType
	Status       EntryStatus
	Date         time.Time
	Description  string
	Reference    string
	Lines        []JournalEntryLine
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	ReversesID   uuid.UUID // set on a reversing entry
	ReversedByID uuid.UUID // set on the entry that has been reversed
}

// JournalEntryLine is one side of a double-entry. Exactly one of
// Debit/Credit is nonzero; both are non-negative.
type JournalEntryLine struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Reference   string
}

// ComputeTotals sums the entry's line amounts.
func (e JournalEntry) ComputeTotals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// Balanced reports whether line debits equal line credits exactly.
func (e JournalEntry) Balanced() bool {
	d, c := e.ComputeTotals()
	return d.Equal(c)
}

// InPeriod reports whether the entry date falls inside year/month.
func (e JournalEntry) InPeriod(year int, month time.Month) bool {
	return e.Date.Year() == year && e.Date.Month() == month
}
