package posting

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// validateEntry enforces the posting invariants on an entry inside the
// transaction that will commit it:
//   - at least two lines
//   - each line carries exactly one positive side at minor-unit precision
//   - every referenced account exists and is active
//   - the entry date is not inside a closed period
//   - total debits equal total credits exactly after rounding
func validateEntry(tx *sql.Tx, entry model.JournalEntry) error {
	if len(entry.Lines) < 2 {
		return ledgererr.Validation(ledgererr.CodeEmptyEntry, entry.ID,
			fmt.Sprintf("entry has %d lines, need at least 2", len(entry.Lines)))
	}

	for i, line := range entry.Lines {
		hasDebit := line.Debit.IsPositive()
		hasCredit := line.Credit.IsPositive()
		if hasDebit == hasCredit || line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ledgererr.Validation(ledgererr.CodeInvalidLine, line.ID,
				fmt.Sprintf("line %d must have exactly one positive side", i+1))
		}
		if !model.ExactMinor(line.Debit) || !model.ExactMinor(line.Credit) {
			return ledgererr.Validation(ledgererr.CodeInvalidLine, line.ID,
				fmt.Sprintf("line %d amount exceeds %d decimal places", i+1, model.MinorUnits))
		}

		acct, err := store.GetAccount(tx, line.AccountID)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Validation(ledgererr.CodeInactiveAccount, line.AccountID,
				fmt.Sprintf("line %d references an unknown account", i+1))
		}
		if err != nil {
			return err
		}
		if !acct.Active {
			return ledgererr.Validation(ledgererr.CodeInactiveAccount, acct.ID,
				fmt.Sprintf("account %s (%s) is inactive", acct.Code, acct.Name))
		}
	}

	closed, err := store.IsPeriodClosed(tx, entry.Date.Year(), int(entry.Date.Month()))
	if err != nil {
		return err
	}
	if closed {
		return ledgererr.Conflict(ledgererr.CodeClosedPeriod, entry.ID,
			fmt.Sprintf("period %04d-%02d is closed", entry.Date.Year(), int(entry.Date.Month())))
	}

	debits, credits := entry.ComputeTotals()
	debits, credits = model.RoundMinor(debits), model.RoundMinor(credits)
	if !debits.Equal(credits) {
		return ledgererr.Unbalanced(entry.ID, debits, credits)
	}
	return nil
}

// checkHalted refuses mutations while the ledger is halted on a
// consistency failure.
func checkHalted(tx *sql.Tx) error {
	halted, reason, err := store.Halted(tx)
	if err != nil {
		return err
	}
	if halted {
		return ledgererr.Conflict(ledgererr.CodeLedgerHalted, uuid.Nil,
			"postings are halted pending investigation: "+reason)
	}
	return nil
}
