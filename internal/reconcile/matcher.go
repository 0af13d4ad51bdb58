// Package reconcile matches externally supplied bank statement lines
// against posted journal lines on a cash account. Automatic matching
// only commits when exactly one candidate fits; ties are left for manual
// resolution rather than guessed.
package reconcile

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/ledgerd/internal/balance"
	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// DefaultDayWindow is the matching window in business days around a
// statement line's date.
const DefaultDayWindow = 5

// AuditSink receives fire-and-forget notifications of reconciliation
// transitions.
type AuditSink interface {
	Event(action string, entityID uuid.UUID, details string)
}

// Matcher runs bank reconciliations.
type Matcher struct {
	store     *store.Store
	balances  *balance.Calculator
	audit     AuditSink
	dayWindow int
}

// NewMatcher creates a Matcher with the default business-day window.
// audit may be nil.
func NewMatcher(st *store.Store, bc *balance.Calculator, audit AuditSink) *Matcher {
	return &Matcher{store: st, balances: bc, audit: audit, dayWindow: DefaultDayWindow}
}

// SetDayWindow overrides the matching window, in business days.
func (m *Matcher) SetDayWindow(days int) { m.dayWindow = days }

// Create opens a reconciliation for a statement period on a cash
// account. The starting book balance is captured as of the day before
// the period starts.
func (m *Matcher) Create(accountID uuid.UUID, periodStart, periodEnd time.Time, statementEndingBalance decimal.Decimal) (model.BankReconciliation, error) {
	var acct model.Account
	err := m.store.Read(func(tx *sql.Tx) error {
		var err error
		acct, err = store.GetAccount(tx, accountID)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, accountID, "account does not exist")
		}
		if err != nil {
			return err
		}
		// Bank statements describe one real account, so only leaf
		// accounts reconcile; a parent's balance mixes its children.
		hasChildren, err := store.AccountHasChildren(tx, accountID)
		if err != nil {
			return err
		}
		if hasChildren {
			return ledgererr.Validation(ledgererr.CodeNotCashAccount, accountID,
				fmt.Sprintf("account %s has sub-accounts; reconcile a leaf account", acct.Code))
		}
		return nil
	})
	if err != nil {
		return model.BankReconciliation{}, err
	}
	if !acct.Cash || !acct.Active {
		return model.BankReconciliation{}, ledgererr.Validation(ledgererr.CodeNotCashAccount, accountID,
			fmt.Sprintf("account %s is not an active cash account", acct.Code))
	}

	bookStart, err := m.balances.AccountBalance(accountID, periodStart.AddDate(0, 0, -1))
	if err != nil {
		return model.BankReconciliation{}, err
	}

	recon := model.BankReconciliation{
		ID:                     uuid.New(),
		AccountID:              accountID,
		PeriodStart:            periodStart,
		PeriodEnd:              periodEnd,
		StatementEndingBalance: statementEndingBalance,
		BookBalanceStart:       bookStart,
		Status:                 model.ReconInProgress,
	}
	err = m.store.Transaction(func(tx *sql.Tx) error {
		return store.InsertReconciliation(tx, recon)
	})
	if err != nil {
		return model.BankReconciliation{}, err
	}
	return recon, nil
}

// StatementLineParams is one bank transaction in a submitted batch.
type StatementLineParams struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	ExternalID  string
}

// SubmitStatement stores a batch of bank transactions on an in-progress
// reconciliation.
func (m *Matcher) SubmitStatement(reconciliationID uuid.UUID, batch []StatementLineParams) ([]model.BankStatementLine, error) {
	lines := make([]model.BankStatementLine, 0, len(batch))
	for _, p := range batch {
		lines = append(lines, model.BankStatementLine{
			ID:               uuid.New(),
			ReconciliationID: reconciliationID,
			Date:             p.Date,
			Amount:           p.Amount,
			Description:      p.Description,
			ExternalID:       p.ExternalID,
		})
	}

	err := m.store.Transaction(func(tx *sql.Tx) error {
		recon, err := getRecon(tx, reconciliationID)
		if err != nil {
			return err
		}
		if recon.Status == model.ReconCompleted {
			return ledgererr.Conflict(ledgererr.CodeReconCompleted, reconciliationID,
				"completed reconciliations are immutable; reopen first")
		}
		return store.InsertStatementLines(tx, lines)
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// MatchOutcome describes one statement line's automatic matching result.
// Err carries an ambiguous_match error when several journal lines fit
// and none was committed.
type MatchOutcome struct {
	StatementLineID uuid.UUID
	JournalLineID   uuid.UUID // set when matched
	Candidates      int
	Err             error
}

// AutoMatch attempts to pair every unmatched statement line with a
// journal line on the account inside the statement period: the amounts
// must agree to the minor unit and the dates fall within the
// business-day window. A single candidate matches; several leave the line for manual
// resolution.
func (m *Matcher) AutoMatch(reconciliationID uuid.UUID) ([]MatchOutcome, error) {
	var outcomes []MatchOutcome
	err := m.store.Transaction(func(tx *sql.Tx) error {
		recon, err := getRecon(tx, reconciliationID)
		if err != nil {
			return err
		}
		if recon.Status == model.ReconCompleted {
			return ledgererr.Conflict(ledgererr.CodeReconCompleted, reconciliationID,
				"completed reconciliations are immutable; reopen first")
		}

		stmtLines, err := store.ListStatementLines(tx, reconciliationID)
		if err != nil {
			return err
		}
		matches, err := store.ListMatches(tx, reconciliationID)
		if err != nil {
			return err
		}
		bookLines, err := store.LinesByAccount(tx, recon.AccountID, recon.PeriodStart, recon.PeriodEnd, true)
		if err != nil {
			return err
		}

		matchedStmt := make(map[uuid.UUID]bool)
		matchedBook := make(map[uuid.UUID]bool)
		for _, mt := range matches {
			matchedStmt[mt.StatementLineID] = true
			matchedBook[mt.JournalLineID] = true
		}

		outcomes = nil
		for _, sl := range stmtLines {
			if matchedStmt[sl.ID] {
				continue
			}

			var candidates []store.AccountLine
			for _, bl := range bookLines {
				if matchedBook[bl.Line.ID] {
					continue
				}
				if !amountsAgree(sl.Amount, bookMovement(bl.Line)) {
					continue
				}
				if businessDaysApart(sl.Date, bl.EntryDate) > m.dayWindow {
					continue
				}
				candidates = append(candidates, bl)
			}

			outcome := MatchOutcome{StatementLineID: sl.ID, Candidates: len(candidates)}
			switch len(candidates) {
			case 0:
				// left unmatched
			case 1:
				match := model.Match{
					ID:               uuid.New(),
					ReconciliationID: reconciliationID,
					StatementLineID:  sl.ID,
					JournalLineID:    candidates[0].Line.ID,
					Auto:             true,
				}
				if err := store.InsertMatch(tx, match); err != nil {
					return err
				}
				matchedBook[candidates[0].Line.ID] = true
				outcome.JournalLineID = candidates[0].Line.ID
			default:
				outcome.Err = ledgererr.Reconciliation(ledgererr.CodeAmbiguousMatch, sl.ID,
					fmt.Sprintf("%d journal lines match within tolerance", len(candidates)))
			}
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// ConfirmMatch records a manual pairing, overriding automatic results
// for the statement line.
func (m *Matcher) ConfirmMatch(reconciliationID, statementLineID, journalLineID uuid.UUID) error {
	return m.store.Transaction(func(tx *sql.Tx) error {
		recon, err := getRecon(tx, reconciliationID)
		if err != nil {
			return err
		}
		if recon.Status == model.ReconCompleted {
			return ledgererr.Conflict(ledgererr.CodeReconCompleted, reconciliationID,
				"completed reconciliations are immutable; reopen first")
		}
		if err := store.DeleteMatch(tx, reconciliationID, statementLineID); err != nil {
			return err
		}
		return store.InsertMatch(tx, model.Match{
			ID:               uuid.New(),
			ReconciliationID: reconciliationID,
			StatementLineID:  statementLineID,
			JournalLineID:    journalLineID,
			Auto:             false,
		})
	})
}

// Unmatch clears the pairing for a statement line.
func (m *Matcher) Unmatch(reconciliationID, statementLineID uuid.UUID) error {
	return m.store.Transaction(func(tx *sql.Tx) error {
		recon, err := getRecon(tx, reconciliationID)
		if err != nil {
			return err
		}
		if recon.Status == model.ReconCompleted {
			return ledgererr.Conflict(ledgererr.CodeReconCompleted, reconciliationID,
				"completed reconciliations are immutable; reopen first")
		}
		return store.DeleteMatch(tx, reconciliationID, statementLineID)
	})
}

// Complete verifies the reconciliation converges and freezes it: every
// statement line must be matched and the starting book balance plus the
// matched book movement must equal the statement ending balance to the
// minor unit.
func (m *Matcher) Complete(reconciliationID uuid.UUID) error {
	err := m.store.Transaction(func(tx *sql.Tx) error {
		recon, err := getRecon(tx, reconciliationID)
		if err != nil {
			return err
		}
		if recon.Status == model.ReconCompleted {
			return nil
		}

		stmtLines, err := store.ListStatementLines(tx, reconciliationID)
		if err != nil {
			return err
		}
		matches, err := store.ListMatches(tx, reconciliationID)
		if err != nil {
			return err
		}

		matchedStmt := make(map[uuid.UUID]bool)
		matchedBook := make(map[uuid.UUID]bool)
		for _, mt := range matches {
			matchedStmt[mt.StatementLineID] = true
			matchedBook[mt.JournalLineID] = true
		}

		unmatched := 0
		for _, sl := range stmtLines {
			if !matchedStmt[sl.ID] {
				unmatched++
			}
		}
		if unmatched > 0 {
			return ledgererr.Reconciliation(ledgererr.CodeUnreconciled, reconciliationID,
				fmt.Sprintf("%d statement lines remain unmatched", unmatched))
		}

		bookLines, err := store.LinesByAccount(tx, recon.AccountID, recon.PeriodStart, recon.PeriodEnd, true)
		if err != nil {
			return err
		}
		cleared := decimal.Zero
		for _, bl := range bookLines {
			if matchedBook[bl.Line.ID] {
				cleared = cleared.Add(bookMovement(bl.Line))
			}
		}

		expected := recon.StatementEndingBalance
		actual := recon.BookBalanceStart.Add(cleared)
		if !amountsAgree(expected, actual) {
			return &ledgererr.Error{
				Kind:     ledgererr.KindReconciliation,
				Code:     ledgererr.CodeUnreconciled,
				EntityID: reconciliationID,
				Expected: expected,
				Actual:   actual,
				Detail:   "cleared book balance does not meet statement ending balance",
			}
		}

		return store.UpdateReconciliationStatus(tx, reconciliationID, model.ReconCompleted)
	})
	if err != nil {
		return err
	}

	if m.audit != nil {
		m.audit.Event("reconciliation-complete", reconciliationID, "")
	}
	return nil
}

// Reopen flips a completed reconciliation back to in-progress so its
// matches can be amended. The action is audited.
func (m *Matcher) Reopen(reconciliationID uuid.UUID) error {
	err := m.store.Transaction(func(tx *sql.Tx) error {
		recon, err := getRecon(tx, reconciliationID)
		if err != nil {
			return err
		}
		if recon.Status != model.ReconCompleted {
			return nil
		}
		return store.UpdateReconciliationStatus(tx, reconciliationID, model.ReconInProgress)
	})
	if err != nil {
		return err
	}

	if m.audit != nil {
		m.audit.Event("reconciliation-reopen", reconciliationID, "")
	}
	return nil
}

// Get returns a reconciliation by id.
func (m *Matcher) Get(reconciliationID uuid.UUID) (model.BankReconciliation, error) {
	var recon model.BankReconciliation
	err := m.store.Read(func(tx *sql.Tx) error {
		var err error
		recon, err = getRecon(tx, reconciliationID)
		return err
	})
	return recon, err
}

func getRecon(tx *sql.Tx, id uuid.UUID) (model.BankReconciliation, error) {
	recon, err := store.GetReconciliation(tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BankReconciliation{}, ledgererr.Conflict(ledgererr.CodeNotFound, id, "reconciliation does not exist")
	}
	return recon, err
}

// bookMovement is the signed cash movement of a journal line: debits
// increase a cash account, credits decrease it.
func bookMovement(l model.JournalEntryLine) decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// amountsAgree bridges two independently rounded sources: amounts agree
// when they are equal after rounding to the minor unit. A difference of
// a whole cent is a real discrepancy, not rounding noise.
func amountsAgree(a, b decimal.Decimal) bool {
	return model.ToMinor(a) == model.ToMinor(b)
}

// businessDaysApart counts the weekdays strictly between two dates,
// in either direction. Saturdays and Sundays do not count.
func businessDaysApart(a, b time.Time) int {
	if a.After(b) {
		a, b = b, a
	}
	days := 0
	for d := a.AddDate(0, 0, 1); !d.After(b); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}
