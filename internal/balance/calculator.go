// Package balance computes account, hierarchy, and trial balances over
// a ledger snapshot. All reads run inside a single read transaction so a
// balance never observes a half-posted entry. Results are pure functions
// of the ledger state and the requested date; nothing is cached.
package balance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// ledgerEpoch is the inclusive lower bound for "since inception" sums.
var ledgerEpoch = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)

// Calculator derives balances from the journal.
type Calculator struct {
	store *store.Store
}

// NewCalculator creates a Calculator.
func NewCalculator(st *store.Store) *Calculator {
	return &Calculator{store: st}
}

// AccountBalance returns the signed balance of one account as of a
// date: debit-normal accounts grow with debits, credit-normal accounts
// with credits. Only posted and reversed-source entries contribute, and
// a reversal's effect lands on the reversal's own date.
func (c *Calculator) AccountBalance(accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := c.store.Read(func(tx *sql.Tx) error {
		acct, err := store.GetAccount(tx, accountID)
		if err == sql.ErrNoRows {
			return ledgererr.Conflict(ledgererr.CodeNotFound, accountID, "account does not exist")
		}
		if err != nil {
			return err
		}

		nets, err := store.NetMovements(tx, ledgerEpoch, asOf)
		if err != nil {
			return err
		}
		bal = signed(acct.Normal(), nets[accountID])
		return nil
	})
	return bal, err
}

// HierarchyBalance returns an account's own balance plus the hierarchy
// balance of every descendant. Cycles are a chart invariant rejected at
// creation time, not handled here.
func (c *Calculator) HierarchyBalance(accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := c.store.Read(func(tx *sql.Tx) error {
		accounts, err := store.ListAccounts(tx)
		if err != nil {
			return err
		}
		root, ok := accountByID(accounts, accountID)
		if !ok {
			return ledgererr.Conflict(ledgererr.CodeNotFound, accountID, "account does not exist")
		}

		nets, err := store.NetMovements(tx, ledgerEpoch, asOf)
		if err != nil {
			return err
		}

		bal = decimal.Zero
		for _, a := range subtree(accounts, accountID) {
			bal = bal.Add(signed(root.Normal(), nets[a]))
		}
		return nil
	})
	return bal, err
}

// PeriodActivity returns the signed movement of an account's subtree
// strictly within [start, end].
func (c *Calculator) PeriodActivity(accountID uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var activity decimal.Decimal
	err := c.store.Read(func(tx *sql.Tx) error {
		accounts, err := store.ListAccounts(tx)
		if err != nil {
			return err
		}
		root, ok := accountByID(accounts, accountID)
		if !ok {
			return ledgererr.Conflict(ledgererr.CodeNotFound, accountID, "account does not exist")
		}

		nets, err := store.NetMovements(tx, start, end)
		if err != nil {
			return err
		}

		activity = decimal.Zero
		for _, a := range subtree(accounts, accountID) {
			activity = activity.Add(signed(root.Normal(), nets[a]))
		}
		return nil
	})
	return activity, err
}

// TrialBalance lists every active account with a nonzero balance at the
// date, bucketed into a debit or credit column by its normal side. If
// the two column totals differ, the ledger is corrupt: postings are
// halted and a consistency-fatal error is returned, never a corrected
// report.
func (c *Calculator) TrialBalance(asOf time.Time) (model.TrialBalance, error) {
	tb := model.TrialBalance{AsOf: asOf}

	err := c.store.Read(func(tx *sql.Tx) error {
		accounts, err := store.ListAccounts(tx)
		if err != nil {
			return err
		}
		nets, err := store.NetMovements(tx, ledgerEpoch, asOf)
		if err != nil {
			return err
		}

		tb.TotalDebits, tb.TotalCredits = decimal.Zero, decimal.Zero
		for _, a := range accounts {
			net, ok := nets[a.ID]
			if !ok || net == 0 || !a.Active {
				continue
			}
			row := model.TrialBalanceRow{
				AccountID:   a.ID,
				AccountCode: a.Code,
				AccountName: a.Name,
				AccountType: a.Type,
				Debit:       decimal.Zero,
				Credit:      decimal.Zero,
			}
			bal := signed(a.Normal(), net)
			if a.Normal() == model.NormalDebit {
				row.Debit = bal
			} else {
				row.Credit = bal
			}
			tb.TotalDebits = tb.TotalDebits.Add(row.Debit)
			tb.TotalCredits = tb.TotalCredits.Add(row.Credit)
			tb.Rows = append(tb.Rows, row)
		}
		return nil
	})
	if err != nil {
		return model.TrialBalance{}, err
	}

	if !tb.TotalDebits.Equal(tb.TotalCredits) {
		reason := fmt.Sprintf("trial balance columns unequal as of %s", asOf.Format(store.DateFormat))
		if haltErr := c.store.Transaction(func(tx *sql.Tx) error {
			return store.Halt(tx, reason)
		}); haltErr != nil {
			return model.TrialBalance{}, haltErr
		}
		return model.TrialBalance{}, ledgererr.Fatal(ledgererr.CodeTrialImbalance,
			tb.TotalDebits, tb.TotalCredits, reason)
	}

	tb.GeneratedAt = time.Now().UTC()
	return tb, nil
}

// signed converts net debit movement in minor units to a balance on the
// account's normal side.
func signed(normal model.NormalBalance, netDebitMinor int64) decimal.Decimal {
	d := model.FromMinor(netDebitMinor)
	if normal == model.NormalCredit {
		return d.Neg()
	}
	return d
}

func accountByID(accounts []model.Account, id uuid.UUID) (model.Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return model.Account{}, false
}

// subtree returns id plus all descendant account ids.
func subtree(accounts []model.Account, id uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	for _, a := range accounts {
		if a.ParentID != uuid.Nil {
			children[a.ParentID] = append(children[a.ParentID], a.ID)
		}
	}
	var out []uuid.UUID
	var walk func(uuid.UUID)
	walk = func(cur uuid.UUID) {
		out = append(out, cur)
		for _, c := range children[cur] {
			walk(c)
		}
	}
	walk(id)
	return out
}
