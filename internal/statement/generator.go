// Package statement derives financial statements from the ledger.
// Statements are pure functions of (ledger state, date or period): no
// persisted cache, no hidden randomness, and re-running a generator
// against an unchanged ledger returns identical output apart from the
// GeneratedAt stamp.
package statement

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/ledgerd/internal/balance"
	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// Account-code bands for statement classification. The default chart
// follows the conventional numbering; custom charts must stay inside
// these bands for operating/other bucketing to hold.
const (
	otherRevenuePrefix = "49" // interest, misc income
	cogsPrefix         = "50" // cost of goods sold
	otherExpensePrefix = "7"  // non-operating expenses
)

// Generator builds financial statement views.
type Generator struct {
	store    *store.Store
	balances *balance.Calculator
}

// NewGenerator creates a Generator.
func NewGenerator(st *store.Store, bc *balance.Calculator) *Generator {
	return &Generator{store: st, balances: bc}
}

// IncomeStatement partitions revenue and expense activity accrued
// strictly within the period into operating and other buckets, and
// computes gross profit, operating income, and net income.
func (g *Generator) IncomeStatement(periodStart, periodEnd time.Time) (model.IncomeStatement, error) {
	accounts, nets, err := g.snapshot(periodStart, periodEnd)
	if err != nil {
		return model.IncomeStatement{}, err
	}

	var revenue, cogs, opExp, otherRev, otherExp []model.ReportLine
	for _, a := range topLevel(accounts) {
		activity := subtreeActivity(accounts, nets, a)
		if activity.IsZero() {
			continue
		}
		line := model.ReportLine{Label: a.Code + " " + a.Name, Amount: activity}

		switch a.Type {
		case model.AccountTypeRevenue:
			if strings.HasPrefix(a.Code, otherRevenuePrefix) {
				otherRev = append(otherRev, line)
			} else {
				revenue = append(revenue, line)
			}
		case model.AccountTypeExpense:
			switch {
			case strings.HasPrefix(a.Code, cogsPrefix):
				cogs = append(cogs, line)
			case strings.HasPrefix(a.Code, otherExpensePrefix):
				otherExp = append(otherExp, line)
			default:
				opExp = append(opExp, line)
			}
		}
	}

	is := model.IncomeStatement{
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		Revenue:         section("Revenue", revenue),
		CostOfGoodsSold: section("Cost of Goods Sold", cogs),
		OperatingExp:    section("Operating Expenses", opExp),
		OtherRevenue:    section("Other Revenue", otherRev),
		OtherExpenses:   section("Other Expenses", otherExp),
	}
	is.GrossProfit = is.Revenue.Amount.Sub(is.CostOfGoodsSold.Amount)
	is.OperatingIncome = is.GrossProfit.Sub(is.OperatingExp.Amount)
	is.NetIncome = is.OperatingIncome.Sub(is.OtherExpenses.Amount).Add(is.OtherRevenue.Amount)
	is.GeneratedAt = time.Now().UTC()
	return is, nil
}

// BalanceSheet reports cumulative hierarchy balances since inception for
// asset, liability, and equity accounts. Retained earnings carries the
// cumulative net income so the accounting equation closes. If assets do
// not equal liabilities plus equity the ledger is corrupt: postings halt
// and a consistency-fatal error is returned.
func (g *Generator) BalanceSheet(asOf time.Time) (model.BalanceSheet, error) {
	accounts, nets, err := g.snapshot(time.Time{}, asOf)
	if err != nil {
		return model.BalanceSheet{}, err
	}

	var assets, liabilities, equity []model.ReportLine
	cumulativeIncome := decimal.Zero
	for _, a := range topLevel(accounts) {
		bal := subtreeActivity(accounts, nets, a)
		switch a.Type {
		case model.AccountTypeRevenue:
			cumulativeIncome = cumulativeIncome.Add(bal)
			continue
		case model.AccountTypeExpense:
			cumulativeIncome = cumulativeIncome.Sub(bal)
			continue
		}
		if bal.IsZero() {
			continue
		}
		line := model.ReportLine{Label: a.Code + " " + a.Name, Amount: bal}
		switch a.Type {
		case model.AccountTypeAsset:
			assets = append(assets, line)
		case model.AccountTypeLiability:
			liabilities = append(liabilities, line)
		case model.AccountTypeEquity:
			equity = append(equity, line)
		}
	}

	bs := model.BalanceSheet{
		AsOf:             asOf,
		Assets:           section("Assets", assets),
		Liabilities:      section("Liabilities", liabilities),
		RetainedEarnings: cumulativeIncome,
	}
	equity = append(equity, model.ReportLine{Label: "Retained Earnings", Amount: cumulativeIncome})
	bs.Equity = section("Equity", equity)

	rhs := bs.Liabilities.Amount.Add(bs.Equity.Amount)
	if !bs.Assets.Amount.Equal(rhs) {
		reason := fmt.Sprintf("balance sheet unbalanced as of %s", asOf.Format(store.DateFormat))
		if haltErr := g.store.Transaction(func(tx *sql.Tx) error {
			return store.Halt(tx, reason)
		}); haltErr != nil {
			return model.BalanceSheet{}, haltErr
		}
		return model.BalanceSheet{}, ledgererr.Fatal(ledgererr.CodeSheetImbalance,
			bs.Assets.Amount, rhs, reason)
	}

	bs.GeneratedAt = time.Now().UTC()
	return bs, nil
}

// CashFlow reports the period's cash movement by the indirect method:
// net income adjusted by the net change in non-cash accounts.
func (g *Generator) CashFlow(periodStart, periodEnd time.Time) (model.CashFlowStatement, error) {
	is, err := g.IncomeStatement(periodStart, periodEnd)
	if err != nil {
		return model.CashFlowStatement{}, err
	}

	accounts, nets, err := g.snapshot(periodStart, periodEnd)
	if err != nil {
		return model.CashFlowStatement{}, err
	}

	netCash := decimal.Zero
	opening := decimal.Zero
	for _, a := range accounts {
		if !a.Cash {
			continue
		}
		netCash = netCash.Add(model.FromMinor(nets[a.ID]))
		openBal, err := g.balances.AccountBalance(a.ID, periodStart.AddDate(0, 0, -1))
		if err != nil {
			return model.CashFlowStatement{}, err
		}
		opening = opening.Add(openBal)
	}

	cf := model.CashFlowStatement{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		NetIncome:   is.NetIncome,
		NetCashFlow: netCash,
		OpeningCash: opening,
		ClosingCash: opening.Add(netCash),
	}
	cf.Adjustments = model.ReportLine{
		Label:   "Net change in non-cash accounts",
		Amount:  netCash.Sub(is.NetIncome),
		IsTotal: false,
	}
	cf.GeneratedAt = time.Now().UTC()
	return cf, nil
}

// snapshot loads accounts and net movements in one read transaction. A
// zero from means since inception.
func (g *Generator) snapshot(from, to time.Time) ([]model.Account, map[uuid.UUID]int64, error) {
	if from.IsZero() {
		from = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	var accounts []model.Account
	var nets map[uuid.UUID]int64
	err := g.store.Read(func(tx *sql.Tx) error {
		var err error
		accounts, err = store.ListAccounts(tx)
		if err != nil {
			return err
		}
		nets, err = store.NetMovements(tx, from, to)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nets, nil
}

// topLevel returns accounts without a parent, already in code order.
func topLevel(accounts []model.Account) []model.Account {
	var roots []model.Account
	for _, a := range accounts {
		if a.ParentID == uuid.Nil {
			roots = append(roots, a)
		}
	}
	return roots
}

// subtreeActivity sums signed movement across an account and its
// descendants, signed by the root's normal side.
func subtreeActivity(accounts []model.Account, nets map[uuid.UUID]int64, root model.Account) decimal.Decimal {
	children := make(map[uuid.UUID][]model.Account)
	for _, a := range accounts {
		if a.ParentID != uuid.Nil {
			children[a.ParentID] = append(children[a.ParentID], a)
		}
	}

	total := decimal.Zero
	var walk func(model.Account)
	walk = func(cur model.Account) {
		d := model.FromMinor(nets[cur.ID])
		if root.Normal() == model.NormalCredit {
			d = d.Neg()
		}
		total = total.Add(d)
		for _, c := range children[cur.ID] {
			walk(c)
		}
	}
	walk(root)
	return total
}

// section wraps lines in a total node.
func section(label string, lines []model.ReportLine) model.ReportLine {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return model.ReportLine{Label: label, Amount: total, IsTotal: true, Children: lines}
}
