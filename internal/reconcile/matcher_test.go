package reconcile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizledger/ledgerd/internal/balance"
	"github.com/bizledger/ledgerd/internal/chart"
	"github.com/bizledger/ledgerd/internal/journal"
	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/posting"
	"github.com/bizledger/ledgerd/internal/store"
)

type fixture struct {
	matcher *Matcher
	journal *journal.Service
	engine  *posting.Engine
	cash    model.Account
	revenue model.Account
	expense model.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	accounts := chart.NewService(st)
	f := &fixture{
		matcher: NewMatcher(st, balance.NewCalculator(st), nil),
		journal: journal.NewService(st),
		engine:  posting.NewEngine(st, nil),
	}
	f.cash, err = accounts.Create(chart.CreateParams{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, Cash: true})
	require.NoError(t, err)
	f.revenue, err = accounts.Create(chart.CreateParams{Code: "4010", Name: "Service Revenue", Type: model.AccountTypeRevenue})
	require.NoError(t, err)
	f.expense, err = accounts.Create(chart.CreateParams{Code: "6010", Name: "Rent", Type: model.AccountTypeExpense})
	require.NoError(t, err)
	return f
}

// deposit posts cash in from revenue, withdrawal posts cash out to rent.
func (f *fixture) deposit(t *testing.T, d time.Time, amount string) model.JournalEntry {
	t.Helper()
	return f.postPair(t, d, f.cash.ID, f.revenue.ID, amount)
}

func (f *fixture) withdrawal(t *testing.T, d time.Time, amount string) model.JournalEntry {
	t.Helper()
	return f.postPair(t, d, f.expense.ID, f.cash.ID, amount)
}

func (f *fixture) postPair(t *testing.T, d time.Time, debitID, creditID uuid.UUID, amount string) model.JournalEntry {
	t.Helper()
	entry, err := f.journal.CreateDraft(journal.DraftParams{
		Date: d,
		Lines: []journal.LineParams{
			{AccountID: debitID, Debit: dec(amount)},
			{AccountID: creditID, Credit: dec(amount)},
		},
	})
	require.NoError(t, err)
	posted, err := f.engine.Post(entry.ID)
	require.NoError(t, err)
	return posted
}

func (f *fixture) cashLine(t *testing.T, entry model.JournalEntry) uuid.UUID {
	t.Helper()
	for _, l := range entry.Lines {
		if l.AccountID == f.cash.ID {
			return l.ID
		}
	}
	t.Fatal("entry has no cash line")
	return uuid.Nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, date(2024, 12, 20), "2500.00")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("3000.00"))
	require.NoError(t, err)
	assert.Equal(t, model.ReconInProgress, recon.Status)
	assert.True(t, recon.BookBalanceStart.Equal(dec("2500.00")), "book start = %s", recon.BookBalanceStart)
}

func TestCreate_NonCashRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.matcher.Create(f.revenue.ID, date(2025, 1, 1), date(2025, 1, 31), dec("0"))
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotCashAccount))
}

func TestCreate_ParentAccountRejected(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	accounts := chart.NewService(st)
	matcher := NewMatcher(st, balance.NewCalculator(st), nil)

	parent, err := accounts.Create(chart.CreateParams{Code: "1000", Name: "Bank Accounts", Type: model.AccountTypeAsset, Cash: true})
	require.NoError(t, err)
	_, err = accounts.Create(chart.CreateParams{Code: "1011", Name: "Checking", Type: model.AccountTypeAsset, ParentID: parent.ID, Cash: true})
	require.NoError(t, err)

	// A statement describes one real bank account; parents roll up
	// their children and cannot be reconciled directly.
	_, err = matcher.Create(parent.ID, date(2025, 1, 1), date(2025, 1, 31), dec("0"))
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotCashAccount), "got %v", err)
}

func TestAutoMatch(t *testing.T) {
	f := newFixture(t)
	depositEntry := f.deposit(t, date(2025, 1, 6), "1200.00")   // Monday
	withdrawEntry := f.withdrawal(t, date(2025, 1, 15), "85.50")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("1114.50"))
	require.NoError(t, err)

	stmt, err := f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 7), Amount: dec("1200.00"), Description: "DEPOSIT"},
		{Date: date(2025, 1, 15), Amount: dec("-85.50"), Description: "CHECK 1042"},
	})
	require.NoError(t, err)
	require.Len(t, stmt, 2)

	outcomes, err := f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, f.cashLine(t, depositEntry), outcomes[0].JournalLineID)
	assert.Equal(t, f.cashLine(t, withdrawEntry), outcomes[1].JournalLineID)

	require.NoError(t, f.matcher.Complete(recon.ID))
	got, err := f.matcher.Get(recon.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReconCompleted, got.Status)
}

// A one-cent difference is a discrepancy, never a fuzzy match.
func TestAutoMatch_WholeCentDifferenceStaysUnmatched(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, date(2025, 1, 6), "999.99")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("1000.00"))
	require.NoError(t, err)
	_, err = f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 6), Amount: dec("1000.00"), Description: "DEPOSIT"},
	})
	require.NoError(t, err)

	outcomes, err := f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, uuid.Nil, outcomes[0].JournalLineID)
	assert.Equal(t, 0, outcomes[0].Candidates)

	err = f.matcher.Complete(recon.ID)
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeUnreconciled))
}

func TestAutoMatch_BusinessDayWindow(t *testing.T) {
	f := newFixture(t)
	// Friday Jan 3. Five business days later is Friday Jan 10; the
	// following Monday falls outside the default window.
	f.deposit(t, date(2025, 1, 3), "500.00")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("500.00"))
	require.NoError(t, err)
	_, err = f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 10), Amount: dec("500.00"), Description: "inside window"},
		{Date: date(2025, 1, 13), Amount: dec("123.00"), Description: "unrelated"},
	})
	require.NoError(t, err)

	outcomes, err := f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.NotEqual(t, uuid.Nil, outcomes[0].JournalLineID)

	// Shrink the window and the same gap no longer matches.
	f2 := newFixture(t)
	f2.matcher.SetDayWindow(2)
	f2.deposit(t, date(2025, 1, 3), "500.00")
	recon2, err := f2.matcher.Create(f2.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("500.00"))
	require.NoError(t, err)
	_, err = f2.matcher.SubmitStatement(recon2.ID, []StatementLineParams{
		{Date: date(2025, 1, 10), Amount: dec("500.00"), Description: "outside narrow window"},
	})
	require.NoError(t, err)
	outcomes2, err := f2.matcher.AutoMatch(recon2.ID)
	require.NoError(t, err)
	require.Len(t, outcomes2, 1)
	assert.Equal(t, uuid.Nil, outcomes2[0].JournalLineID)
}

func TestAutoMatch_AmbiguousLeftForManualResolution(t *testing.T) {
	f := newFixture(t)
	first := f.deposit(t, date(2025, 1, 6), "250.00")
	second := f.deposit(t, date(2025, 1, 7), "250.00")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("500.00"))
	require.NoError(t, err)
	stmt, err := f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 7), Amount: dec("250.00"), Description: "DEPOSIT"},
	})
	require.NoError(t, err)

	outcomes, err := f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, ledgererr.IsCode(outcomes[0].Err, ledgererr.CodeAmbiguousMatch), "got %v", outcomes[0].Err)
	assert.Equal(t, 2, outcomes[0].Candidates)
	assert.Equal(t, uuid.Nil, outcomes[0].JournalLineID)

	// Manual confirmation resolves the tie; the second statement line
	// can then auto-match the remaining candidate.
	require.NoError(t, f.matcher.ConfirmMatch(recon.ID, stmt[0].ID, f.cashLine(t, first)))

	stmt2, err := f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 8), Amount: dec("250.00"), Description: "DEPOSIT"},
	})
	require.NoError(t, err)
	outcomes, err = f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, stmt2[0].ID, outcomes[0].StatementLineID)
	assert.Equal(t, f.cashLine(t, second), outcomes[0].JournalLineID)
}

func TestUnmatchAndRematch(t *testing.T) {
	f := newFixture(t)
	entry := f.deposit(t, date(2025, 1, 6), "400.00")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("400.00"))
	require.NoError(t, err)
	stmt, err := f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 6), Amount: dec("400.00"), Description: "DEPOSIT"},
	})
	require.NoError(t, err)

	_, err = f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.NoError(t, f.matcher.Unmatch(recon.ID, stmt[0].ID))

	err = f.matcher.Complete(recon.ID)
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeUnreconciled))

	require.NoError(t, f.matcher.ConfirmMatch(recon.ID, stmt[0].ID, f.cashLine(t, entry)))
	require.NoError(t, f.matcher.Complete(recon.ID))
}

func TestComplete_EndingBalanceMismatch(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, date(2025, 1, 6), "400.00")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("450.00"))
	require.NoError(t, err)
	_, err = f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 6), Amount: dec("400.00"), Description: "DEPOSIT"},
	})
	require.NoError(t, err)
	_, err = f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)

	err = f.matcher.Complete(recon.ID)
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeUnreconciled))

	var lerr *ledgererr.Error
	require.ErrorAs(t, err, &lerr)
	assert.True(t, lerr.Expected.Equal(dec("450.00")))
	assert.True(t, lerr.Actual.Equal(dec("400.00")))
}

func TestCompletedIsFrozen(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, date(2025, 1, 6), "400.00")

	recon, err := f.matcher.Create(f.cash.ID, date(2025, 1, 1), date(2025, 1, 31), dec("400.00"))
	require.NoError(t, err)
	stmt, err := f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 6), Amount: dec("400.00"), Description: "DEPOSIT"},
	})
	require.NoError(t, err)
	_, err = f.matcher.AutoMatch(recon.ID)
	require.NoError(t, err)
	require.NoError(t, f.matcher.Complete(recon.ID))

	_, err = f.matcher.SubmitStatement(recon.ID, []StatementLineParams{
		{Date: date(2025, 1, 20), Amount: dec("1.00")},
	})
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeReconCompleted))

	err = f.matcher.Unmatch(recon.ID, stmt[0].ID)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeReconCompleted))

	// Completing again is a no-op, reopening allows amendments.
	require.NoError(t, f.matcher.Complete(recon.ID))
	require.NoError(t, f.matcher.Reopen(recon.ID))
	require.NoError(t, f.matcher.Unmatch(recon.ID, stmt[0].ID))
}

func TestBusinessDaysApart(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", date(2025, 1, 6), date(2025, 1, 6), 0},
		{"consecutive weekdays", date(2025, 1, 6), date(2025, 1, 7), 1},
		{"over a weekend", date(2025, 1, 3), date(2025, 1, 6), 1},
		{"friday to next friday", date(2025, 1, 3), date(2025, 1, 10), 5},
		{"reversed arguments", date(2025, 1, 10), date(2025, 1, 3), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, businessDaysApart(tt.a, tt.b))
		})
	}
}
