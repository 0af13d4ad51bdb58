package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizledger/ledgerd/internal/chart"
	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/posting"
	"github.com/bizledger/ledgerd/internal/store"
)

func newTestLedger(t *testing.T) (*Service, *chart.Service, *posting.Engine) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st), chart.NewService(st), posting.NewEngine(st, nil)
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

func seedAccounts(t *testing.T, accounts *chart.Service) (cash, revenue model.Account) {
	t.Helper()
	cash, err := accounts.Create(chart.CreateParams{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, Cash: true})
	require.NoError(t, err)
	revenue, err = accounts.Create(chart.CreateParams{Code: "4010", Name: "Service Revenue", Type: model.AccountTypeRevenue})
	require.NoError(t, err)
	return cash, revenue
}

func TestCreateDraft(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	entry, err := svc.CreateDraft(DraftParams{
		Date:        date(2025, 1, 15),
		Description: "Consulting invoice",
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("500.00")},
			{AccountID: revenue.ID, Credit: dec("500.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, entry.Status)
	assert.Equal(t, model.EntryTypeStandard, entry.Type)
	assert.Empty(t, entry.EntryNumber)
	assert.True(t, entry.TotalDebits.Equal(dec("500.00")))
	assert.True(t, entry.TotalCredits.Equal(dec("500.00")))

	got, err := svc.Get(entry.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].Debit.Equal(dec("500.00")))
	assert.True(t, got.Lines[1].Credit.Equal(dec("500.00")))
}

func TestCreateDraft_MayBeUnbalanced(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	// Drafts hold unbalanced state while being edited; only posting
	// enforces balance.
	entry, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("300.00")},
			{AccountID: revenue.ID, Credit: dec("250.00")},
		},
	})
	require.NoError(t, err)
	assert.False(t, entry.Balanced())
}

func TestCreateDraft_RejectsSubCentAmounts(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	// Storage keeps integer minor units; a third decimal place would be
	// rounded away on insert, so it is rejected up front instead.
	_, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.005")},
			{AccountID: revenue.ID, Credit: dec("100.005")},
		},
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeInvalidLine), "got %v", err)

	_, err = svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("-100.00")},
			{AccountID: revenue.ID, Credit: dec("-100.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeInvalidLine), "got %v", err)
}

func TestCreateDraft_RejectsUnknownAccount(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, _ := seedAccounts(t, accounts)

	_, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: uuid.New(), Credit: dec("100.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotFound), "got %v", err)
}

func TestUpdateDraft(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	entry, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: revenue.ID, Credit: dec("100.00")},
		},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(entry.ID, DraftParams{
		Date:        date(2025, 1, 16),
		Description: "Corrected amount",
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("150.00")},
			{AccountID: revenue.ID, Credit: dec("150.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, updated.TotalDebits.Equal(dec("150.00")))

	got, err := svc.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corrected amount", got.Description)
	require.Len(t, got.Lines, 2)
}

func TestUpdateDraft_RejectsMalformedLines(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	entry, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: revenue.ID, Credit: dec("100.00")},
		},
	})
	require.NoError(t, err)

	_, err = svc.UpdateDraft(entry.ID, DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.001")},
			{AccountID: revenue.ID, Credit: dec("100.001")},
		},
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeInvalidLine), "got %v", err)

	_, err = svc.UpdateDraft(entry.ID, DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: uuid.New(), Credit: dec("100.00")},
		},
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotFound), "got %v", err)

	// A rejected update leaves the draft as it was.
	got, err := svc.Get(entry.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalDebits.Equal(dec("100.00")))
}

func TestUpdateDraft_PostedRejected(t *testing.T) {
	svc, accounts, engine := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	entry, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: revenue.ID, Credit: dec("100.00")},
		},
	})
	require.NoError(t, err)
	_, err = engine.Post(entry.ID)
	require.NoError(t, err)

	_, err = svc.UpdateDraft(entry.ID, DraftParams{Date: date(2025, 1, 16)})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotDraft))
}

func TestDeleteDraft(t *testing.T) {
	svc, accounts, engine := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	draft, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: revenue.ID, Credit: dec("100.00")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDraft(draft.ID))

	_, err = svc.Get(draft.ID)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotFound))

	// Posted entries cannot be deleted.
	posted, err := svc.CreateDraft(DraftParams{
		Date: date(2025, 1, 15),
		Lines: []LineParams{
			{AccountID: cash.ID, Debit: dec("100.00")},
			{AccountID: revenue.ID, Credit: dec("100.00")},
		},
	})
	require.NoError(t, err)
	_, err = engine.Post(posted.ID)
	require.NoError(t, err)

	err = svc.DeleteDraft(posted.ID)
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotDraft))
}

func TestListByPeriod(t *testing.T) {
	svc, accounts, _ := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	for _, d := range []time.Time{date(2025, 1, 5), date(2025, 1, 20), date(2025, 2, 1)} {
		_, err := svc.CreateDraft(DraftParams{
			Date: d,
			Lines: []LineParams{
				{AccountID: cash.ID, Debit: dec("10.00")},
				{AccountID: revenue.ID, Credit: dec("10.00")},
			},
		})
		require.NoError(t, err)
	}

	entries, err := svc.ListByPeriod(date(2025, 1, 1), date(2025, 1, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLinesByAccount_PostedOnly(t *testing.T) {
	svc, accounts, engine := newTestLedger(t)
	cash, revenue := seedAccounts(t, accounts)

	draft := func() model.JournalEntry {
		e, err := svc.CreateDraft(DraftParams{
			Date: date(2025, 1, 10),
			Lines: []LineParams{
				{AccountID: cash.ID, Debit: dec("25.00")},
				{AccountID: revenue.ID, Credit: dec("25.00")},
			},
		})
		require.NoError(t, err)
		return e
	}

	posted := draft()
	draft() // stays draft

	_, err := engine.Post(posted.ID)
	require.NoError(t, err)

	all, err := svc.LinesByAccount(cash.ID, date(2025, 1, 1), date(2025, 1, 31), false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	postedOnly, err := svc.LinesByAccount(cash.ID, date(2025, 1, 1), date(2025, 1, 31), true)
	require.NoError(t, err)
	require.Len(t, postedOnly, 1)
	assert.Equal(t, model.StatusPosted, postedOnly[0].EntryStatus)
}
