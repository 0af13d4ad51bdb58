package chart

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st), st
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.Create(CreateParams{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, Cash: true})
	require.NoError(t, err)
	assert.True(t, acct.Active)
	assert.Equal(t, model.NormalDebit, acct.Normal())

	got, err := svc.GetByCode("1010")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.True(t, got.Cash)
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(CreateParams{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	_, err = svc.Create(CreateParams{Code: "1010", Name: "Other", Type: model.AccountTypeAsset})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeDuplicateCode))
}

func TestCreate_TypeMismatchWithParent(t *testing.T) {
	svc, _ := newTestService(t)

	parent, err := svc.Create(CreateParams{Code: "1000", Name: "Current Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)

	_, err = svc.Create(CreateParams{
		Code: "1100", Name: "Rent", Type: model.AccountTypeExpense, ParentID: parent.ID,
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeTypeMismatch))
}

func TestCreate_TypeCheckedAgainstSubtreeRoot(t *testing.T) {
	svc, _ := newTestService(t)

	root, err := svc.Create(CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)
	child, err := svc.Create(CreateParams{Code: "1100", Name: "Bank", Type: model.AccountTypeAsset, ParentID: root.ID})
	require.NoError(t, err)

	// Grandchild validated against the root's type, not just the parent's.
	_, err = svc.Create(CreateParams{Code: "1110", Name: "Checking", Type: model.AccountTypeAsset, ParentID: child.ID})
	require.NoError(t, err)

	_, err = svc.Create(CreateParams{Code: "1120", Name: "Loan", Type: model.AccountTypeLiability, ParentID: child.ID})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeTypeMismatch))
}

func TestCreate_UnknownParent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(CreateParams{
		Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, ParentID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeNotFound))
}

func TestDeactivate(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.Create(CreateParams{Code: "6010", Name: "Advertising", Type: model.AccountTypeExpense})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(acct.ID))

	got, err := svc.Get(acct.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestDeactivate_AccountInUse(t *testing.T) {
	svc, st := newTestService(t)

	cash, err := svc.Create(CreateParams{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, Cash: true})
	require.NoError(t, err)
	revenue, err := svc.Create(CreateParams{Code: "4010", Name: "Service Revenue", Type: model.AccountTypeRevenue})
	require.NoError(t, err)

	// Post history directly through the store.
	entryID := uuid.New()
	entry := model.JournalEntry{
		ID:     entryID,
		Type:   model.EntryTypeStandard,
		Status: model.StatusPosted,
		Date:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Lines: []model.JournalEntryLine{
			{ID: uuid.New(), EntryID: entryID, AccountID: cash.ID, Debit: dec("500.00")},
			{ID: uuid.New(), EntryID: entryID, AccountID: revenue.ID, Credit: dec("500.00")},
		},
	}
	entry.TotalDebits, entry.TotalCredits = entry.ComputeTotals()
	require.NoError(t, st.Transaction(func(tx *sql.Tx) error {
		return store.InsertEntry(tx, entry)
	}))

	err = svc.Deactivate(cash.ID)
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeAccountInUse))

	// Still active, history intact.
	got, err := svc.Get(cash.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestHierarchy_OrderedByCode(t *testing.T) {
	svc, _ := newTestService(t)

	root, err := svc.Create(CreateParams{Code: "1000", Name: "Assets", Type: model.AccountTypeAsset})
	require.NoError(t, err)
	_, err = svc.Create(CreateParams{Code: "1020", Name: "Savings", Type: model.AccountTypeAsset, ParentID: root.ID})
	require.NoError(t, err)
	_, err = svc.Create(CreateParams{Code: "1010", Name: "Checking", Type: model.AccountTypeAsset, ParentID: root.ID})
	require.NoError(t, err)
	_, err = svc.Create(CreateParams{Code: "2000", Name: "Liabilities", Type: model.AccountTypeLiability})
	require.NoError(t, err)

	forest, err := svc.Hierarchy()
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, "1000", forest[0].Code)
	assert.Equal(t, "2000", forest[1].Code)

	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, "1010", forest[0].Children[0].Code)
	assert.Equal(t, "1020", forest[0].Children[1].Code)
}

func TestSeed_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Seed())
	first, err := svc.All()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	require.NoError(t, svc.Seed())
	second, err := svc.All()
	require.NoError(t, err)
	assert.Len(t, second, len(first))
}
