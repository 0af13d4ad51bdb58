package bankfeed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericParser(t *testing.T) {
	csv := `date,amount,description,external_id
2025-01-06,1200.00,DEPOSIT,stmt_001
2025-01-15,-85.50,CHECK 1042,stmt_002
`
	txns, err := (&GenericParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("1200.00")))
	assert.Equal(t, "DEPOSIT", txns[0].Description)
	assert.Equal(t, "stmt_001", txns[0].ExternalID)

	assert.True(t, txns[1].Amount.IsNegative())
}

func TestGenericParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"bad date", "date,amount,description,external_id\n01/06/2025,1.00,x,y\n"},
		{"bad amount", "date,amount,description,external_id\n2025-01-06,abc,x,y\n"},
		{"wrong field count", "date,amount,description,external_id\n2025-01-06,1.00,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&GenericParser{}).Parse(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestGenericParser_HeaderOnly(t *testing.T) {
	txns, err := (&GenericParser{}).Parse(strings.NewReader("date,amount,description,external_id\n"))
	require.NoError(t, err)
	assert.Nil(t, txns)
}

func TestChaseParser(t *testing.T) {
	csv := `Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
DEBIT,01/03/2025,GITHUB,-10.00,ACH_DEBIT,1000.00,
CREDIT,01/06/2025,STRIPE PAYOUT,1200.00,ACH_CREDIT,2200.00,
`
	txns, err := (&ChaseParser{}).Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), txns[0].Date)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-10.00")))
	assert.Equal(t, "GITHUB", txns[0].Description)
	assert.Equal(t, "ACH_DEBIT", txns[0].Type)
	assert.Equal(t, "chase_20250103_GITHUB", txns[0].ExternalID)

	// External ids strip punctuation and cap the description prefix.
	assert.Equal(t, "chase_20250106_STRIPEPAYO", txns[1].ExternalID)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Get("generic"))
	assert.NotNil(t, r.Get("CHASE"))
	assert.Nil(t, r.Get("unknown"))

	assert.Panics(t, func() { r.Register(&ChaseParser{}) })
}

func TestScanAndMarkProcessed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "import"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "jan.csv"), []byte("date,amount,description,external_id\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "import", "notes.txt"), []byte("skip me"), 0o644))

	files, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "jan.csv", files[0].Name)

	require.NoError(t, MarkProcessed(root, "jan.csv"))

	files, err = Scan(root)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = os.Stat(filepath.Join(root, "import", "processed", "jan.csv"))
	assert.NoError(t, err)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}
