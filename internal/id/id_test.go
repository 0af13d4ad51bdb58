package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatEntryNumber(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "JE-000001"},
		{42, "JE-000042"},
		{999999, "JE-999999"},
		{1000000, "JE-1000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEntryNumber(tt.seq))
	}
}

func TestParseEntryNumber(t *testing.T) {
	seq, err := ParseEntryNumber("JE-000042")
	require.NoError(t, err)
	assert.Equal(t, 42, seq)

	_, err = ParseEntryNumber("XX-000042")
	assert.Error(t, err)

	_, err = ParseEntryNumber("JE-abc")
	assert.Error(t, err)
}

func TestFormatReconciliationRef(t *testing.T) {
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "REC-1010-202501", FormatReconciliationRef("1010", end))
}

func TestPeriodRoundTrip(t *testing.T) {
	assert.Equal(t, "2025-01", FormatPeriod(2025, time.January))

	year, month, err := ParsePeriod("2025-01")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.January, month)

	_, _, err = ParsePeriod("2025-13")
	assert.Error(t, err)
	_, _, err = ParsePeriod("2025")
	assert.Error(t, err)
}
