// Package id formats the human-readable identifiers the ledger exposes:
// sequential entry numbers and reconciliation references.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// entryPrefix starts every posted entry number.
const entryPrefix = "JE-"

// FormatEntryNumber returns an entry number like "JE-000042".
func FormatEntryNumber(seq int) string {
	return fmt.Sprintf("%s%06d", entryPrefix, seq)
}

// ParseEntryNumber parses "JE-000042" into its sequence number.
func ParseEntryNumber(number string) (int, error) {
	if !strings.HasPrefix(number, entryPrefix) {
		return 0, fmt.Errorf("invalid entry number format: %q", number)
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, entryPrefix))
	if err != nil {
		return 0, fmt.Errorf("invalid sequence in entry number %q: %w", number, err)
	}
	return seq, nil
}

// FormatReconciliationRef returns a reference like "REC-1010-202501" for
// an account code and statement period end.
func FormatReconciliationRef(accountCode string, periodEnd time.Time) string {
	return fmt.Sprintf("REC-%s-%s", accountCode, periodEnd.Format("200601"))
}

// FormatPeriod returns the canonical "2025-01" form of a period.
func FormatPeriod(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// ParsePeriod parses "2025-01" into year and month.
func ParsePeriod(s string) (int, time.Month, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid period format: %q", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in period %q: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month in period %q", s)
	}
	return year, time.Month(month), nil
}
