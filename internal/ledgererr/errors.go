// Package ledgererr defines the structured errors shared by the ledger
// engine. Every rejection carries a kind, a code, and enough detail
// (offending ids, expected vs. actual totals) for a caller to render a
// precise message without re-deriving state.
package ledgererr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind categorizes how a caller should react to an error.
type Kind string

const (
	// KindValidation errors are rejected before any write and are
	// retryable after caller correction.
	KindValidation Kind = "validation"
	// KindStateConflict errors surface the current state so the caller
	// can decide.
	KindStateConflict Kind = "state-conflict"
	// KindConsistencyFatal errors indicate engine bugs or storage
	// corruption; postings halt against the affected ledger.
	KindConsistencyFatal Kind = "consistency-fatal"
	// KindReconciliation errors are expected, recoverable states that
	// require human resolution.
	KindReconciliation Kind = "reconciliation"
)

// Code identifies the specific failure.
type Code string

const (
	CodeUnbalanced           Code = "unbalanced"
	CodeEmptyEntry           Code = "empty_entry"
	CodeInactiveAccount      Code = "inactive_account"
	CodeDuplicateCode        Code = "duplicate_code"
	CodeTypeMismatch         Code = "type_mismatch"
	CodeInvalidLine          Code = "invalid_line"
	CodeAlreadyReversed      Code = "already_reversed"
	CodeReversalBeforeSource Code = "reversal_before_source"
	CodeClosedPeriod         Code = "closed_period"
	CodeAccountInUse         Code = "account_in_use"
	CodeNotFound             Code = "not_found"
	CodeNotDraft             Code = "not_draft"
	CodeNotPosted            Code = "not_posted"
	CodeLedgerHalted         Code = "ledger_halted"
	CodeTrialImbalance       Code = "trial_imbalance"
	CodeSheetImbalance       Code = "sheet_imbalance"
	CodeAmbiguousMatch       Code = "ambiguous_match"
	CodeUnreconciled         Code = "unreconciled"
	CodeReconCompleted       Code = "reconciliation_completed"
	CodeNotCashAccount       Code = "not_cash_account"
)

// Error is the engine's structured error value.
type Error struct {
	Kind     Kind
	Code     Code
	EntityID uuid.UUID
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Detail   string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s/%s", e.Kind, e.Code)
	if e.EntityID != uuid.Nil {
		msg += fmt.Sprintf(" [%s]", e.EntityID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if !e.Expected.IsZero() || !e.Actual.IsZero() {
		msg += fmt.Sprintf(" (expected %s, actual %s)",
			e.Expected.StringFixed(2), e.Actual.StringFixed(2))
	}
	return msg
}

// Validation builds a validation-kind error.
func Validation(code Code, id uuid.UUID, detail string) *Error {
	return &Error{Kind: KindValidation, Code: code, EntityID: id, Detail: detail}
}

// Conflict builds a state-conflict error.
func Conflict(code Code, id uuid.UUID, detail string) *Error {
	return &Error{Kind: KindStateConflict, Code: code, EntityID: id, Detail: detail}
}

// Fatal builds a consistency-fatal error carrying the mismatched totals.
func Fatal(code Code, expected, actual decimal.Decimal, detail string) *Error {
	return &Error{Kind: KindConsistencyFatal, Code: code, Expected: expected, Actual: actual, Detail: detail}
}

// Reconciliation builds a reconciliation-kind error.
func Reconciliation(code Code, id uuid.UUID, detail string) *Error {
	return &Error{Kind: KindReconciliation, Code: code, EntityID: id, Detail: detail}
}

// Unbalanced builds the validation error for unequal entry totals.
func Unbalanced(id uuid.UUID, debits, credits decimal.Decimal) *Error {
	return &Error{
		Kind:     KindValidation,
		Code:     CodeUnbalanced,
		EntityID: id,
		Expected: debits,
		Actual:   credits,
		Detail:   "debits do not equal credits",
	}
}

// IsCode reports whether err is a ledger Error with the given code.
func IsCode(err error, code Code) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == code
}

// KindOf returns the kind of err, or "" if err is not a ledger Error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}
