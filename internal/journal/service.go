// Package journal is the append-mostly store of journal entries. It is
// the single writer of entry and line rows. Drafts may be edited or
// deleted freely; posted entries are immutable and can only be corrected
// through a reversing entry.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// Service provides journal entry persistence and reads.
type Service struct {
	store *store.Store
}

// NewService creates a journal Service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// LineParams describes one line of a draft entry.
type LineParams struct {
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Reference   string
}

// DraftParams holds parameters for creating or updating a draft.
type DraftParams struct {
	Type        model.EntryType
	Date        time.Time
	Description string
	Reference   string
	Lines       []LineParams
}

// CreateDraft stores a new draft entry. Drafts may be unbalanced while
// being edited; balance is enforced at post time. Line amounts must
// already be well formed: storage keeps integer minor units, so amounts
// carrying more precision are rejected here rather than silently
// rounded away.
func (s *Service) CreateDraft(params DraftParams) (model.JournalEntry, error) {
	entry := buildEntry(uuid.New(), params)
	err := s.store.Transaction(func(tx *sql.Tx) error {
		if err := checkLines(tx, entry.Lines); err != nil {
			return err
		}
		return store.InsertEntry(tx, entry)
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	return entry, nil
}

// UpdateDraft replaces a draft's header and lines. Non-draft entries
// are rejected.
func (s *Service) UpdateDraft(id uuid.UUID, params DraftParams) (model.JournalEntry, error) {
	entry := buildEntry(id, params)
	err := s.store.Transaction(func(tx *sql.Tx) error {
		existing, err := store.GetEntry(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, id, "entry does not exist")
		}
		if err != nil {
			return err
		}
		if existing.Status != model.StatusDraft {
			return ledgererr.Conflict(ledgererr.CodeNotDraft, id,
				"only draft entries may be edited; reverse and re-enter instead")
		}
		if err := checkLines(tx, entry.Lines); err != nil {
			return err
		}
		return store.UpdateEntry(tx, entry)
	})
	if err != nil {
		return model.JournalEntry{}, err
	}
	return entry, nil
}

// DeleteDraft removes a draft entry. Non-draft entries are rejected.
func (s *Service) DeleteDraft(id uuid.UUID) error {
	return s.store.Transaction(func(tx *sql.Tx) error {
		existing, err := store.GetEntry(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, id, "entry does not exist")
		}
		if err != nil {
			return err
		}
		if existing.Status != model.StatusDraft {
			return ledgererr.Conflict(ledgererr.CodeNotDraft, id, "posted entries cannot be deleted")
		}
		return store.DeleteEntry(tx, id)
	})
}

// Get returns one entry with its lines.
func (s *Service) Get(id uuid.UUID) (model.JournalEntry, error) {
	var e model.JournalEntry
	err := s.store.Read(func(tx *sql.Tx) error {
		var err error
		e, err = store.GetEntry(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, id, "entry does not exist")
		}
		return err
	})
	return e, err
}

// ListByPeriod returns entries dated within [from, to].
func (s *Service) ListByPeriod(from, to time.Time) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	err := s.store.Read(func(tx *sql.Tx) error {
		var err error
		entries, err = store.ListEntriesByDateRange(tx, from, to)
		return err
	})
	return entries, err
}

// LinesByAccount returns an account's lines in a date range.
// postedOnly restricts to posted and reversed-source entries.
func (s *Service) LinesByAccount(accountID uuid.UUID, from, to time.Time, postedOnly bool) ([]store.AccountLine, error) {
	var lines []store.AccountLine
	err := s.store.Read(func(tx *sql.Tx) error {
		var err error
		lines, err = store.LinesByAccount(tx, accountID, from, to, postedOnly)
		return err
	})
	return lines, err
}

// checkLines rejects malformed lines before they are persisted: amounts
// must be non-negative at minor-unit precision, and every referenced
// account must exist. Whether an account is active is checked at post
// time, not here, since it can change while an entry sits in draft.
func checkLines(tx *sql.Tx, lines []model.JournalEntryLine) error {
	for i, l := range lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return ledgererr.Validation(ledgererr.CodeInvalidLine, l.ID,
				fmt.Sprintf("line %d amount must not be negative", i+1))
		}
		if !model.ExactMinor(l.Debit) || !model.ExactMinor(l.Credit) {
			return ledgererr.Validation(ledgererr.CodeInvalidLine, l.ID,
				fmt.Sprintf("line %d amount exceeds %d decimal places", i+1, model.MinorUnits))
		}
		if _, err := store.GetAccount(tx, l.AccountID); errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Validation(ledgererr.CodeNotFound, l.AccountID,
				fmt.Sprintf("line %d references an unknown account", i+1))
		} else if err != nil {
			return err
		}
	}
	return nil
}

func buildEntry(id uuid.UUID, params DraftParams) model.JournalEntry {
	entryType := params.Type
	if entryType == "" {
		entryType = model.EntryTypeStandard
	}

	entry := model.JournalEntry{
		ID:          id,
		Type:        entryType,
		Status:      model.StatusDraft,
		Date:        params.Date,
		Description: params.Description,
		Reference:   params.Reference,
	}
	for _, lp := range params.Lines {
		entry.Lines = append(entry.Lines, model.JournalEntryLine{
			ID:          uuid.New(),
			EntryID:     id,
			AccountID:   lp.AccountID,
			Description: lp.Description,
			Debit:       lp.Debit,
			Credit:      lp.Credit,
			Reference:   lp.Reference,
		})
	}
	entry.TotalDebits, entry.TotalCredits = entry.ComputeTotals()
	return entry
}
