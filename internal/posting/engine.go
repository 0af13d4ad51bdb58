// Package posting commits journal entry state transitions. Entries move
// draft -> posted -> reversed; reversed is terminal. Posting assigns the
// sequential entry number, reversal produces a linked reversing entry,
// and neither ever edits posted lines in place.
package posting

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizledger/ledgerd/internal/id"
	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// AuditSink receives fire-and-forget notifications of state transitions.
// The engine's invariants never depend on a sink succeeding.
type AuditSink interface {
	Event(action string, entityID uuid.UUID, details string)
}

// Engine validates and commits entry state transitions.
type Engine struct {
	store *store.Store
	audit AuditSink

	// mu serializes posting and reversal: sequence-number assignment and
	// balance visibility are global, ordering-sensitive effects.
	mu sync.Mutex
}

// NewEngine creates a posting Engine. audit may be nil.
func NewEngine(st *store.Store, audit AuditSink) *Engine {
	return &Engine{store: st, audit: audit}
}

// Validate checks an entry against the posting invariants without
// writing anything.
func (e *Engine) Validate(entryID uuid.UUID) error {
	return e.store.Read(func(tx *sql.Tx) error {
		entry, err := store.GetEntry(tx, entryID)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, entryID, "entry does not exist")
		}
		if err != nil {
			return err
		}
		return validateEntry(tx, entry)
	})
}

// Post commits a draft entry: validates, assigns the next entry number
// atomically, and transitions to posted. Posting an already-posted entry
// is an idempotent no-op returning the committed entry, so retried calls
// after a caller timeout are safe. A failed post consumes no number.
func (e *Engine) Post(entryID uuid.UUID) (model.JournalEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var posted model.JournalEntry
	err := e.store.Transaction(func(tx *sql.Tx) error {
		entry, err := store.GetEntry(tx, entryID)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, entryID, "entry does not exist")
		}
		if err != nil {
			return err
		}

		// Idempotent retry path: the entry already committed.
		if entry.Status == model.StatusPosted || entry.Status == model.StatusReversed {
			posted = entry
			return nil
		}

		if err := checkHalted(tx); err != nil {
			return err
		}
		if err := validateEntry(tx, entry); err != nil {
			return err
		}

		seq, err := store.NextEntryNumber(tx)
		if err != nil {
			return err
		}
		entry.EntryNumber = id.FormatEntryNumber(seq)
		entry.Status = model.StatusPosted

		if err := store.UpdateEntryStatus(tx, entry.ID, model.StatusPosted, entry.EntryNumber); err != nil {
			return err
		}
		posted = entry
		return nil
	})
	if err != nil {
		return model.JournalEntry{}, err
	}

	e.notify("post", posted.ID, fmt.Sprintf("entry %s posted, %s", posted.EntryNumber,
		posted.TotalDebits.StringFixed(model.MinorUnits)))
	return posted, nil
}

// Reverse produces and posts a reversing entry for a posted source
// entry, linking the two bidirectionally. The source's lines are never
// mutated; its status becomes reversed, which is terminal.
func (e *Engine) Reverse(sourceID uuid.UUID, reversalDate time.Time, description string) (model.JournalEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var reversal model.JournalEntry
	err := e.store.Transaction(func(tx *sql.Tx) error {
		if err := checkHalted(tx); err != nil {
			return err
		}

		source, err := store.GetEntry(tx, sourceID)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, sourceID, "entry does not exist")
		}
		if err != nil {
			return err
		}

		if source.Status == model.StatusReversed || source.ReversedByID != uuid.Nil {
			return ledgererr.Conflict(ledgererr.CodeAlreadyReversed, sourceID,
				fmt.Sprintf("entry %s was already reversed", source.EntryNumber))
		}
		if source.Status != model.StatusPosted {
			return ledgererr.Conflict(ledgererr.CodeNotPosted, sourceID, "only posted entries can be reversed")
		}
		if reversalDate.Before(source.Date) {
			return ledgererr.Conflict(ledgererr.CodeReversalBeforeSource, sourceID,
				fmt.Sprintf("reversal date %s precedes source date %s",
					reversalDate.Format(store.DateFormat), source.Date.Format(store.DateFormat)))
		}

		if description == "" {
			description = "Reversal of " + source.EntryNumber
		}

		reversal = model.JournalEntry{
			ID:          uuid.New(),
			Type:        model.EntryTypeReversing,
			Status:      model.StatusDraft,
			Date:        reversalDate,
			Description: description,
			Reference:   source.EntryNumber,
			ReversesID:  source.ID,
		}
		for _, l := range source.Lines {
			reversal.Lines = append(reversal.Lines, model.JournalEntryLine{
				ID:          uuid.New(),
				EntryID:     reversal.ID,
				AccountID:   l.AccountID,
				Description: l.Description,
				Debit:       l.Credit, // sides swapped
				Credit:      l.Debit,
				Reference:   l.Reference,
			})
		}
		reversal.TotalDebits, reversal.TotalCredits = reversal.ComputeTotals()

		if err := validateEntry(tx, reversal); err != nil {
			return err
		}

		seq, err := store.NextEntryNumber(tx)
		if err != nil {
			return err
		}
		reversal.EntryNumber = id.FormatEntryNumber(seq)
		reversal.Status = model.StatusPosted

		if err := store.InsertEntry(tx, reversal); err != nil {
			return err
		}
		return store.LinkReversal(tx, source.ID, reversal.ID)
	})
	if err != nil {
		return model.JournalEntry{}, err
	}

	e.notify("reverse", sourceID, fmt.Sprintf("reversed by %s dated %s",
		reversal.EntryNumber, reversal.Date.Format(store.DateFormat)))
	return reversal, nil
}

// ClosePeriod closes an accounting period. Entries dated inside a
// closed period are rejected at post and reversal time.
func (e *Engine) ClosePeriod(year int, month time.Month) error {
	err := e.store.Transaction(func(tx *sql.Tx) error {
		return store.ClosePeriod(tx, year, int(month))
	})
	if err != nil {
		return err
	}
	e.notify("close-period", uuid.Nil, id.FormatPeriod(year, month))
	return nil
}

// IsPeriodClosed reports whether year/month has been closed.
func (e *Engine) IsPeriodClosed(year int, month time.Month) (bool, error) {
	var closed bool
	err := e.store.Read(func(tx *sql.Tx) error {
		var err error
		closed, err = store.IsPeriodClosed(tx, year, int(month))
		return err
	})
	return closed, err
}

func (e *Engine) notify(action string, entityID uuid.UUID, details string) {
	if e.audit != nil {
		e.audit.Event(action, entityID, details)
	}
}
