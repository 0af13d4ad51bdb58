package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bizledger/ledgerd/internal/model"
)

// DateFormat is the storage encoding for entry dates.
const DateFormat = "2006-01-02"

// InsertEntry writes an entry header and its lines.
func InsertEntry(q Querier, e model.JournalEntry) error {
	_, err := q.Exec(`
		INSERT INTO journal_entries
			(id, entry_number, type, status, entry_date, description, reference,
			 total_debits, total_credits, reverses_id, reversed_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), nullStr(e.EntryNumber), string(e.Type), string(e.Status),
		e.Date.Format(DateFormat), e.Description, e.Reference,
		model.ToMinor(e.TotalDebits), model.ToMinor(e.TotalCredits),
		nullUUID(e.ReversesID), nullUUID(e.ReversedByID))
	if err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return insertLines(q, e.ID, e.Lines)
}

// UpdateEntry rewrites an entry header and replaces its lines.
func UpdateEntry(q Querier, e model.JournalEntry) error {
	_, err := q.Exec(`
		UPDATE journal_entries SET
			entry_number = ?, type = ?, status = ?, entry_date = ?,
			description = ?, reference = ?, total_debits = ?, total_credits = ?,
			reverses_id = ?, reversed_by_id = ?
		WHERE id = ?`,
		nullStr(e.EntryNumber), string(e.Type), string(e.Status),
		e.Date.Format(DateFormat), e.Description, e.Reference,
		model.ToMinor(e.TotalDebits), model.ToMinor(e.TotalCredits),
		nullUUID(e.ReversesID), nullUUID(e.ReversedByID), e.ID.String())
	if err != nil {
		return fmt.Errorf("updating entry %s: %w", e.ID, err)
	}
	if _, err := q.Exec(`DELETE FROM journal_entry_lines WHERE entry_id = ?`, e.ID.String()); err != nil {
		return fmt.Errorf("clearing entry lines: %w", err)
	}
	return insertLines(q, e.ID, e.Lines)
}

// UpdateEntryStatus transitions an entry's status and, when posting,
// stamps the assigned entry number.
func UpdateEntryStatus(q Querier, id uuid.UUID, status model.EntryStatus, entryNumber string) error {
	_, err := q.Exec(`UPDATE journal_entries SET status = ?, entry_number = COALESCE(?, entry_number) WHERE id = ?`,
		string(status), nullStr(entryNumber), id.String())
	if err != nil {
		return fmt.Errorf("updating entry status: %w", err)
	}
	return nil
}

// LinkReversal records the bidirectional reversal link.
func LinkReversal(q Querier, sourceID, reversalID uuid.UUID) error {
	if _, err := q.Exec(`UPDATE journal_entries SET reversed_by_id = ?, status = ? WHERE id = ?`,
		reversalID.String(), string(model.StatusReversed), sourceID.String()); err != nil {
		return fmt.Errorf("linking source entry: %w", err)
	}
	return nil
}

// DeleteEntry removes an entry and (via cascade) its lines.
func DeleteEntry(q Querier, id uuid.UUID) error {
	if _, err := q.Exec(`DELETE FROM journal_entries WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("deleting entry %s: %w", id, err)
	}
	return nil
}

// GetEntry reads one entry with its lines, ordered by line number.
func GetEntry(q Querier, id uuid.UUID) (model.JournalEntry, error) {
	row := q.QueryRow(entrySelect+` WHERE id = ?`, id.String())
	e, err := scanEntry(row)
	if err != nil {
		return model.JournalEntry{}, err
	}
	e.Lines, err = entryLines(q, e.ID)
	return e, err
}

// ListEntriesByDateRange returns entries with dates in [from, to],
// ordered by date then entry number.
func ListEntriesByDateRange(q Querier, from, to time.Time) ([]model.JournalEntry, error) {
	rows, err := q.Query(entrySelect+` WHERE entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, entry_number`, from.Format(DateFormat), to.Format(DateFormat))
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Lines, err = entryLines(q, entries[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// AccountLine pairs a journal line with its owning entry's date and status.
type AccountLine struct {
	Line        model.JournalEntryLine
	EntryDate   time.Time
	EntryStatus model.EntryStatus
}

// LinesByAccount returns lines on an account whose entry date falls in
// [from, to]. postedOnly restricts to posted and reversed-source entries.
func LinesByAccount(q Querier, accountID uuid.UUID, from, to time.Time, postedOnly bool) ([]AccountLine, error) {
	query := `
		SELECT l.id, l.entry_id, l.account_id, l.description, l.debit, l.credit, l.reference,
		       e.entry_date, e.status
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = ? AND e.entry_date >= ? AND e.entry_date <= ?`
	if postedOnly {
		query += ` AND e.status IN ('posted', 'reversed')`
	}
	query += ` ORDER BY e.entry_date, e.entry_number, l.line_no`

	rows, err := q.Query(query, accountID.String(), from.Format(DateFormat), to.Format(DateFormat))
	if err != nil {
		return nil, fmt.Errorf("listing account lines: %w", err)
	}
	defer rows.Close()

	var out []AccountLine
	for rows.Next() {
		var al AccountLine
		var id, entryID, acctID, dateStr, status string
		var debit, credit int64
		if err := rows.Scan(&id, &entryID, &acctID, &al.Line.Description,
			&debit, &credit, &al.Line.Reference, &dateStr, &status); err != nil {
			return nil, err
		}
		if al.Line.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing line id %q: %w", id, err)
		}
		if al.Line.EntryID, err = uuid.Parse(entryID); err != nil {
			return nil, fmt.Errorf("parsing entry id %q: %w", entryID, err)
		}
		if al.Line.AccountID, err = uuid.Parse(acctID); err != nil {
			return nil, fmt.Errorf("parsing account id %q: %w", acctID, err)
		}
		al.Line.Debit = model.FromMinor(debit)
		al.Line.Credit = model.FromMinor(credit)
		if al.EntryDate, err = time.Parse(DateFormat, dateStr); err != nil {
			return nil, fmt.Errorf("parsing entry date %q: %w", dateStr, err)
		}
		al.EntryStatus = model.EntryStatus(status)
		out = append(out, al)
	}
	return out, rows.Err()
}

// NetMovements returns, per account, the net signed movement
// (debits minus credits, minor units) of posted and reversed-source
// lines with entry dates in [from, to].
func NetMovements(q Querier, from, to time.Time) (map[uuid.UUID]int64, error) {
	rows, err := q.Query(`
		SELECT l.account_id, SUM(l.debit - l.credit)
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.status IN ('posted', 'reversed')
		  AND e.entry_date >= ? AND e.entry_date <= ?
		GROUP BY l.account_id`,
		from.Format(DateFormat), to.Format(DateFormat))
	if err != nil {
		return nil, fmt.Errorf("aggregating movements: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int64)
	for rows.Next() {
		var aid string
		var net int64
		if err := rows.Scan(&aid, &net); err != nil {
			return nil, err
		}
		uid, err := uuid.Parse(aid)
		if err != nil {
			return nil, fmt.Errorf("parsing account id %q: %w", aid, err)
		}
		out[uid] = net
	}
	return out, rows.Err()
}

const entrySelect = `
	SELECT id, entry_number, type, status, entry_date, description, reference,
	       total_debits, total_credits, reverses_id, reversed_by_id
	FROM journal_entries`

func scanEntry(r rowScanner) (model.JournalEntry, error) {
	var e model.JournalEntry
	var id, typ, status, dateStr string
	var number, reverses, reversedBy sql.NullString
	var debits, credits int64
	err := r.Scan(&id, &number, &typ, &status, &dateStr, &e.Description,
		&e.Reference, &debits, &credits, &reverses, &reversedBy)
	if err != nil {
		return model.JournalEntry{}, err
	}

	if e.ID, err = uuid.Parse(id); err != nil {
		return model.JournalEntry{}, fmt.Errorf("parsing entry id %q: %w", id, err)
	}
	e.EntryNumber = number.String
	e.Type = model.EntryType(typ)
	e.Status = model.EntryStatus(status)
	if e.Date, err = time.Parse(DateFormat, dateStr); err != nil {
		return model.JournalEntry{}, fmt.Errorf("parsing entry date %q: %w", dateStr, err)
	}
	e.TotalDebits = model.FromMinor(debits)
	e.TotalCredits = model.FromMinor(credits)

	if reverses.Valid {
		if e.ReversesID, err = uuid.Parse(reverses.String); err != nil {
			return model.JournalEntry{}, fmt.Errorf("parsing reverses id: %w", err)
		}
	}
	if reversedBy.Valid {
		if e.ReversedByID, err = uuid.Parse(reversedBy.String); err != nil {
			return model.JournalEntry{}, fmt.Errorf("parsing reversed-by id: %w", err)
		}
	}
	return e, nil
}

func entryLines(q Querier, entryID uuid.UUID) ([]model.JournalEntryLine, error) {
	rows, err := q.Query(`
		SELECT id, entry_id, account_id, description, debit, credit, reference
		FROM journal_entry_lines WHERE entry_id = ? ORDER BY line_no`, entryID.String())
	if err != nil {
		return nil, fmt.Errorf("listing entry lines: %w", err)
	}
	defer rows.Close()

	var lines []model.JournalEntryLine
	for rows.Next() {
		var l model.JournalEntryLine
		var id, eid, aid string
		var debit, credit int64
		if err := rows.Scan(&id, &eid, &aid, &l.Description, &debit, &credit, &l.Reference); err != nil {
			return nil, err
		}
		if l.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing line id %q: %w", id, err)
		}
		if l.EntryID, err = uuid.Parse(eid); err != nil {
			return nil, fmt.Errorf("parsing entry id %q: %w", eid, err)
		}
		if l.AccountID, err = uuid.Parse(aid); err != nil {
			return nil, fmt.Errorf("parsing account id %q: %w", aid, err)
		}
		l.Debit = model.FromMinor(debit)
		l.Credit = model.FromMinor(credit)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func insertLines(q Querier, entryID uuid.UUID, lines []model.JournalEntryLine) error {
	for i, l := range lines {
		_, err := q.Exec(`
			INSERT INTO journal_entry_lines (id, entry_id, account_id, line_no, description, debit, credit, reference)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID.String(), entryID.String(), l.AccountID.String(), i,
			l.Description, model.ToMinor(l.Debit), model.ToMinor(l.Credit), l.Reference)
		if err != nil {
			return fmt.Errorf("inserting line %d: %w", i, err)
		}
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}
