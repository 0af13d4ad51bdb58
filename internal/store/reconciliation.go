package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bizledger/ledgerd/internal/model"
)

// InsertReconciliation writes a new reconciliation shell.
func InsertReconciliation(q Querier, r model.BankReconciliation) error {
	_, err := q.Exec(`
		INSERT INTO reconciliations
			(id, account_id, period_start, period_end, statement_ending_balance, book_balance_start, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.AccountID.String(),
		r.PeriodStart.Format(DateFormat), r.PeriodEnd.Format(DateFormat),
		model.ToMinor(r.StatementEndingBalance), model.ToMinor(r.BookBalanceStart),
		string(r.Status))
	if err != nil {
		return fmt.Errorf("inserting reconciliation: %w", err)
	}
	return nil
}

// GetReconciliation reads one reconciliation by id.
func GetReconciliation(q Querier, id uuid.UUID) (model.BankReconciliation, error) {
	var r model.BankReconciliation
	var rid, aid, startStr, endStr, status string
	var ending, bookStart int64
	err := q.QueryRow(`
		SELECT id, account_id, period_start, period_end, statement_ending_balance, book_balance_start, status
		FROM reconciliations WHERE id = ?`, id.String()).
		Scan(&rid, &aid, &startStr, &endStr, &ending, &bookStart, &status)
	if err != nil {
		return model.BankReconciliation{}, err
	}

	if r.ID, err = uuid.Parse(rid); err != nil {
		return model.BankReconciliation{}, fmt.Errorf("parsing reconciliation id: %w", err)
	}
	if r.AccountID, err = uuid.Parse(aid); err != nil {
		return model.BankReconciliation{}, fmt.Errorf("parsing account id: %w", err)
	}
	if r.PeriodStart, err = time.Parse(DateFormat, startStr); err != nil {
		return model.BankReconciliation{}, fmt.Errorf("parsing period start: %w", err)
	}
	if r.PeriodEnd, err = time.Parse(DateFormat, endStr); err != nil {
		return model.BankReconciliation{}, fmt.Errorf("parsing period end: %w", err)
	}
	r.StatementEndingBalance = model.FromMinor(ending)
	r.BookBalanceStart = model.FromMinor(bookStart)
	r.Status = model.ReconciliationStatus(status)
	return r, nil
}

// UpdateReconciliationStatus transitions a reconciliation's status.
func UpdateReconciliationStatus(q Querier, id uuid.UUID, status model.ReconciliationStatus) error {
	_, err := q.Exec(`UPDATE reconciliations SET status = ? WHERE id = ?`, string(status), id.String())
	if err != nil {
		return fmt.Errorf("updating reconciliation status: %w", err)
	}
	return nil
}

// InsertStatementLines writes a batch of bank statement lines.
func InsertStatementLines(q Querier, lines []model.BankStatementLine) error {
	for i, l := range lines {
		_, err := q.Exec(`
			INSERT INTO bank_statement_lines (id, reconciliation_id, line_date, amount, description, external_id)
			VALUES (?, ?, ?, ?, ?, ?)`,
			l.ID.String(), l.ReconciliationID.String(), l.Date.Format(DateFormat),
			model.ToMinor(l.Amount), l.Description, l.ExternalID)
		if err != nil {
			return fmt.Errorf("inserting statement line %d: %w", i, err)
		}
	}
	return nil
}

// ListStatementLines returns a reconciliation's statement lines in
// date order.
func ListStatementLines(q Querier, reconciliationID uuid.UUID) ([]model.BankStatementLine, error) {
	rows, err := q.Query(`
		SELECT id, reconciliation_id, line_date, amount, description, external_id
		FROM bank_statement_lines WHERE reconciliation_id = ?
		ORDER BY line_date, external_id`, reconciliationID.String())
	if err != nil {
		return nil, fmt.Errorf("listing statement lines: %w", err)
	}
	defer rows.Close()

	var lines []model.BankStatementLine
	for rows.Next() {
		var l model.BankStatementLine
		var id, rid, dateStr string
		var amount int64
		if err := rows.Scan(&id, &rid, &dateStr, &amount, &l.Description, &l.ExternalID); err != nil {
			return nil, err
		}
		if l.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing statement line id: %w", err)
		}
		if l.ReconciliationID, err = uuid.Parse(rid); err != nil {
			return nil, fmt.Errorf("parsing reconciliation id: %w", err)
		}
		if l.Date, err = time.Parse(DateFormat, dateStr); err != nil {
			return nil, fmt.Errorf("parsing statement line date: %w", err)
		}
		l.Amount = model.FromMinor(amount)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// InsertMatch records a statement-line-to-journal-line pairing. The
// unique index on statement_line_id rejects double assignment.
func InsertMatch(q Querier, m model.Match) error {
	_, err := q.Exec(`
		INSERT INTO reconciliation_matches (id, reconciliation_id, statement_line_id, journal_line_id, auto)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID.String(), m.ReconciliationID.String(), m.StatementLineID.String(),
		m.JournalLineID.String(), boolInt(m.Auto))
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// DeleteMatch removes the match for a statement line, if any.
func DeleteMatch(q Querier, reconciliationID, statementLineID uuid.UUID) error {
	_, err := q.Exec(`
		DELETE FROM reconciliation_matches
		WHERE reconciliation_id = ? AND statement_line_id = ?`,
		reconciliationID.String(), statementLineID.String())
	if err != nil {
		return fmt.Errorf("deleting match: %w", err)
	}
	return nil
}

// ListMatches returns all matches for a reconciliation.
func ListMatches(q Querier, reconciliationID uuid.UUID) ([]model.Match, error) {
	rows, err := q.Query(`
		SELECT id, reconciliation_id, statement_line_id, journal_line_id, auto
		FROM reconciliation_matches WHERE reconciliation_id = ?`, reconciliationID.String())
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	var matches []model.Match
	for rows.Next() {
		var m model.Match
		var id, rid, sid, jid string
		var auto int
		if err := rows.Scan(&id, &rid, &sid, &jid, &auto); err != nil {
			return nil, err
		}
		if m.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing match id: %w", err)
		}
		if m.ReconciliationID, err = uuid.Parse(rid); err != nil {
			return nil, fmt.Errorf("parsing reconciliation id: %w", err)
		}
		if m.StatementLineID, err = uuid.Parse(sid); err != nil {
			return nil, fmt.Errorf("parsing statement line id: %w", err)
		}
		if m.JournalLineID, err = uuid.Parse(jid); err != nil {
			return nil, fmt.Errorf("parsing journal line id: %w", err)
		}
		m.Auto = auto == 1
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
