package store

import "fmt"

// schema is applied on every Open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	parent_id   TEXT REFERENCES accounts(id),
	active      INTEGER NOT NULL DEFAULT 1,
	cash        INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS journal_entries (
	id             TEXT PRIMARY KEY,
	entry_number   TEXT UNIQUE,
	type           TEXT NOT NULL,
	status         TEXT NOT NULL,
	entry_date     TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	reference      TEXT NOT NULL DEFAULT '',
	total_debits   INTEGER NOT NULL DEFAULT 0,
	total_credits  INTEGER NOT NULL DEFAULT 0,
	reverses_id    TEXT REFERENCES journal_entries(id),
	reversed_by_id TEXT REFERENCES journal_entries(id)
);

CREATE INDEX IF NOT EXISTS idx_entries_date ON journal_entries(entry_date);

CREATE TABLE IF NOT EXISTS journal_entry_lines (
	id          TEXT PRIMARY KEY,
	entry_id    TEXT NOT NULL REFERENCES journal_entries(id) ON DELETE CASCADE,
	account_id  TEXT NOT NULL REFERENCES accounts(id),
	line_no     INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	debit       INTEGER NOT NULL DEFAULT 0,
	credit      INTEGER NOT NULL DEFAULT 0,
	reference   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_lines_entry ON journal_entry_lines(entry_id);
CREATE INDEX IF NOT EXISTS idx_lines_account ON journal_entry_lines(account_id);

CREATE TABLE IF NOT EXISTS entry_sequence (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	next_number INTEGER NOT NULL
);

INSERT OR IGNORE INTO entry_sequence (id, next_number) VALUES (1, 1);

CREATE TABLE IF NOT EXISTS closed_periods (
	year  INTEGER NOT NULL,
	month INTEGER NOT NULL,
	PRIMARY KEY (year, month)
);

CREATE TABLE IF NOT EXISTS ledger_state (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	halted      INTEGER NOT NULL DEFAULT 0,
	halt_reason TEXT
);

INSERT OR IGNORE INTO ledger_state (id, halted) VALUES (1, 0);

CREATE TABLE IF NOT EXISTS reconciliations (
	id                       TEXT PRIMARY KEY,
	account_id               TEXT NOT NULL REFERENCES accounts(id),
	period_start             TEXT NOT NULL,
	period_end               TEXT NOT NULL,
	statement_ending_balance INTEGER NOT NULL,
	book_balance_start       INTEGER NOT NULL,
	status                   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bank_statement_lines (
	id                TEXT PRIMARY KEY,
	reconciliation_id TEXT NOT NULL REFERENCES reconciliations(id) ON DELETE CASCADE,
	line_date         TEXT NOT NULL,
	amount            INTEGER NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	external_id       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS reconciliation_matches (
	id                TEXT PRIMARY KEY,
	reconciliation_id TEXT NOT NULL REFERENCES reconciliations(id) ON DELETE CASCADE,
	statement_line_id TEXT NOT NULL UNIQUE REFERENCES bank_statement_lines(id),
	journal_line_id   TEXT NOT NULL REFERENCES journal_entry_lines(id),
	auto              INTEGER NOT NULL DEFAULT 0
);
`

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
