// Package store is the SQLite persistence layer for the ledger. It owns
// the schema, the entry-number sequence, closed accounting periods, and
// the halt flag raised on consistency failures. All monetary columns are
// integer minor units.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store manages a SQLite database connection.
type Store struct {
	db   *sql.DB
	path string
}

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx,
// so row helpers work inside and outside transactions.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Open opens (creating if needed) a ledger database at path. WAL mode
// keeps readers on a consistent snapshot while a posting commits.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// DB returns the underlying connection for one-off queries.
func (s *Store) DB() *sql.DB { return s.db }

// Transaction runs fn inside a transaction, rolling back on error or
// panic and committing otherwise.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Read runs fn inside a read-only snapshot transaction. Balance queries
// never observe a half-posted entry.
func (s *Store) Read(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

// NextEntryNumber claims the next entry sequence number inside the
// caller's transaction. The counter row only moves when the transaction
// commits, so a failed post never consumes a number.
func NextEntryNumber(tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRow(`SELECT next_number FROM entry_sequence WHERE id = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reading entry sequence: %w", err)
	}
	if _, err := tx.Exec(`UPDATE entry_sequence SET next_number = next_number + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("advancing entry sequence: %w", err)
	}
	return n, nil
}

// ClosePeriod marks an accounting period as closed.
func ClosePeriod(q Querier, year, month int) error {
	_, err := q.Exec(`INSERT OR IGNORE INTO closed_periods (year, month) VALUES (?, ?)`, year, month)
	if err != nil {
		return fmt.Errorf("closing period %04d-%02d: %w", year, month, err)
	}
	return nil
}

// IsPeriodClosed reports whether year/month has been closed.
func IsPeriodClosed(q Querier, year, month int) (bool, error) {
	var one int
	err := q.QueryRow(`SELECT 1 FROM closed_periods WHERE year = ? AND month = ?`, year, month).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking closed period: %w", err)
	}
	return true, nil
}

// Halt records a consistency failure. Postings refuse while halted.
func Halt(q Querier, reason string) error {
	_, err := q.Exec(`UPDATE ledger_state SET halted = 1, halt_reason = ? WHERE id = 1`, reason)
	if err != nil {
		return fmt.Errorf("halting ledger: %w", err)
	}
	return nil
}

// Halted returns the halt flag and the recorded reason.
func Halted(q Querier) (bool, string, error) {
	var halted int
	var reason sql.NullString
	err := q.QueryRow(`SELECT halted, halt_reason FROM ledger_state WHERE id = 1`).Scan(&halted, &reason)
	if err != nil {
		return false, "", fmt.Errorf("reading ledger state: %w", err)
	}
	return halted == 1, reason.String, nil
}

// ClearHalt lifts the halt after manual investigation.
func ClearHalt(q Querier) error {
	_, err := q.Exec(`UPDATE ledger_state SET halted = 0, halt_reason = NULL WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("clearing ledger halt: %w", err)
	}
	return nil
}
