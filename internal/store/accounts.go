package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bizledger/ledgerd/internal/model"
)

// InsertAccount writes a new account row.
func InsertAccount(q Querier, a model.Account) error {
	var parent any
	if a.ParentID != uuid.Nil {
		parent = a.ParentID.String()
	}
	_, err := q.Exec(`
		INSERT INTO accounts (id, code, name, type, parent_id, active, cash, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.Code, a.Name, string(a.Type), parent,
		boolInt(a.Active), boolInt(a.Cash), a.Description)
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.Code, err)
	}
	return nil
}

// UpdateAccountActive flips the active flag. Accounts are never deleted.
func UpdateAccountActive(q Querier, id uuid.UUID, active bool) error {
	res, err := q.Exec(`UPDATE accounts SET active = ? WHERE id = ?`, boolInt(active), id.String())
	if err != nil {
		return fmt.Errorf("updating account %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetAccount reads one account by id.
func GetAccount(q Querier, id uuid.UUID) (model.Account, error) {
	row := q.QueryRow(accountSelect+` WHERE id = ?`, id.String())
	return scanAccount(row)
}

// GetAccountByCode reads one account by code.
func GetAccountByCode(q Querier, code string) (model.Account, error) {
	row := q.QueryRow(accountSelect+` WHERE code = ?`, code)
	return scanAccount(row)
}

// ListAccounts returns all accounts ordered by code.
func ListAccounts(q Querier) ([]model.Account, error) {
	rows, err := q.Query(accountSelect + ` ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// AccountHasChildren reports whether any account names this one as its
// parent.
func AccountHasChildren(q Querier, id uuid.UUID) (bool, error) {
	var one int
	err := q.QueryRow(`SELECT 1 FROM accounts WHERE parent_id = ? LIMIT 1`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking children of account %s: %w", id, err)
	}
	return true, nil
}

// AccountLineStats returns the count of journal lines referencing an
// account and its net signed movement (debits minus credits) in minor
// units, across entries of any status.
func AccountLineStats(q Querier, id uuid.UUID) (count int, net int64, err error) {
	err = q.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(debit - credit), 0)
		FROM journal_entry_lines WHERE account_id = ?`, id.String()).Scan(&count, &net)
	if err != nil {
		return 0, 0, fmt.Errorf("reading account line stats: %w", err)
	}
	return count, net, nil
}

const accountSelect = `SELECT id, code, name, type, parent_id, active, cash, description FROM accounts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (model.Account, error) {
	var a model.Account
	var id string
	var parent sql.NullString
	var typ string
	var active, cash int
	if err := r.Scan(&id, &a.Code, &a.Name, &typ, &parent, &active, &cash, &a.Description); err != nil {
		return model.Account{}, err
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account id %q: %w", id, err)
	}
	a.ID = uid
	a.Type = model.AccountType(typ)
	a.Active = active == 1
	a.Cash = cash == 1

	if parent.Valid {
		pid, err := uuid.Parse(parent.String)
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing parent id %q: %w", parent.String, err)
		}
		a.ParentID = pid
	}
	return a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
