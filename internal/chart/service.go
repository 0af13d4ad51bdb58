// Package chart owns the hierarchical chart of accounts. Accounts form
// a strict tree via parent ids; cycles and cross-type parenting are
// rejected at write time. Accounts referenced by journal history are
// deactivated, never deleted.
package chart

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizledger/ledgerd/internal/ledgererr"
	"github.com/bizledger/ledgerd/internal/model"
	"github.com/bizledger/ledgerd/internal/store"
)

// Service provides chart-of-accounts operations over the store.
type Service struct {
	store *store.Store
}

// NewService creates a chart Service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// CreateParams holds parameters for creating an account.
type CreateParams struct {
	Code        string
	Name        string
	Type        model.AccountType
	ParentID    uuid.UUID // uuid.Nil for top-level
	Cash        bool
	Description string
}

// Create adds an account to the chart. The code must be unique and the
// type must match the subtree root's type when a parent is given.
func (s *Service) Create(params CreateParams) (model.Account, error) {
	if params.Code == "" || params.Name == "" {
		return model.Account{}, ledgererr.Validation(ledgererr.CodeInvalidLine, uuid.Nil, "code and name are required")
	}
	if !params.Type.Valid() {
		return model.Account{}, ledgererr.Validation(ledgererr.CodeTypeMismatch, uuid.Nil,
			fmt.Sprintf("unknown account type %q", params.Type))
	}

	acct := model.Account{
		ID:          uuid.New(),
		Code:        params.Code,
		Name:        params.Name,
		Type:        params.Type,
		ParentID:    params.ParentID,
		Active:      true,
		Cash:        params.Cash,
		Description: params.Description,
	}

	err := s.store.Transaction(func(tx *sql.Tx) error {
		if _, err := store.GetAccountByCode(tx, params.Code); err == nil {
			return ledgererr.Validation(ledgererr.CodeDuplicateCode, uuid.Nil,
				fmt.Sprintf("account code %q already exists", params.Code))
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if params.ParentID != uuid.Nil {
			rootType, err := s.subtreeRootType(tx, params.ParentID)
			if err != nil {
				return err
			}
			if rootType != params.Type {
				return ledgererr.Validation(ledgererr.CodeTypeMismatch, params.ParentID,
					fmt.Sprintf("account type %s does not match subtree root type %s", params.Type, rootType))
			}
		}

		return store.InsertAccount(tx, acct)
	})
	if err != nil {
		return model.Account{}, err
	}
	return acct, nil
}

// Deactivate marks an account inactive. It fails with AccountInUse while
// journal lines leave a nonzero balance on the account. History is never
// deleted.
func (s *Service) Deactivate(id uuid.UUID) error {
	return s.store.Transaction(func(tx *sql.Tx) error {
		if _, err := store.GetAccount(tx, id); errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, id, "account does not exist")
		} else if err != nil {
			return err
		}

		count, net, err := store.AccountLineStats(tx, id)
		if err != nil {
			return err
		}
		if count > 0 && net != 0 {
			return ledgererr.Conflict(ledgererr.CodeAccountInUse, id,
				fmt.Sprintf("account carries a balance of %s across %d lines",
					model.FromMinor(net).StringFixed(model.MinorUnits), count))
		}

		return store.UpdateAccountActive(tx, id, false)
	})
}

// Get returns an account by id.
func (s *Service) Get(id uuid.UUID) (model.Account, error) {
	var a model.Account
	err := s.store.Read(func(tx *sql.Tx) error {
		var err error
		a, err = store.GetAccount(tx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, id, "account does not exist")
		}
		return err
	})
	return a, err
}

// GetByCode returns an account by code.
func (s *Service) GetByCode(code string) (model.Account, error) {
	var a model.Account
	err := s.store.Read(func(tx *sql.Tx) error {
		var err error
		a, err = store.GetAccountByCode(tx, code)
		if errors.Is(err, sql.ErrNoRows) {
			return ledgererr.Conflict(ledgererr.CodeNotFound, uuid.Nil,
				fmt.Sprintf("no account with code %q", code))
		}
		return err
	})
	return a, err
}

// All returns every account ordered by code.
func (s *Service) All() ([]model.Account, error) {
	var accounts []model.Account
	err := s.store.Read(func(tx *sql.Tx) error {
		var err error
		accounts, err = store.ListAccounts(tx)
		return err
	})
	return accounts, err
}

// Hierarchy returns the account forest, children ordered by code within
// each level.
func (s *Service) Hierarchy() ([]*model.AccountNode, error) {
	accounts, err := s.All()
	if err != nil {
		return nil, err
	}
	return BuildForest(accounts), nil
}

// SubtreeIDs returns the ids of an account and all its descendants.
func (s *Service) SubtreeIDs(id uuid.UUID) ([]uuid.UUID, error) {
	accounts, err := s.All()
	if err != nil {
		return nil, err
	}

	children := make(map[uuid.UUID][]uuid.UUID)
	for _, a := range accounts {
		if a.ParentID != uuid.Nil {
			children[a.ParentID] = append(children[a.ParentID], a.ID)
		}
	}

	var out []uuid.UUID
	var walk func(uuid.UUID)
	walk = func(cur uuid.UUID) {
		out = append(out, cur)
		for _, c := range children[cur] {
			walk(c)
		}
	}
	walk(id)
	return out, nil
}

// BuildForest assembles accounts into trees sorted by code per level.
func BuildForest(accounts []model.Account) []*model.AccountNode {
	nodes := make(map[uuid.UUID]*model.AccountNode, len(accounts))
	for _, a := range accounts {
		nodes[a.ID] = &model.AccountNode{Account: a}
	}

	var roots []*model.AccountNode
	for _, a := range accounts {
		n := nodes[a.ID]
		if a.ParentID == uuid.Nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[a.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	var sortLevel func([]*model.AccountNode)
	sortLevel = func(level []*model.AccountNode) {
		sort.Slice(level, func(i, j int) bool { return level[i].Code < level[j].Code })
		for _, n := range level {
			sortLevel(n.Children)
		}
	}
	sortLevel(roots)
	return roots
}

// subtreeRootType walks parent links to the root and returns its type.
// The walk is bounded by the visited set, so a corrupt parent chain
// cannot loop.
func (s *Service) subtreeRootType(tx *sql.Tx, id uuid.UUID) (model.AccountType, error) {
	visited := make(map[uuid.UUID]bool)
	cur := id
	for {
		if visited[cur] {
			return "", ledgererr.Fatal(ledgererr.CodeTypeMismatch,
				decimal.Zero, decimal.Zero, "cycle detected in account parent chain")
		}
		visited[cur] = true

		a, err := store.GetAccount(tx, cur)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ledgererr.Validation(ledgererr.CodeNotFound, cur, "parent account does not exist")
		}
		if err != nil {
			return "", err
		}
		if a.ParentID == uuid.Nil {
			return a.Type, nil
		}
		cur = a.ParentID
	}
}
