// Package memory is an in-process ports.Store used by the memory backend
// and by tests. It follows the same NotFound and Conflict rules as the
// SQLite repository.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"finance/internal/core"
	"finance/internal/ports"
)

// Store guards a state with one mutex. Every call, and every WithinTx as a
// whole, holds it, so a transaction never interleaves with other writes.
type Store struct {
	mu   sync.Mutex
	data state
	now  func() time.Time
}

type state struct {
	seq          int64
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	transfers    map[int64]core.Transfer
	obligations  map[int64]core.Obligation
}

// view runs store operations on a state without locking. The Store hands
// one to fn inside WithinTx and uses one under its own lock otherwise.
type view struct {
	data *state
	now  func() time.Time
}

var (
	_ ports.Store      = (*Store)(nil)
	_ ports.Transactor = (*Store)(nil)
	_ ports.Store      = view{}
)

func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

func newState() state {
	return state{
		accounts:     map[int64]core.Account{},
		categories:   map[int64]core.Category{},
		transactions: map[int64]core.Transaction{},
		transfers:    map[int64]core.Transfer{},
		obligations:  map[int64]core.Obligation{},
	}
}

func (s state) clone() state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.transfers {
		c.transfers[k] = v
	}
	for k, v := range s.obligations {
		c.obligations[k] = v.Clone()
	}
	return c
}

// WithinTx runs fn on a private copy of the state while holding the store
// lock, and publishes the copy only when fn succeeds. Calls on the Store
// itself from inside fn would deadlock; fn must use the Store it receives.
func (s *Store) WithinTx(_ context.Context, fn func(ports.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(view{data: &work, now: s.now}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func locked[T any](s *Store, fn func(v view) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(view{data: &s.data, now: s.now})
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	return locked(s, func(v view) (core.Account, error) { return v.CreateAccount(ctx, a) })
}

func (s *Store) GetAccount(ctx context.Context, id, userID int64) (core.Account, error) {
	return locked(s, func(v view) (core.Account, error) { return v.GetAccount(ctx, id, userID) })
}

func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	return locked(s, func(v view) ([]core.Account, error) { return v.ListAccounts(ctx, userID) })
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return locked(s, func(v view) (core.Category, error) { return v.CreateCategory(ctx, c) })
}

func (s *Store) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	return locked(s, func(v view) (core.Category, error) { return v.GetCategory(ctx, id, userID) })
}

func (s *Store) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return locked(s, func(v view) ([]core.Category, error) { return v.ListCategories(ctx, userID) })
}

func (s *Store) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return locked(s, func(v view) (core.Transaction, error) { return v.CreateTransaction(ctx, t) })
}

func (s *Store) CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	return locked(s, func(v view) (core.Transfer, error) { return v.CreateTransfer(ctx, t) })
}

func (s *Store) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	return locked(s, func(v view) (core.Transaction, error) { return v.GetTransaction(ctx, id, userID) })
}

func (s *Store) GetTransfer(ctx context.Context, id, userID int64) (core.Transfer, error) {
	return locked(s, func(v view) (core.Transfer, error) { return v.GetTransfer(ctx, id, userID) })
}

func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return locked(s, func(v view) (core.Transaction, error) { return v.UpdateTransaction(ctx, t) })
}

func (s *Store) UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	return locked(s, func(v view) (core.Transfer, error) { return v.UpdateTransfer(ctx, t) })
}

func (s *Store) DeleteTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	return locked(s, func(v view) (core.Transaction, error) { return v.DeleteTransaction(ctx, id, userID) })
}

func (s *Store) DeleteTransfer(ctx context.Context, id, userID int64) (core.Transfer, error) {
	return locked(s, func(v view) (core.Transfer, error) { return v.DeleteTransfer(ctx, id, userID) })
}

func (s *Store) TransactionsForAccount(ctx context.Context, accountID, userID int64) ([]core.CategorizedTransaction, error) {
	return locked(s, func(v view) ([]core.CategorizedTransaction, error) {
		return v.TransactionsForAccount(ctx, accountID, userID)
	})
}

func (s *Store) TransfersFromAccount(ctx context.Context, accountID, userID int64) ([]core.Transfer, error) {
	return locked(s, func(v view) ([]core.Transfer, error) { return v.TransfersFromAccount(ctx, accountID, userID) })
}

func (s *Store) TransfersToAccount(ctx context.Context, accountID, userID int64) ([]core.Transfer, error) {
	return locked(s, func(v view) ([]core.Transfer, error) { return v.TransfersToAccount(ctx, accountID, userID) })
}

func (s *Store) LoadObligation(ctx context.Context, id, userID int64) (core.Obligation, error) {
	return locked(s, func(v view) (core.Obligation, error) { return v.LoadObligation(ctx, id, userID) })
}

func (s *Store) ListObligations(ctx context.Context, userID int64) ([]core.Obligation, error) {
	return locked(s, func(v view) ([]core.Obligation, error) { return v.ListObligations(ctx, userID) })
}

func (s *Store) SaveObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	return locked(s, func(v view) (core.Obligation, error) { return v.SaveObligation(ctx, o) })
}

func (s *Store) DeleteObligation(ctx context.Context, id, userID int64) (core.Obligation, error) {
	return locked(s, func(v view) (core.Obligation, error) { return v.DeleteObligation(ctx, id, userID) })
}

func (v view) nextID() int64 {
	v.data.seq++
	return v.data.seq
}

func (v view) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	a.ID = v.nextID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = v.now().UTC()
	}
	v.data.accounts[a.ID] = a
	return a, nil
}

func (v view) GetAccount(_ context.Context, id, userID int64) (core.Account, error) {
	a, ok := v.data.accounts[id]
	if !ok || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (v view) ListAccounts(_ context.Context, userID int64) ([]core.Account, error) {
	var out []core.Account
	for _, a := range v.data.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v view) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.ID = v.nextID()
	v.data.categories[c.ID] = c
	return c, nil
}

func (v view) GetCategory(_ context.Context, id, userID int64) (core.Category, error) {
	c, ok := v.data.categories[id]
	if !ok || c.UserID != userID {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (v view) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range v.data.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v view) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = v.nextID()
	v.data.transactions[t.ID] = t
	return t, nil
}

func (v view) CreateTransfer(_ context.Context, t core.Transfer) (core.Transfer, error) {
	t.ID = v.nextID()
	v.data.transfers[t.ID] = t
	return t, nil
}

func (v view) GetTransaction(_ context.Context, id, userID int64) (core.Transaction, error) {
	t, ok := v.data.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (v view) GetTransfer(_ context.Context, id, userID int64) (core.Transfer, error) {
	t, ok := v.data.transfers[id]
	if !ok || t.UserID != userID {
		return core.Transfer{}, core.ErrNotFound
	}
	return t, nil
}

func (v view) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if _, err := v.GetTransaction(ctx, t.ID, t.UserID); err != nil {
		return core.Transaction{}, err
	}
	v.data.transactions[t.ID] = t
	return t, nil
}

func (v view) UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	if _, err := v.GetTransfer(ctx, t.ID, t.UserID); err != nil {
		return core.Transfer{}, err
	}
	v.data.transfers[t.ID] = t
	return t, nil
}

func (v view) DeleteTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	t, err := v.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	delete(v.data.transactions, id)
	return t, nil
}

func (v view) DeleteTransfer(ctx context.Context, id, userID int64) (core.Transfer, error) {
	t, err := v.GetTransfer(ctx, id, userID)
	if err != nil {
		return core.Transfer{}, err
	}
	delete(v.data.transfers, id)
	return t, nil
}

func (v view) TransactionsForAccount(_ context.Context, accountID, userID int64) ([]core.CategorizedTransaction, error) {
	var out []core.CategorizedTransaction
	for _, t := range v.data.transactions {
		if t.AccountID != accountID || t.UserID != userID {
			continue
		}
		out = append(out, core.CategorizedTransaction{Transaction: t, Category: v.data.categories[t.CategoryID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transaction.ID < out[j].Transaction.ID })
	return out, nil
}

func (v view) TransfersFromAccount(_ context.Context, accountID, userID int64) ([]core.Transfer, error) {
	return v.transfersWhere(func(t core.Transfer) bool {
		return t.OriginAccountID == accountID && t.UserID == userID
	}), nil
}

func (v view) TransfersToAccount(_ context.Context, accountID, userID int64) ([]core.Transfer, error) {
	return v.transfersWhere(func(t core.Transfer) bool {
		return t.DestinationAccountID == accountID && t.UserID == userID
	}), nil
}

func (v view) transfersWhere(match func(core.Transfer) bool) []core.Transfer {
	var out []core.Transfer
	for _, t := range v.data.transfers {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v view) LoadObligation(_ context.Context, id, userID int64) (core.Obligation, error) {
	o, ok := v.data.obligations[id]
	if !ok || o.UserID != userID {
		return core.Obligation{}, core.ErrNotFound
	}
	return o.Clone(), nil
}

func (v view) ListObligations(_ context.Context, userID int64) ([]core.Obligation, error) {
	var out []core.Obligation
	for _, o := range v.data.obligations {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v view) SaveObligation(_ context.Context, o core.Obligation) (core.Obligation, error) {
	if o.ID == 0 {
		o.ID = v.nextID()
		o.Version = 1
		v.data.obligations[o.ID] = o.Clone()
		return o, nil
	}
	cur, ok := v.data.obligations[o.ID]
	if !ok || cur.UserID != o.UserID {
		return core.Obligation{}, core.ErrNotFound
	}
	if cur.Version != o.Version {
		return core.Obligation{}, core.ErrConflict
	}
	o.Version++
	v.data.obligations[o.ID] = o.Clone()
	return o, nil
}

func (v view) DeleteObligation(_ context.Context, id, userID int64) (core.Obligation, error) {
	o, ok := v.data.obligations[id]
	if !ok || o.UserID != userID {
		return core.Obligation{}, core.ErrNotFound
	}
	delete(v.data.obligations, id)
	return o, nil
}
