package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/observability"
	"finance/internal/ports"
)

// LedgerService records accounts, categories and ad-hoc ledger entries that
// do not come from a scheduled obligation.
type LedgerService struct {
	store   ports.Store
	events  ports.EventPublisher
	metrics *observability.Metrics
	logger  *applog.Logger
	now     func() time.Time
}

func NewLedgerService(store ports.Store, events ports.EventPublisher, metrics *observability.Metrics) *LedgerService {
	return &LedgerService{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentLedger, Handler: slog.Default().Handler()}),
		now:     time.Now,
	}
}

func (s *LedgerService) CreateAccount(ctx context.Context, userID int64, name, description string) (core.Account, error) {
	a := core.Account{UserID: userID, Name: name, Description: description}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, storeErr("create account", err)
	}
	s.logger.InfoContext(ctx, "Account created",
		applog.FieldAccountID, created.ID,
		applog.FieldUserID, userID)
	return created, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id, userID)
	if err != nil {
		return core.Account{}, storeErr("get account", err)
	}
	return a, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	out, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}
	return out, nil
}

// CreateCategory stores an income or expense category. The transfer kinds
// are rejected since they only exist in the rendered feed.
func (s *LedgerService) CreateCategory(ctx context.Context, userID int64, name string, typ core.CategoryType) (core.Category, error) {
	c := core.Category{UserID: userID, Name: name, Type: typ}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, storeErr("create category", err)
	}
	return created, nil
}

// ListCategories lists the user's categories, keeping only those of typ
// when it is set.
func (s *LedgerService) ListCategories(ctx context.Context, userID int64, typ core.CategoryType) ([]core.Category, error) {
	if typ != "" && !typ.Storable() {
		return nil, fmt.Errorf("%w: %w: %q", core.ErrBadRequest, core.ErrInvalidCategoryType, typ)
	}
	all, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	if typ == "" {
		return all, nil
	}
	out := make([]core.Category, 0, len(all))
	for _, c := range all {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out, nil
}

// RecordTransaction books a transaction against an account the user owns.
// A zero date means today.
func (s *LedgerService) RecordTransaction(ctx context.Context, userID int64, tx core.Transaction) (core.Transaction, error) {
	tx.ID, tx.UserID = 0, userID
	if tx.Date.IsZero() {
		tx.Date = s.today()
	}
	tx.Date = core.DateOf(tx.Date)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := checkReferences(ctx, s.store, userID, core.TransactionPayload{AccountID: tx.AccountID, CategoryID: tx.CategoryID}); err != nil {
		return core.Transaction{}, err
	}
	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, storeErr("create transaction", err)
	}
	s.recorded(ctx, core.LedgerEntry{Kind: core.KindTransaction, Transaction: &created})
	return created, nil
}

// RecordTransfer moves money between two distinct accounts of the user.
func (s *LedgerService) RecordTransfer(ctx context.Context, userID int64, tr core.Transfer) (core.Transfer, error) {
	tr.ID, tr.UserID = 0, userID
	if tr.Date.IsZero() {
		tr.Date = s.today()
	}
	tr.Date = core.DateOf(tr.Date)
	if err := tr.Validate(); err != nil {
		return core.Transfer{}, err
	}
	if err := checkReferences(ctx, s.store, userID, core.TransferPayload{OriginAccountID: tr.OriginAccountID, DestinationAccountID: tr.DestinationAccountID}); err != nil {
		return core.Transfer{}, err
	}
	created, err := s.store.CreateTransfer(ctx, tr)
	if err != nil {
		return core.Transfer{}, storeErr("create transfer", err)
	}
	s.recorded(ctx, core.LedgerEntry{Kind: core.KindTransfer, Transfer: &created})
	return created, nil
}

// TransactionPatch carries the fields of a transaction to change; nil
// fields keep their stored value.
type TransactionPatch struct {
	AccountID   *int64
	CategoryID  *int64
	Value       *core.Money
	Description *string
	Date        *time.Time
}

// TransferPatch carries the fields of a transfer to change; nil fields keep
// their stored value.
type TransferPatch struct {
	OriginAccountID      *int64
	DestinationAccountID *int64
	Value                *core.Money
	Description          *string
	Date                 *time.Time
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	return tx, nil
}

func (s *LedgerService) GetTransfer(ctx context.Context, userID, id int64) (core.Transfer, error) {
	tr, err := s.store.GetTransfer(ctx, id, userID)
	if err != nil {
		return core.Transfer{}, storeErr("get transfer", err)
	}
	return tr, nil
}

// UpdateTransaction applies patch to a stored transaction and saves it under
// the same rules as RecordTransaction. Edits are not mirrored.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id int64, patch TransactionPatch) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	if patch.AccountID != nil {
		tx.AccountID = *patch.AccountID
	}
	if patch.CategoryID != nil {
		tx.CategoryID = *patch.CategoryID
	}
	if patch.Value != nil {
		tx.Value = *patch.Value
	}
	if patch.Description != nil {
		tx.Description = *patch.Description
	}
	if patch.Date != nil {
		tx.Date = core.DateOf(*patch.Date)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := checkReferences(ctx, s.store, userID, core.TransactionPayload{AccountID: tx.AccountID, CategoryID: tx.CategoryID}); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, storeErr("update transaction", err)
	}
	s.changed(ctx, applog.OpUpdate, core.KindTransaction, id, userID)
	return saved, nil
}

// UpdateTransfer applies patch to a stored transfer and saves it under the
// same rules as RecordTransfer. Edits are not mirrored.
func (s *LedgerService) UpdateTransfer(ctx context.Context, userID, id int64, patch TransferPatch) (core.Transfer, error) {
	tr, err := s.store.GetTransfer(ctx, id, userID)
	if err != nil {
		return core.Transfer{}, storeErr("get transfer", err)
	}
	if patch.OriginAccountID != nil {
		tr.OriginAccountID = *patch.OriginAccountID
	}
	if patch.DestinationAccountID != nil {
		tr.DestinationAccountID = *patch.DestinationAccountID
	}
	if patch.Value != nil {
		tr.Value = *patch.Value
	}
	if patch.Description != nil {
		tr.Description = *patch.Description
	}
	if patch.Date != nil {
		tr.Date = core.DateOf(*patch.Date)
	}
	if err := tr.Validate(); err != nil {
		return core.Transfer{}, err
	}
	if err := checkReferences(ctx, s.store, userID, core.TransferPayload{OriginAccountID: tr.OriginAccountID, DestinationAccountID: tr.DestinationAccountID}); err != nil {
		return core.Transfer{}, err
	}
	saved, err := s.store.UpdateTransfer(ctx, tr)
	if err != nil {
		return core.Transfer{}, storeErr("update transfer", err)
	}
	s.changed(ctx, applog.OpUpdate, core.KindTransfer, id, userID)
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, storeErr("delete transaction", err)
	}
	s.changed(ctx, applog.OpDelete, core.KindTransaction, id, userID)
	return tx, nil
}

func (s *LedgerService) DeleteTransfer(ctx context.Context, userID, id int64) (core.Transfer, error) {
	tr, err := s.store.DeleteTransfer(ctx, id, userID)
	if err != nil {
		return core.Transfer{}, storeErr("delete transfer", err)
	}
	s.changed(ctx, applog.OpDelete, core.KindTransfer, id, userID)
	return tr, nil
}

func (s *LedgerService) changed(ctx context.Context, op string, kind core.Kind, id, userID int64) {
	s.logger.InfoContext(ctx, "Ledger entry changed",
		applog.FieldOperation, op,
		applog.FieldKind, kind,
		applog.FieldEntryID, id,
		applog.FieldUserID, userID)
}

func (s *LedgerService) today() time.Time {
	return core.DateOf(s.now().UTC())
}

func (s *LedgerService) recorded(ctx context.Context, entry core.LedgerEntry) {
	s.metrics.LedgerEntry(entry.Kind, false)
	s.logger.InfoContext(ctx, "Ledger entry recorded",
		applog.FieldEntryID, entry.ID(),
		applog.FieldKind, entry.Kind)
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, core.EventFromEntry(entry)); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldEntryID, entry.ID(),
			applog.FieldError, err)
	}
}
