// Package storage is the SQLite implementation of ports.Store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/ports"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	// tx is set on repositories bound to an open transaction.
	tx *sql.Tx
}

var (
	_ ports.Store      = (*SQLiteRepository)(nil)
	_ ports.Transactor = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; transactions hold the only connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.tx == nil && r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx runs fn against a repository bound to a single transaction,
// committing when fn returns nil and rolling back otherwise. Nested calls
// join the outer transaction.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ports.Store) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	bound := &SQLiteRepository{db: r.db, queries: r.queries.WithTx(tx), tx: tx}
	if err := fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			storageLogger().ErrorContext(ctx, "Failed to roll back transaction", applog.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func storageLogger() *applog.Logger {
	return applog.New(applog.Config{Component: applog.ComponentStorage, Handler: slog.Default().Handler()})
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		storageLogger().Warn("Unparseable timestamp in database", "value", s, applog.FieldError, err)
	}
	return t
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	row, err := r.queries.CreateAccount(ctx, CreateAccountParams{
		UserID:      a.UserID,
		Name:        a.Name,
		Description: a.Description,
		CreatedAt:   formatTime(a.CreatedAt),
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return accountFromRow(row), nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id, userID int64) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id, userID)
	if err != nil {
		return core.Account{}, notFound("get account", err)
	}
	return accountFromRow(row), nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, row := range rows {
		out[i] = accountFromRow(row)
	}
	return out, nil
}

func accountFromRow(row Account) core.Account {
	return core.Account{
		ID:          row.ID,
		UserID:      row.UserID,
		Name:        row.Name,
		Description: row.Description,
		CreatedAt:   parseTime(row.CreatedAt),
	}
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, c.UserID, c.Name, string(c.Type))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id, userID)
	if err != nil {
		return core.Category{}, notFound("get category", err)
	}
	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, len(rows))
	for i, row := range rows {
		out[i] = categoryFromRow(row)
	}
	return out, nil
}

func categoryFromRow(row Category) core.Category {
	return core.Category{ID: row.ID, UserID: row.UserID, Name: row.Name, Type: core.CategoryType(row.Type)}
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := r.queries.CreateTransaction(ctx, transactionToRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	id, err := r.queries.CreateTransfer(ctx, transferToRow(t))
	if err != nil {
		return core.Transfer{}, fmt.Errorf("create transfer: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *SQLiteRepository) TransactionsForAccount(ctx context.Context, accountID, userID int64) ([]core.CategorizedTransaction, error) {
	rows, err := r.queries.TransactionsForAccount(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.CategorizedTransaction, len(rows))
	for i, row := range rows {
		out[i] = core.CategorizedTransaction{
			Transaction: transactionFromRow(row.Transaction),
			Category: core.Category{
				ID:     row.CategoryID,
				UserID: row.CategoryUserID,
				Name:   row.CategoryName,
				Type:   core.CategoryType(row.CategoryType),
			},
		}
	}
	return out, nil
}

func (r *SQLiteRepository) TransfersFromAccount(ctx context.Context, accountID, userID int64) ([]core.Transfer, error) {
	rows, err := r.queries.TransfersFromAccount(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing transfers: %w", err)
	}
	return transfersFromRows(rows), nil
}

func (r *SQLiteRepository) TransfersToAccount(ctx context.Context, accountID, userID int64) ([]core.Transfer, error) {
	rows, err := r.queries.TransfersToAccount(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming transfers: %w", err)
	}
	return transfersFromRows(rows), nil
}

func transfersFromRows(rows []Transfer) []core.Transfer {
	out := make([]core.Transfer, len(rows))
	for i, row := range rows {
		out[i] = transferFromRow(row)
	}
	return out
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, notFound("get transaction", err)
	}
	return transactionFromRow(row), nil
}

func (r *SQLiteRepository) GetTransfer(ctx context.Context, id, userID int64) (core.Transfer, error) {
	row, err := r.queries.GetTransfer(ctx, id, userID)
	if err != nil {
		return core.Transfer{}, notFound("get transfer", err)
	}
	return transferFromRow(row), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	n, err := r.queries.UpdateTransaction(ctx, transactionToRow(t))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return t, nil
}

func (r *SQLiteRepository) UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error) {
	n, err := r.queries.UpdateTransfer(ctx, transferToRow(t))
	if err != nil {
		return core.Transfer{}, fmt.Errorf("update transfer: %w", err)
	}
	if n == 0 {
		return core.Transfer{}, fmt.Errorf("update transfer %d: %w", t.ID, core.ErrNotFound)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, notFound("delete transaction", err)
	}
	return transactionFromRow(row), nil
}

func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, id, userID int64) (core.Transfer, error) {
	row, err := r.queries.DeleteTransfer(ctx, id, userID)
	if err != nil {
		return core.Transfer{}, notFound("delete transfer", err)
	}
	return transferFromRow(row), nil
}

func transactionToRow(t core.Transaction) Transaction {
	return Transaction{
		ID:          t.ID,
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		ValueCents:  t.Value.Cents,
		Description: t.Description,
		Date:        formatTime(t.Date),
	}
}

func transactionFromRow(row Transaction) core.Transaction {
	return core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		AccountID:   row.AccountID,
		CategoryID:  row.CategoryID,
		Value:       core.Money{Cents: row.ValueCents},
		Description: row.Description,
		Date:        parseTime(row.Date),
	}
}

func transferToRow(t core.Transfer) Transfer {
	return Transfer{
		ID:                   t.ID,
		UserID:               t.UserID,
		OriginAccountID:      t.OriginAccountID,
		DestinationAccountID: t.DestinationAccountID,
		ValueCents:           t.Value.Cents,
		Description:          t.Description,
		Date:                 formatTime(t.Date),
	}
}

func transferFromRow(row Transfer) core.Transfer {
	return core.Transfer{
		ID:                   row.ID,
		UserID:               row.UserID,
		OriginAccountID:      row.OriginAccountID,
		DestinationAccountID: row.DestinationAccountID,
		Value:                core.Money{Cents: row.ValueCents},
		Description:          row.Description,
		Date:                 parseTime(row.Date),
	}
}

func (r *SQLiteRepository) LoadObligation(ctx context.Context, id, userID int64) (core.Obligation, error) {
	row, err := r.queries.GetObligation(ctx, id, userID)
	if err != nil {
		return core.Obligation{}, notFound("load obligation", err)
	}
	return obligationFromRow(row), nil
}

func (r *SQLiteRepository) ListObligations(ctx context.Context, userID int64) ([]core.Obligation, error) {
	rows, err := r.queries.ListObligations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	out := make([]core.Obligation, len(rows))
	for i, row := range rows {
		out[i] = obligationFromRow(row)
	}
	return out, nil
}

// SaveObligation inserts new obligations and updates existing ones only when
// the stored version matches.
func (r *SQLiteRepository) SaveObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	row := obligationToRow(o)
	if o.ID == 0 {
		id, err := r.queries.InsertObligation(ctx, row)
		if err != nil {
			return core.Obligation{}, fmt.Errorf("insert obligation: %w", err)
		}
		o.ID, o.Version = id, 1
		return o, nil
	}

	n, err := r.queries.UpdateObligation(ctx, row)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("update obligation: %w", err)
	}
	if n == 0 {
		if _, err := r.queries.GetObligation(ctx, o.ID, o.UserID); err != nil {
			return core.Obligation{}, notFound("update obligation", err)
		}
		return core.Obligation{}, fmt.Errorf("update obligation %d: %w", o.ID, core.ErrConflict)
	}
	o.Version++
	return o, nil
}

func (r *SQLiteRepository) DeleteObligation(ctx context.Context, id, userID int64) (core.Obligation, error) {
	row, err := r.queries.DeleteObligation(ctx, id, userID)
	if err != nil {
		return core.Obligation{}, notFound("delete obligation", err)
	}
	return obligationFromRow(row), nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func obligationToRow(o core.Obligation) ScheduledObligation {
	row := ScheduledObligation{
		ID:          o.ID,
		UserID:      o.UserID,
		Kind:        string(o.Kind()),
		ValueCents:  o.Value.Cents,
		Description: o.Description,
		CreatedDate: formatTime(o.CreatedDate),
		NextDate:    formatTime(o.NextDate),
		Version:     o.Version,
	}
	switch p := o.Payload.(type) {
	case core.TransactionPayload:
		row.AccountID, row.CategoryID = nullID(p.AccountID), nullID(p.CategoryID)
	case core.TransferPayload:
		row.OriginAccountID, row.DestinationAccountID = nullID(p.OriginAccountID), nullID(p.DestinationAccountID)
	}
	if rp := o.Repeat; rp != nil {
		row.Repeat = true
		row.Frequency = sql.NullString{String: string(rp.Frequency), Valid: true}
		row.RepeatInterval = sql.NullInt64{Int64: int64(rp.Interval), Valid: true}
		row.Infinite = rp.Infinite
		row.EndAfter = sql.NullInt64{Int64: int64(rp.EndAfter), Valid: !rp.Infinite}
		row.RepeatCount = int64(rp.Count)
	}
	return row
}

func obligationFromRow(row ScheduledObligation) core.Obligation {
	o := core.Obligation{
		ID:          row.ID,
		UserID:      row.UserID,
		Value:       core.Money{Cents: row.ValueCents},
		Description: row.Description,
		CreatedDate: parseTime(row.CreatedDate),
		NextDate:    parseTime(row.NextDate),
		Version:     row.Version,
	}
	switch core.Kind(row.Kind) {
	case core.KindTransaction:
		o.Payload = core.TransactionPayload{AccountID: row.AccountID.Int64, CategoryID: row.CategoryID.Int64}
	case core.KindTransfer:
		o.Payload = core.TransferPayload{OriginAccountID: row.OriginAccountID.Int64, DestinationAccountID: row.DestinationAccountID.Int64}
	}
	if row.Repeat {
		o.Repeat = &core.RepeatPolicy{
			Frequency: core.Frequency(row.Frequency.String),
			Interval:  int(row.RepeatInterval.Int64),
			Infinite:  row.Infinite,
			EndAfter:  int(row.EndAfter.Int64),
			Count:     int(row.RepeatCount),
		}
	}
	return o
}
