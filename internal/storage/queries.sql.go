package storage

import (
	"context"
)

const createAccount = `
INSERT INTO accounts (user_id, name, description, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, user_id, name, description, created_at`

type CreateAccountParams struct {
	UserID      int64
	Name        string
	Description string
	CreatedAt   string
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) (Account, error) {
	row := q.db.QueryRowContext(ctx, createAccount, arg.UserID, arg.Name, arg.Description, arg.CreatedAt)
	var i Account
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const getAccount = `
SELECT id, user_id, name, description, created_at
FROM accounts
WHERE id = ? AND user_id = ?`

func (q *Queries) GetAccount(ctx context.Context, id, userID int64) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, id, userID)
	var i Account
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Description, &i.CreatedAt)
	return i, err
}

const listAccounts = `
SELECT id, user_id, name, description, created_at
FROM accounts
WHERE user_id = ?
ORDER BY id`

func (q *Queries) ListAccounts(ctx context.Context, userID int64) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Description, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCategory = `
INSERT INTO categories (user_id, name, type)
VALUES (?, ?, ?)
RETURNING id, user_id, name, type`

func (q *Queries) CreateCategory(ctx context.Context, userID int64, name, typ string) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, userID, name, typ)
	var i Category
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Type)
	return i, err
}

const getCategory = `
SELECT id, user_id, name, type
FROM categories
WHERE id = ? AND user_id = ?`

func (q *Queries) GetCategory(ctx context.Context, id, userID int64) (Category, error) {
	row := q.db.QueryRowContext(ctx, getCategory, id, userID)
	var i Category
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &i.Type)
	return i, err
}

const listCategories = `
SELECT id, user_id, name, type
FROM categories
WHERE user_id = ?
ORDER BY id`

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.UserID, &i.Name, &i.Type); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createTransaction = `
INSERT INTO transactions (user_id, account_id, category_id, value_cents, description, date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.UserID, arg.AccountID, arg.CategoryID, arg.ValueCents, arg.Description, arg.Date)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const transactionColumns = `id, user_id, account_id, category_id, value_cents, description, date`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(&i.ID, &i.UserID, &i.AccountID, &i.CategoryID, &i.ValueCents, &i.Description, &i.Date)
	return i, err
}

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, userID int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, userID))
}

const updateTransaction = `
UPDATE transactions SET
    account_id = ?, category_id = ?, value_cents = ?, description = ?, date = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, arg Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		arg.AccountID, arg.CategoryID, arg.ValueCents, arg.Description, arg.Date,
		arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `
DELETE FROM transactions
WHERE id = ? AND user_id = ?
RETURNING ` + transactionColumns

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID int64) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, deleteTransaction, id, userID))
}

const transactionsForAccount = `
SELECT t.id, t.user_id, t.account_id, t.category_id, t.value_cents, t.description, t.date,
       c.name, c.type, c.user_id
FROM transactions t
JOIN categories c ON c.id = t.category_id
WHERE t.account_id = ? AND t.user_id = ?
ORDER BY t.id`

func (q *Queries) TransactionsForAccount(ctx context.Context, accountID, userID int64) ([]TransactionWithCategory, error) {
	rows, err := q.db.QueryContext(ctx, transactionsForAccount, accountID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionWithCategory
	for rows.Next() {
		var i TransactionWithCategory
		if err := rows.Scan(
			&i.ID, &i.UserID, &i.AccountID, &i.CategoryID, &i.ValueCents, &i.Description, &i.Date,
			&i.CategoryName, &i.CategoryType, &i.CategoryUserID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createTransfer = `
INSERT INTO transfers (user_id, origin_account_id, destination_account_id, value_cents, description, date)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateTransfer(ctx context.Context, arg Transfer) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransfer,
		arg.UserID, arg.OriginAccountID, arg.DestinationAccountID, arg.ValueCents, arg.Description, arg.Date)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const transferColumns = `id, user_id, origin_account_id, destination_account_id, value_cents, description, date`

func scanTransfer(row interface{ Scan(...interface{}) error }) (Transfer, error) {
	var i Transfer
	err := row.Scan(&i.ID, &i.UserID, &i.OriginAccountID, &i.DestinationAccountID, &i.ValueCents, &i.Description, &i.Date)
	return i, err
}

const getTransfer = `SELECT ` + transferColumns + `
FROM transfers
WHERE id = ? AND user_id = ?`

func (q *Queries) GetTransfer(ctx context.Context, id, userID int64) (Transfer, error) {
	return scanTransfer(q.db.QueryRowContext(ctx, getTransfer, id, userID))
}

const updateTransfer = `
UPDATE transfers SET
    origin_account_id = ?, destination_account_id = ?, value_cents = ?, description = ?, date = ?
WHERE id = ? AND user_id = ?`

func (q *Queries) UpdateTransfer(ctx context.Context, arg Transfer) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransfer,
		arg.OriginAccountID, arg.DestinationAccountID, arg.ValueCents, arg.Description, arg.Date,
		arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransfer = `
DELETE FROM transfers
WHERE id = ? AND user_id = ?
RETURNING ` + transferColumns

func (q *Queries) DeleteTransfer(ctx context.Context, id, userID int64) (Transfer, error) {
	return scanTransfer(q.db.QueryRowContext(ctx, deleteTransfer, id, userID))
}

const transfersFromAccount = `SELECT ` + transferColumns + `
FROM transfers
WHERE origin_account_id = ? AND user_id = ?
ORDER BY id`

const transfersToAccount = `SELECT ` + transferColumns + `
FROM transfers
WHERE destination_account_id = ? AND user_id = ?
ORDER BY id`

func (q *Queries) TransfersFromAccount(ctx context.Context, accountID, userID int64) ([]Transfer, error) {
	return q.listTransfers(ctx, transfersFromAccount, accountID, userID)
}

func (q *Queries) TransfersToAccount(ctx context.Context, accountID, userID int64) ([]Transfer, error) {
	return q.listTransfers(ctx, transfersToAccount, accountID, userID)
}

func (q *Queries) listTransfers(ctx context.Context, query string, accountID, userID int64) ([]Transfer, error) {
	rows, err := q.db.QueryContext(ctx, query, accountID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transfer
	for rows.Next() {
		i, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const obligationColumns = `id, user_id, kind, value_cents, description, created_date, next_date,
       account_id, category_id, origin_account_id, destination_account_id,
       repeat, frequency, repeat_interval, infinite, end_after, repeat_count, version`

func scanObligation(row interface{ Scan(...interface{}) error }) (ScheduledObligation, error) {
	var i ScheduledObligation
	err := row.Scan(
		&i.ID, &i.UserID, &i.Kind, &i.ValueCents, &i.Description, &i.CreatedDate, &i.NextDate,
		&i.AccountID, &i.CategoryID, &i.OriginAccountID, &i.DestinationAccountID,
		&i.Repeat, &i.Frequency, &i.RepeatInterval, &i.Infinite, &i.EndAfter, &i.RepeatCount, &i.Version,
	)
	return i, err
}

const getObligation = `SELECT ` + obligationColumns + `
FROM scheduled_obligations
WHERE id = ? AND user_id = ?`

func (q *Queries) GetObligation(ctx context.Context, id, userID int64) (ScheduledObligation, error) {
	return scanObligation(q.db.QueryRowContext(ctx, getObligation, id, userID))
}

const listObligations = `SELECT ` + obligationColumns + `
FROM scheduled_obligations
WHERE user_id = ?
ORDER BY id`

func (q *Queries) ListObligations(ctx context.Context, userID int64) ([]ScheduledObligation, error) {
	rows, err := q.db.QueryContext(ctx, listObligations, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduledObligation
	for rows.Next() {
		i, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertObligation = `
INSERT INTO scheduled_obligations (
    user_id, kind, value_cents, description, created_date, next_date,
    account_id, category_id, origin_account_id, destination_account_id,
    repeat, frequency, repeat_interval, infinite, end_after, repeat_count, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
RETURNING id`

func (q *Queries) InsertObligation(ctx context.Context, arg ScheduledObligation) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertObligation,
		arg.UserID, arg.Kind, arg.ValueCents, arg.Description, arg.CreatedDate, arg.NextDate,
		arg.AccountID, arg.CategoryID, arg.OriginAccountID, arg.DestinationAccountID,
		arg.Repeat, arg.Frequency, arg.RepeatInterval, arg.Infinite, arg.EndAfter, arg.RepeatCount)
	var id int64
	err := row.Scan(&id)
	return id, err
}

// UpdateObligation only touches the row when its version still equals
// arg.Version and reports how many rows changed.
const updateObligation = `
UPDATE scheduled_obligations SET
    kind = ?, value_cents = ?, description = ?, next_date = ?,
    account_id = ?, category_id = ?, origin_account_id = ?, destination_account_id = ?,
    repeat = ?, frequency = ?, repeat_interval = ?, infinite = ?, end_after = ?, repeat_count = ?,
    version = version + 1
WHERE id = ? AND user_id = ? AND version = ?`

func (q *Queries) UpdateObligation(ctx context.Context, arg ScheduledObligation) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateObligation,
		arg.Kind, arg.ValueCents, arg.Description, arg.NextDate,
		arg.AccountID, arg.CategoryID, arg.OriginAccountID, arg.DestinationAccountID,
		arg.Repeat, arg.Frequency, arg.RepeatInterval, arg.Infinite, arg.EndAfter, arg.RepeatCount,
		arg.ID, arg.UserID, arg.Version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteObligation = `
DELETE FROM scheduled_obligations
WHERE id = ? AND user_id = ?
RETURNING ` + obligationColumns

func (q *Queries) DeleteObligation(ctx context.Context, id, userID int64) (ScheduledObligation, error) {
	return scanObligation(q.db.QueryRowContext(ctx, deleteObligation, id, userID))
}
