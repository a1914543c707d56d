package storage

import "database/sql"

type Account struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	CreatedAt   string
}

type Category struct {
	ID     int64
	UserID int64
	Name   string
	Type   string
}

type Transaction struct {
	ID          int64
	UserID      int64
	AccountID   int64
	CategoryID  int64
	ValueCents  int64
	Description string
	Date        string
}

type TransactionWithCategory struct {
	Transaction
	CategoryName   string
	CategoryType   string
	CategoryUserID int64
}

type Transfer struct {
	ID                   int64
	UserID               int64
	OriginAccountID      int64
	DestinationAccountID int64
	ValueCents           int64
	Description          string
	Date                 string
}

type ScheduledObligation struct {
	ID                   int64
	UserID               int64
	Kind                 string
	ValueCents           int64
	Description          string
	CreatedDate          string
	NextDate             string
	AccountID            sql.NullInt64
	CategoryID           sql.NullInt64
	OriginAccountID      sql.NullInt64
	DestinationAccountID sql.NullInt64
	Repeat               bool
	Frequency            sql.NullString
	RepeatInterval       sql.NullInt64
	Infinite             bool
	EndAfter             sql.NullInt64
	RepeatCount          int64
	Version              int64
}
