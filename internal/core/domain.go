package core

import (
	"strings"
	"time"
)

const (
	Income          CategoryType = "income"
	Expense         CategoryType = "expense"
	TransferIncome  CategoryType = "transfer_income"
	TransferExpense CategoryType = "transfer_expense"
)

const maxDescriptionLen = 200

type (
	// CategoryType classifies a category. The Transfer* kinds only exist in
	// the rendered feed and are never stored on a category.
	CategoryType string

	Money struct {
		Cents int64
	}

	Account struct {
		ID          int64
		UserID      int64
		Name        string
		Description string
		CreatedAt   time.Time
	}

	Category struct {
		ID     int64
		UserID int64
		Name   string
		Type   CategoryType
	}

	Transaction struct {
		ID          int64
		UserID      int64
		AccountID   int64
		CategoryID  int64
		Value       Money
		Description string
		Date        time.Time
	}

	Transfer struct {
		ID                   int64
		UserID               int64
		OriginAccountID      int64
		DestinationAccountID int64
		Value                Money
		Description          string
		Date                 time.Time
	}

	// CategorizedTransaction pairs a transaction with the category it was
	// booked under.
	CategorizedTransaction struct {
		Transaction Transaction
		Category    Category
	}
)

// Storable reports whether a category may be persisted with this type.
func (t CategoryType) Storable() bool {
	return t == Income || t == Expense
}

func (t CategoryType) Valid() bool {
	switch t {
	case Income, Expense, TransferIncome, TransferExpense:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return badRequest(ErrEmptyName)
	}
	if len(a.Description) > maxDescriptionLen {
		return badRequest(ErrDescriptionTooLong)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return badRequest(ErrEmptyName)
	}
	if !c.Type.Valid() {
		return badRequest(ErrInvalidCategoryType)
	}
	if !c.Type.Storable() {
		return badRequest(ErrTransferCategory)
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Value.Validate(); err != nil {
		return badRequest(err)
	}
	if len(t.Description) > maxDescriptionLen {
		return badRequest(ErrDescriptionTooLong)
	}
	if t.AccountID <= 0 || t.CategoryID <= 0 {
		return badRequest(ErrInvalidReference)
	}
	if !t.Date.IsZero() && !InRange(t.Date) {
		return badRequest(ErrDateOutOfRange)
	}
	return nil
}

func (t Transfer) Validate() error {
	if err := t.Value.Validate(); err != nil {
		return badRequest(err)
	}
	if len(t.Description) > maxDescriptionLen {
		return badRequest(ErrDescriptionTooLong)
	}
	if t.OriginAccountID <= 0 || t.DestinationAccountID <= 0 {
		return badRequest(ErrInvalidReference)
	}
	if !t.Date.IsZero() && !InRange(t.Date) {
		return badRequest(ErrDateOutOfRange)
	}
	if t.OriginAccountID == t.DestinationAccountID {
		return badRequest(ErrSameAccount)
	}
	return nil
}
