package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		want error
	}{
		{"income", Category{Name: "Salary", Type: Income}, nil},
		{"expense", Category{Name: "Rent", Type: Expense}, nil},
		{"empty name", Category{Name: " ", Type: Expense}, ErrEmptyName},
		{"unknown type", Category{Name: "x", Type: "gift"}, ErrInvalidCategoryType},
		{"transfer income", Category{Name: "x", Type: TransferIncome}, ErrTransferCategory},
		{"transfer expense", Category{Name: "x", Type: TransferExpense}, ErrTransferCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) || !errors.Is(err, ErrBadRequest) {
				t.Fatalf("got %v, want %v wrapped in ErrBadRequest", err, tt.want)
			}
		})
	}
}

func TestTransferValidate(t *testing.T) {
	base := Transfer{OriginAccountID: 1, DestinationAccountID: 2, Value: Money{Cents: 10}, Date: time.Now()}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	same := base
	same.DestinationAccountID = 1
	if err := same.Validate(); !errors.Is(err, ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}

	long := base
	long.Description = strings.Repeat("x", 201)
	if err := long.Validate(); !errors.Is(err, ErrDescriptionTooLong) {
		t.Fatalf("expected ErrDescriptionTooLong, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{AccountID: 1, CategoryID: 1, Value: Money{Cents: 10}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Transaction{
		{AccountID: 0, CategoryID: 1, Value: Money{Cents: 10}},
		{AccountID: 1, CategoryID: 0, Value: Money{Cents: 10}},
		{AccountID: 1, CategoryID: 1, Value: Money{Cents: -1}},
		{AccountID: 1, CategoryID: 1, Value: Money{Cents: 10}, Date: time.Date(10_000, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("case %d expected bad request, got %v", i, err)
		}
	}
}
