package services

import (
	"context"
	"errors"
	"testing"

	"finance/internal/core"
)

func TestLedgerService_Categories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewLedgerService(f.store, nil, nil)

	tests := []struct {
		name string
		typ  core.CategoryType
		cat  string
		want error
	}{
		{"expense", core.Expense, "food", nil},
		{"income", core.Income, "bonus", nil},
		{"transfer expense", core.TransferExpense, "moves", core.ErrTransferCategory},
		{"transfer income", core.TransferIncome, "moves", core.ErrTransferCategory},
		{"unknown type", core.CategoryType("gift"), "gifts", core.ErrInvalidCategoryType},
		{"empty name", core.Expense, "  ", core.ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.CreateCategory(ctx, testUser, tt.cat, tt.typ)
			if tt.want == nil {
				if err != nil || c.ID == 0 {
					t.Fatalf("CreateCategory = %+v, %v", c, err)
				}
				return
			}
			if !errors.Is(err, tt.want) || !errors.Is(err, core.ErrBadRequest) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	cats, err := svc.ListCategories(ctx, testUser, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 4 {
		t.Fatalf("categories = %d, want 4", len(cats))
	}

	for _, typ := range []core.CategoryType{core.Income, core.Expense} {
		cats, err := svc.ListCategories(ctx, testUser, typ)
		if err != nil || len(cats) != 2 {
			t.Fatalf("%s categories = %+v, %v", typ, cats, err)
		}
		for _, c := range cats {
			if c.Type != typ {
				t.Fatalf("%s filter returned %+v", typ, c)
			}
		}
	}
	if _, err := svc.ListCategories(ctx, testUser, core.TransferIncome); !errors.Is(err, core.ErrBadRequest) {
		t.Fatalf("transfer type filter: got %v, want bad request", err)
	}
}

func TestLedgerService_Accounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewLedgerService(f.store, nil, nil)

	a, err := svc.CreateAccount(ctx, testUser, "cash", "wallet")
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetAccount(ctx, testUser, a.ID)
	if err != nil || got.Name != "cash" {
		t.Fatalf("GetAccount = %+v, %v", got, err)
	}
	if _, err := svc.GetAccount(ctx, 2, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("other user: got %v", err)
	}
	if _, err := svc.CreateAccount(ctx, testUser, "", ""); !errors.Is(err, core.ErrBadRequest) {
		t.Fatalf("empty name: got %v", err)
	}
	list, _ := svc.ListAccounts(ctx, testUser)
	if len(list) != 3 {
		t.Fatalf("accounts = %d, want 3", len(list))
	}
}

func TestLedgerService_RecordEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(f.store, pub, nil)

	t.Run("transaction", func(t *testing.T) {
		tx, err := svc.RecordTransaction(ctx, testUser, core.Transaction{
			AccountID: f.checking.ID, CategoryID: f.salary.ID, Value: core.Money{Cents: 1000},
		})
		if err != nil {
			t.Fatal(err)
		}
		if tx.ID == 0 || tx.UserID != testUser || tx.Date.IsZero() {
			t.Fatalf("unexpected transaction: %+v", tx)
		}
	})

	t.Run("transfer", func(t *testing.T) {
		tr, err := svc.RecordTransfer(ctx, testUser, core.Transfer{
			OriginAccountID: f.savings.ID, DestinationAccountID: f.checking.ID, Value: core.Money{Cents: 250},
			Date: day(2024, 2, 2),
		})
		if err != nil {
			t.Fatal(err)
		}
		if !tr.Date.Equal(day(2024, 2, 2)) {
			t.Fatalf("date = %s", tr.Date)
		}
	})

	rejects := []struct {
		name string
		fn   func() error
		want error
	}{
		{"same account transfer", func() error {
			_, err := svc.RecordTransfer(ctx, testUser, core.Transfer{OriginAccountID: f.checking.ID, DestinationAccountID: f.checking.ID, Value: core.Money{Cents: 1}})
			return err
		}, core.ErrSameAccount},
		{"zero value", func() error {
			_, err := svc.RecordTransaction(ctx, testUser, core.Transaction{AccountID: f.checking.ID, CategoryID: f.rent.ID})
			return err
		}, core.ErrInvalidAmount},
		{"foreign account", func() error {
			_, err := svc.RecordTransaction(ctx, 2, core.Transaction{AccountID: f.checking.ID, CategoryID: f.rent.ID, Value: core.Money{Cents: 1}})
			return err
		}, core.ErrBadRequest},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Kind != core.KindTransaction || events[1].Kind != core.KindTransfer || events[1].AccountID != f.savings.ID {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestLedgerService_EditEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(f.store, pub, nil)

	tx, err := svc.RecordTransaction(ctx, testUser, core.Transaction{
		AccountID: f.checking.ID, CategoryID: f.rent.ID, Value: core.Money{Cents: 900}, Date: day(2024, 4, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	tr, err := svc.RecordTransfer(ctx, testUser, core.Transfer{
		OriginAccountID: f.checking.ID, DestinationAccountID: f.savings.ID, Value: core.Money{Cents: 300}, Date: day(2024, 4, 2),
	})
	if err != nil {
		t.Fatal(err)
	}

	desc := "rent april"
	updated, err := svc.UpdateTransaction(ctx, testUser, tx.ID, TransactionPatch{Value: &core.Money{Cents: 950}, Description: &desc})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.Value.Cents != 950 || updated.Description != desc || updated.CategoryID != f.rent.ID || !updated.Date.Equal(day(2024, 4, 1)) {
		t.Fatalf("unexpected update: %+v", updated)
	}
	if got, _ := svc.GetTransaction(ctx, testUser, tx.ID); got.Value.Cents != 950 {
		t.Fatalf("update not stored: %+v", got)
	}

	rejects := []struct {
		name string
		fn   func() error
		want error
	}{
		{"zero value", func() error {
			_, err := svc.UpdateTransaction(ctx, testUser, tx.ID, TransactionPatch{Value: &core.Money{}})
			return err
		}, core.ErrInvalidAmount},
		{"unknown category", func() error {
			missing := int64(999)
			_, err := svc.UpdateTransaction(ctx, testUser, tx.ID, TransactionPatch{CategoryID: &missing})
			return err
		}, core.ErrBadRequest},
		{"transfer onto itself", func() error {
			_, err := svc.UpdateTransfer(ctx, testUser, tr.ID, TransferPatch{DestinationAccountID: &f.checking.ID})
			return err
		}, core.ErrSameAccount},
		{"foreign transaction", func() error {
			_, err := svc.UpdateTransaction(ctx, 2, tx.ID, TransactionPatch{Description: &desc})
			return err
		}, core.ErrNotFound},
		{"foreign transfer", func() error {
			_, err := svc.GetTransfer(ctx, 2, tr.ID)
			return err
		}, core.ErrNotFound},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	moved, err := svc.UpdateTransfer(ctx, testUser, tr.ID, TransferPatch{OriginAccountID: &f.savings.ID, DestinationAccountID: &f.checking.ID})
	if err != nil || moved.OriginAccountID != f.savings.ID {
		t.Fatalf("UpdateTransfer = %+v, %v", moved, err)
	}

	if _, err := svc.DeleteTransaction(ctx, testUser, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := svc.GetTransaction(ctx, testUser, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted transaction: got %v, want not found", err)
	}
	if _, err := svc.DeleteTransfer(ctx, 2, tr.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want not found", err)
	}
	if _, err := svc.DeleteTransfer(ctx, testUser, tr.ID); err != nil {
		t.Fatalf("DeleteTransfer: %v", err)
	}

	if n := len(pub.Events()); n != 2 {
		t.Fatalf("events = %d, want only the two recorded entries", n)
	}
}
