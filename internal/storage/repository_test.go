package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finance/internal/core"
	"finance/internal/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "finance.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seed(t *testing.T, repo *SQLiteRepository) (core.Account, core.Account, core.Category) {
	t.Helper()
	ctx := context.Background()
	a, err := repo.CreateAccount(ctx, core.Account{UserID: 1, Name: "checking"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := repo.CreateAccount(ctx, core.Account{UserID: 1, Name: "savings", Description: "rainy day"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := repo.CreateCategory(ctx, core.Category{UserID: 1, Name: "groceries", Type: core.Expense})
	if err != nil {
		t.Fatal(err)
	}
	return a, b, c
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("version = %d, want 1", version)
		}
	}
}

func TestAccountsAndCategories(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, b, c := seed(t, repo)

	got, err := repo.GetAccount(ctx, b.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "savings" || got.Description != "rainy day" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected account: %+v", got)
	}
	if _, err := repo.GetAccount(ctx, a.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("other user: got %v, want not found", err)
	}
	list, err := repo.ListAccounts(ctx, 1)
	if err != nil || len(list) != 2 || list[0].ID != a.ID {
		t.Fatalf("ListAccounts = %+v, %v", list, err)
	}

	cat, err := repo.GetCategory(ctx, c.ID, 1)
	if err != nil || cat.Type != core.Expense {
		t.Fatalf("GetCategory = %+v, %v", cat, err)
	}
	if _, err := repo.CreateCategory(ctx, core.Category{UserID: 1, Name: "moves", Type: core.TransferExpense}); err == nil {
		t.Fatal("schema should reject transfer category types")
	}
}

func TestLedgerEntries(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, b, c := seed(t, repo)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: 1, AccountID: a.ID, CategoryID: c.ID, Value: core.Money{Cents: 4200}, Description: "market", Date: day(2024, 2, 29),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTransfer(ctx, core.Transfer{
		UserID: 1, OriginAccountID: a.ID, DestinationAccountID: b.ID, Value: core.Money{Cents: 1000}, Date: day(2024, 3, 1),
	}); err != nil {
		t.Fatal(err)
	}

	txs, err := repo.TransactionsForAccount(ctx, a.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Transaction.ID != tx.ID || txs[0].Category.Name != "groceries" || !txs[0].Transaction.Date.Equal(day(2024, 2, 29)) {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	from, _ := repo.TransfersFromAccount(ctx, a.ID, 1)
	to, _ := repo.TransfersToAccount(ctx, b.ID, 1)
	if len(from) != 1 || len(to) != 1 || from[0].ID != to[0].ID {
		t.Fatalf("transfers from=%+v to=%+v", from, to)
	}
	if got := core.Balance(txs, from, nil); got != -5200 {
		t.Fatalf("balance = %d, want -5200", got)
	}
	if other, _ := repo.TransactionsForAccount(ctx, a.ID, 2); len(other) != 0 {
		t.Fatalf("other user sees %d transactions", len(other))
	}
}

func TestLedgerEntryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, b, c := seed(t, repo)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID: 1, AccountID: a.ID, CategoryID: c.ID, Value: core.Money{Cents: 4200}, Description: "market", Date: day(2024, 2, 29),
	})
	if err != nil {
		t.Fatal(err)
	}
	tr, err := repo.CreateTransfer(ctx, core.Transfer{
		UserID: 1, OriginAccountID: a.ID, DestinationAccountID: b.ID, Value: core.Money{Cents: 1000}, Date: day(2024, 3, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	tx.Value, tx.Description, tx.Date = core.Money{Cents: 3900}, "corner shop", day(2024, 3, 2)
	if _, err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, err := repo.GetTransaction(ctx, tx.ID, 1)
	if err != nil || got.Value.Cents != 3900 || got.Description != "corner shop" || !got.Date.Equal(day(2024, 3, 2)) {
		t.Fatalf("GetTransaction = %+v, %v", got, err)
	}

	tr.OriginAccountID, tr.DestinationAccountID = b.ID, a.ID
	if _, err := repo.UpdateTransfer(ctx, tr); err != nil {
		t.Fatalf("UpdateTransfer: %v", err)
	}
	if from, _ := repo.TransfersFromAccount(ctx, b.ID, 1); len(from) != 1 || from[0].ID != tr.ID {
		t.Fatalf("transfer not moved: %+v", from)
	}

	foreign := tr
	foreign.UserID = 2
	if _, err := repo.UpdateTransfer(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update: got %v, want not found", err)
	}
	if _, err := repo.GetTransfer(ctx, tr.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign get: got %v, want not found", err)
	}

	deleted, err := repo.DeleteTransaction(ctx, tx.ID, 1)
	if err != nil || deleted.ID != tx.ID || deleted.Value.Cents != 3900 {
		t.Fatalf("DeleteTransaction = %+v, %v", deleted, err)
	}
	if _, err := repo.DeleteTransaction(ctx, tx.ID, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: got %v, want not found", err)
	}
	if _, err := repo.DeleteTransfer(ctx, tr.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want not found", err)
	}
	if _, err := repo.DeleteTransfer(ctx, tr.ID, 1); err != nil {
		t.Fatalf("DeleteTransfer: %v", err)
	}
}

func TestObligationRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, b, c := seed(t, repo)

	tests := []struct {
		name string
		o    core.Obligation
	}{
		{"one-shot transaction", core.Obligation{
			UserID: 1, Value: core.Money{Cents: 999}, Description: "dentist",
			CreatedDate: day(2024, 5, 2), NextDate: day(2024, 5, 2),
			Payload: core.TransactionPayload{AccountID: a.ID, CategoryID: c.ID},
		}},
		{"finite transfer", core.Obligation{
			UserID: 1, Value: core.Money{Cents: 10000},
			CreatedDate: day(2024, 1, 31), NextDate: day(2024, 2, 29),
			Payload: core.TransferPayload{OriginAccountID: a.ID, DestinationAccountID: b.ID},
			Repeat:  &core.RepeatPolicy{Frequency: core.Months, Interval: 1, EndAfter: 3, Count: 1},
		}},
		{"infinite weekly", core.Obligation{
			UserID: 1, Value: core.Money{Cents: 50},
			CreatedDate: day(2024, 1, 1), NextDate: day(2024, 1, 1),
			Payload: core.TransactionPayload{AccountID: a.ID, CategoryID: c.ID},
			Repeat:  &core.RepeatPolicy{Frequency: core.Weeks, Interval: 2, Infinite: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved, err := repo.SaveObligation(ctx, tt.o)
			if err != nil {
				t.Fatal(err)
			}
			if saved.ID == 0 || saved.Version != 1 {
				t.Fatalf("unexpected saved obligation: %+v", saved)
			}
			got, err := repo.LoadObligation(ctx, saved.ID, 1)
			if err != nil {
				t.Fatal(err)
			}
			if got.Payload != tt.o.Payload || got.Value != tt.o.Value || got.Description != tt.o.Description {
				t.Fatalf("fields differ: got %+v want %+v", got, tt.o)
			}
			if !got.CreatedDate.Equal(tt.o.CreatedDate) || !got.NextDate.Equal(tt.o.NextDate) {
				t.Fatalf("dates differ: got %s/%s", got.CreatedDate, got.NextDate)
			}
			if (got.Repeat == nil) != (tt.o.Repeat == nil) || (got.Repeat != nil && *got.Repeat != *tt.o.Repeat) {
				t.Fatalf("repeat differs: got %+v want %+v", got.Repeat, tt.o.Repeat)
			}
			if err := got.Validate(); err != nil {
				t.Fatalf("loaded obligation invalid: %v", err)
			}
		})
	}

	list, err := repo.ListObligations(ctx, 1)
	if err != nil || len(list) != len(tests) {
		t.Fatalf("ListObligations = %d, %v", len(list), err)
	}
}

func TestSaveObligationVersioning(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, _, c := seed(t, repo)

	o, err := repo.SaveObligation(ctx, core.Obligation{
		UserID: 1, Value: core.Money{Cents: 100},
		CreatedDate: day(2024, 1, 1), NextDate: day(2024, 1, 1),
		Payload: core.TransactionPayload{AccountID: a.ID, CategoryID: c.ID},
		Repeat:  &core.RepeatPolicy{Frequency: core.Days, Interval: 1, EndAfter: 5},
	})
	if err != nil {
		t.Fatal(err)
	}

	next := o.Clone()
	next.Repeat.Count = 1
	next.NextDate = day(2024, 1, 2)
	updated, err := repo.SaveObligation(ctx, next)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}

	if _, err := repo.SaveObligation(ctx, next); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("stale save: got %v, want conflict", err)
	}
	stale := updated
	stale.UserID = 2
	if _, err := repo.SaveObligation(ctx, stale); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign save: got %v, want not found", err)
	}

	deleted, err := repo.DeleteObligation(ctx, o.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if deleted.Version != 2 || deleted.Repeat.Count != 1 {
		t.Fatalf("unexpected deleted obligation: %+v", deleted)
	}
	if _, err := repo.DeleteObligation(ctx, o.ID, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: got %v, want not found", err)
	}
	if _, err := repo.SaveObligation(ctx, updated); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("save after delete: got %v, want not found", err)
	}
}

func TestWithinTx(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a, _, c := seed(t, repo)
	entry := core.Transaction{UserID: 1, AccountID: a.ID, CategoryID: c.ID, Value: core.Money{Cents: 1}, Date: day(2024, 1, 1)}

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(st ports.Store) error {
		if _, err := st.CreateTransaction(ctx, entry); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}
	if txs, _ := repo.TransactionsForAccount(ctx, a.ID, 1); len(txs) != 0 {
		t.Fatalf("rolled back transaction is visible: %d rows", len(txs))
	}

	err = repo.WithinTx(ctx, func(st ports.Store) error {
		if _, err := st.CreateTransaction(ctx, entry); err != nil {
			return err
		}
		return st.(ports.Transactor).WithinTx(ctx, func(inner ports.Store) error {
			_, err := inner.CreateTransaction(ctx, entry)
			return err
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if txs, _ := repo.TransactionsForAccount(ctx, a.ID, 1); len(txs) != 2 {
		t.Fatalf("committed rows = %d, want 2", len(txs))
	}
}
