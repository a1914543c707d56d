package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance/internal/core"
	"finance/internal/ports"
)

func obligation(userID int64) core.Obligation {
	d := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	return core.Obligation{
		UserID:      userID,
		Value:       core.Money{Cents: 500},
		CreatedDate: d,
		NextDate:    d,
		Payload:     core.TransactionPayload{AccountID: 1, CategoryID: 2},
		Repeat:      &core.RepeatPolicy{Frequency: core.Months, Interval: 1, EndAfter: 3},
	}
}

func TestSaveObligationVersioning(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.SaveObligation(ctx, obligation(1))
	if err != nil || created.ID == 0 || created.Version != 1 {
		t.Fatalf("insert: %+v err=%v", created, err)
	}

	stale := created.Clone()
	created.Repeat.Count = 1
	updated, err := s.SaveObligation(ctx, created)
	if err != nil || updated.Version != 2 {
		t.Fatalf("update: %+v err=%v", updated, err)
	}

	stale.Repeat.Count = 1
	if _, err := s.SaveObligation(ctx, stale); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("stale update: expected conflict, got %v", err)
	}

	other := updated.Clone()
	other.UserID = 2
	if _, err := s.SaveObligation(ctx, other); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update: expected not found, got %v", err)
	}
}

func TestLoadAndDeleteAreUserScoped(t *testing.T) {
	ctx := context.Background()
	s := New()
	o, _ := s.SaveObligation(ctx, obligation(1))

	if _, err := s.LoadObligation(ctx, o.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := s.DeleteObligation(ctx, o.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found deleting for other user, got %v", err)
	}
	if _, err := s.DeleteObligation(ctx, o.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.DeleteObligation(ctx, o.ID, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestLoadReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	o, _ := s.SaveObligation(ctx, obligation(1))

	loaded, _ := s.LoadObligation(ctx, o.ID, 1)
	loaded.Repeat.Count = 2

	again, _ := s.LoadObligation(ctx, o.ID, 1)
	if again.Repeat.Count != 0 {
		t.Fatalf("store state changed through a loaded copy")
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, _ := s.CreateAccount(ctx, core.Account{UserID: 1, Name: "Main"})

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx ports.Store) error {
		if _, err := tx.CreateTransfer(ctx, core.Transfer{UserID: 1, OriginAccountID: acc.ID, DestinationAccountID: 99, Value: core.Money{Cents: 10}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	out, _ := s.TransfersFromAccount(ctx, acc.ID, 1)
	if len(out) != 0 {
		t.Fatalf("transfer survived rollback: %+v", out)
	}

	err = s.WithinTx(ctx, func(tx ports.Store) error {
		_, err := tx.CreateTransfer(ctx, core.Transfer{UserID: 1, OriginAccountID: acc.ID, DestinationAccountID: 99, Value: core.Money{Cents: 10}})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	out, _ = s.TransfersFromAccount(ctx, acc.ID, 1)
	if len(out) != 1 {
		t.Fatalf("expected committed transfer, got %d", len(out))
	}
}

func TestWithinTxRollbackKeepsOutsideWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- s.WithinTx(ctx, func(tx ports.Store) error {
			if _, err := tx.CreateAccount(ctx, core.Account{UserID: 1, Name: "Doomed"}); err != nil {
				return err
			}
			close(entered)
			<-release
			return errors.New("boom")
		})
	}()
	<-entered

	type created struct {
		acc core.Account
		err error
	}
	outside := make(chan created, 1)
	go func() {
		acc, err := s.CreateAccount(ctx, core.Account{UserID: 1, Name: "Outside"})
		outside <- created{acc, err}
	}()

	close(release)
	if err := <-txDone; err == nil {
		t.Fatal("expected the transaction to fail")
	}
	got := <-outside
	if got.err != nil {
		t.Fatalf("outside create: %v", got.err)
	}

	if _, err := s.GetAccount(ctx, got.acc.ID, 1); err != nil {
		t.Fatalf("outside write lost by rollback: %v", err)
	}
	accounts, _ := s.ListAccounts(ctx, 1)
	if len(accounts) != 1 || accounts[0].Name != "Outside" {
		t.Fatalf("unexpected accounts after rollback: %+v", accounts)
	}
}

func TestLedgerEntryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx, _ := s.CreateTransaction(ctx, core.Transaction{UserID: 1, AccountID: 1, CategoryID: 2, Value: core.Money{Cents: 100}})
	tr, _ := s.CreateTransfer(ctx, core.Transfer{UserID: 1, OriginAccountID: 1, DestinationAccountID: 3, Value: core.Money{Cents: 50}})

	tx.Value = core.Money{Cents: 250}
	if _, err := s.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	if got, _ := s.GetTransaction(ctx, tx.ID, 1); got.Value.Cents != 250 {
		t.Fatalf("update not stored: %+v", got)
	}

	foreign := tr
	foreign.UserID = 2
	if _, err := s.UpdateTransfer(ctx, foreign); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign transfer update: expected not found, got %v", err)
	}
	if _, err := s.GetTransfer(ctx, tr.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign transfer get: expected not found, got %v", err)
	}

	deleted, err := s.DeleteTransfer(ctx, tr.ID, 1)
	if err != nil || deleted.Value.Cents != 50 {
		t.Fatalf("delete transfer: %+v err=%v", deleted, err)
	}
	if _, err := s.DeleteTransfer(ctx, tr.ID, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
	if _, err := s.DeleteTransaction(ctx, tx.ID, 2); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign transaction delete: expected not found, got %v", err)
	}
	if _, err := s.UpdateTransaction(ctx, core.Transaction{ID: 999, UserID: 1}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing transaction update: expected not found, got %v", err)
	}
}

func TestTransactionsForAccountJoinsCategory(t *testing.T) {
	ctx := context.Background()
	s := New()
	acc, _ := s.CreateAccount(ctx, core.Account{UserID: 1, Name: "Main"})
	cat, _ := s.CreateCategory(ctx, core.Category{UserID: 1, Name: "Salary", Type: core.Income})
	if _, err := s.CreateTransaction(ctx, core.Transaction{UserID: 1, AccountID: acc.ID, CategoryID: cat.ID, Value: core.Money{Cents: 100}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateTransaction(ctx, core.Transaction{UserID: 2, AccountID: acc.ID, CategoryID: cat.ID, Value: core.Money{Cents: 100}}); err != nil {
		t.Fatal(err)
	}

	txs, err := s.TransactionsForAccount(ctx, acc.ID, 1)
	if err != nil || len(txs) != 1 {
		t.Fatalf("got %d transactions err=%v", len(txs), err)
	}
	if txs[0].Category.Type != core.Income {
		t.Fatalf("category not joined: %+v", txs[0].Category)
	}
}
