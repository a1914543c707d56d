// Package ports declares the outbound interfaces the services depend on.
// Every lookup and mutation is scoped by the owning user id.
package ports

import (
	"context"

	"finance/internal/core"
)

type (
	AccountReader interface {
		GetAccount(ctx context.Context, id, userID int64) (core.Account, error)
		ListAccounts(ctx context.Context, userID int64) ([]core.Account, error)
	}

	AccountWriter interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	}

	CategoryReader interface {
		GetCategory(ctx context.Context, id, userID int64) (core.Category, error)
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	}

	// LedgerWriter commits ledger entries and returns them with their ids.
	// Updates and deletes match on id and user id and return core.ErrNotFound
	// when no entry matches; deletes return the removed entry.
	LedgerWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		CreateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransfer(ctx context.Context, t core.Transfer) (core.Transfer, error)
		DeleteTransaction(ctx context.Context, id, userID int64) (core.Transaction, error)
		DeleteTransfer(ctx context.Context, id, userID int64) (core.Transfer, error)
	}

	// LedgerReader fetches single entries and lists the ones touching an
	// account.
	LedgerReader interface {
		GetTransaction(ctx context.Context, id, userID int64) (core.Transaction, error)
		GetTransfer(ctx context.Context, id, userID int64) (core.Transfer, error)
		TransactionsForAccount(ctx context.Context, accountID, userID int64) ([]core.CategorizedTransaction, error)
		TransfersFromAccount(ctx context.Context, accountID, userID int64) ([]core.Transfer, error)
		TransfersToAccount(ctx context.Context, accountID, userID int64) ([]core.Transfer, error)
	}

	// ObligationStore persists scheduled obligations.
	//
	// SaveObligation inserts when ID is zero. Otherwise it updates only if the
	// stored Version equals o.Version, returning core.ErrConflict when it does
	// not and core.ErrNotFound when the row is gone. The returned obligation
	// carries the new Version.
	ObligationStore interface {
		LoadObligation(ctx context.Context, id, userID int64) (core.Obligation, error)
		ListObligations(ctx context.Context, userID int64) ([]core.Obligation, error)
		SaveObligation(ctx context.Context, o core.Obligation) (core.Obligation, error)
		DeleteObligation(ctx context.Context, id, userID int64) (core.Obligation, error)
	}

	Store interface {
		AccountReader
		AccountWriter
		CategoryReader
		CategoryWriter
		LedgerWriter
		LedgerReader
		ObligationStore
	}

	// Transactor is implemented by stores that can run several calls
	// atomically. fn receives a Store bound to the transaction; returning an
	// error rolls everything back.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(Store) error) error
	}

	// EventPublisher announces committed ledger entries.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
	}

	// LedgerMirror copies ledger events into an external sheet or log.
	LedgerMirror interface {
		AppendEntry(ctx context.Context, ev core.LedgerEvent) (rowRef string, err error)
	}
)
