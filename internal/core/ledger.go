package core

import (
	"sort"
	"time"
)

// LedgerEntry is the committed result of materializing an obligation.
// Exactly one of Transaction and Transfer is set, matching Kind.
type LedgerEntry struct {
	Kind        Kind
	Transaction *Transaction
	Transfer    *Transfer
}

// ID returns the store id of whichever entry is set.
func (e LedgerEntry) ID() int64 {
	switch {
	case e.Transaction != nil:
		return e.Transaction.ID
	case e.Transfer != nil:
		return e.Transfer.ID
	}
	return 0
}

// Balance sums the signed contribution of every committed entry touching one
// account: income adds, expense subtracts, outgoing transfers subtract and
// incoming transfers add. Transactions carrying a Transfer* category type are
// skipped since transfers are already counted from their own rows.
func Balance(txs []CategorizedTransaction, from, to []Transfer) int64 {
	var total int64
	for _, ct := range txs {
		switch ct.Category.Type {
		case Income:
			total += ct.Transaction.Value.Cents
		case Expense:
			total -= ct.Transaction.Value.Cents
		}
	}
	for _, t := range from {
		total -= t.Value.Cents
	}
	for _, t := range to {
		total += t.Value.Cents
	}
	return total
}

// FeedEntry is one row of the unified account feed. Transfers appear with the
// display-only TransferExpense or TransferIncome types.
type FeedEntry struct {
	Kind                 Kind
	ID                   int64
	Value                Money
	Description          string
	Date                 time.Time
	CategoryID           int64
	CategoryName         string
	CategoryType         CategoryType
	CounterpartAccountID int64
}

// Signed returns the entry value with the sign it contributes to the balance.
func (f FeedEntry) Signed() int64 {
	switch f.CategoryType {
	case Expense, TransferExpense:
		return -f.Value.Cents
	}
	return f.Value.Cents
}

// Feed merges transactions and transfers of one account, newest first.
func Feed(txs []CategorizedTransaction, from, to []Transfer) []FeedEntry {
	out := make([]FeedEntry, 0, len(txs)+len(from)+len(to))
	for _, ct := range txs {
		out = append(out, FeedEntry{
			Kind:         KindTransaction,
			ID:           ct.Transaction.ID,
			Value:        ct.Transaction.Value,
			Description:  ct.Transaction.Description,
			Date:         ct.Transaction.Date,
			CategoryID:   ct.Category.ID,
			CategoryName: ct.Category.Name,
			CategoryType: ct.Category.Type,
		})
	}
	for _, t := range from {
		out = append(out, transferRow(t, TransferExpense, t.DestinationAccountID))
	}
	for _, t := range to {
		out = append(out, transferRow(t, TransferIncome, t.OriginAccountID))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func transferRow(t Transfer, typ CategoryType, counterpart int64) FeedEntry {
	return FeedEntry{
		Kind:                 KindTransfer,
		ID:                   t.ID,
		Value:                t.Value,
		Description:          t.Description,
		Date:                 t.Date,
		CategoryName:         "Transfer",
		CategoryType:         typ,
		CounterpartAccountID: counterpart,
	}
}

// LedgerEvent announces a committed ledger entry to downstream consumers.
// ObligationID is zero for entries recorded directly.
type LedgerEvent struct {
	Kind          Kind
	EntryID       int64
	UserID        int64
	AccountID     int64
	CategoryID    int64
	CounterpartID int64
	Value         Money
	Description   string
	Date          time.Time
	ObligationID  int64
	Retired       bool
}

// EventFromEntry describes a committed entry as a LedgerEvent.
func EventFromEntry(e LedgerEntry) LedgerEvent {
	switch {
	case e.Transaction != nil:
		t := e.Transaction
		return LedgerEvent{
			Kind:        KindTransaction,
			EntryID:     t.ID,
			UserID:      t.UserID,
			AccountID:   t.AccountID,
			CategoryID:  t.CategoryID,
			Value:       t.Value,
			Description: t.Description,
			Date:        t.Date,
		}
	case e.Transfer != nil:
		t := e.Transfer
		return LedgerEvent{
			Kind:          KindTransfer,
			EntryID:       t.ID,
			UserID:        t.UserID,
			AccountID:     t.OriginAccountID,
			CounterpartID: t.DestinationAccountID,
			Value:         t.Value,
			Description:   t.Description,
			Date:          t.Date,
		}
	}
	return LedgerEvent{}
}
