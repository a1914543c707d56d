package core

import (
	"math/rand"
	"testing"
)

func categorized(id int64, cents int64, typ CategoryType) CategorizedTransaction {
	return CategorizedTransaction{
		Transaction: Transaction{ID: id, AccountID: 1, CategoryID: 10, Value: Money{Cents: cents}, Date: day(2024, 1, int(id))},
		Category:    Category{ID: 10, Name: string(typ), Type: typ},
	}
}

func transfer(id, from, to, cents int64) Transfer {
	return Transfer{ID: id, OriginAccountID: from, DestinationAccountID: to, Value: Money{Cents: cents}, Date: day(2024, 2, int(id))}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name string
		txs  []CategorizedTransaction
		from []Transfer
		to   []Transfer
		want int64
	}{
		{"no data", nil, nil, nil, 0},
		{"income minus expense", []CategorizedTransaction{categorized(1, 1000, Income), categorized(2, 300, Expense)}, nil, nil, 700},
		{"transfers only", nil, []Transfer{transfer(1, 1, 2, 200)}, []Transfer{transfer(2, 3, 1, 50)}, -150},
		{"transfer category types are ignored", []CategorizedTransaction{
			categorized(1, 1000, Income),
			categorized(2, 400, TransferExpense),
			categorized(3, 400, TransferIncome),
		}, nil, nil, 1000},
		{"mixed", []CategorizedTransaction{categorized(1, 5000, Income), categorized(2, 1250, Expense)},
			[]Transfer{transfer(1, 1, 2, 1000)}, []Transfer{transfer(2, 2, 1, 250)}, 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Balance(tt.txs, tt.from, tt.to); got != tt.want {
				t.Fatalf("Balance = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBalanceIsOrderIndependent(t *testing.T) {
	txs := []CategorizedTransaction{
		categorized(1, 100, Income), categorized(2, 37, Expense), categorized(3, 990, Income),
		categorized(4, 12, Expense), categorized(5, 5, Expense),
	}
	from := []Transfer{transfer(1, 1, 2, 70), transfer(2, 1, 3, 30)}
	to := []Transfer{transfer(3, 2, 1, 11), transfer(4, 3, 1, 9)}

	var want int64
	for _, ct := range txs {
		want += Balance([]CategorizedTransaction{ct}, nil, nil)
	}
	for _, tr := range from {
		want += Balance(nil, []Transfer{tr}, nil)
	}
	for _, tr := range to {
		want += Balance(nil, nil, []Transfer{tr})
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(txs), func(a, b int) { txs[a], txs[b] = txs[b], txs[a] })
		rng.Shuffle(len(from), func(a, b int) { from[a], from[b] = from[b], from[a] })
		rng.Shuffle(len(to), func(a, b int) { to[a], to[b] = to[b], to[a] })
		if got := Balance(txs, from, to); got != want {
			t.Fatalf("shuffle %d: Balance = %d, want %d", i, got, want)
		}
	}
}

func TestFeed(t *testing.T) {
	txs := []CategorizedTransaction{categorized(1, 1000, Income), categorized(3, 300, Expense)}
	from := []Transfer{transfer(1, 1, 2, 200)}
	to := []Transfer{transfer(2, 4, 1, 50)}

	feed := Feed(txs, from, to)
	if len(feed) != 4 {
		t.Fatalf("feed len = %d, want 4", len(feed))
	}
	for i := 1; i < len(feed); i++ {
		if feed[i].Date.After(feed[i-1].Date) {
			t.Fatalf("feed not sorted newest first at %d", i)
		}
	}

	first := feed[0]
	if first.Kind != KindTransfer || first.CategoryType != TransferIncome || first.CounterpartAccountID != 4 {
		t.Fatalf("unexpected newest row: %+v", first)
	}
	second := feed[1]
	if second.CategoryType != TransferExpense || second.CounterpartAccountID != 2 {
		t.Fatalf("unexpected outgoing transfer row: %+v", second)
	}

	var sum int64
	for _, f := range feed {
		sum += f.Signed()
	}
	if want := Balance(txs, from, to); sum != want {
		t.Fatalf("feed signed sum %d != balance %d", sum, want)
	}
}

func TestEventFromEntry(t *testing.T) {
	tr := transfer(9, 1, 2, 75)
	ev := EventFromEntry(LedgerEntry{Kind: KindTransfer, Transfer: &tr})
	if ev.Kind != KindTransfer || ev.EntryID != 9 || ev.AccountID != 1 || ev.CounterpartID != 2 || ev.Value.Cents != 75 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	tx := categorized(4, 10, Expense).Transaction
	ev = EventFromEntry(LedgerEntry{Kind: KindTransaction, Transaction: &tx})
	if ev.Kind != KindTransaction || ev.EntryID != 4 || ev.CategoryID != 10 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
