package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"finance/internal/core"
	"finance/internal/ports"
	"finance/internal/storage/memory"
)

const testUser int64 = 1

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []core.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.LedgerEvent(nil), p.events...)
}

type fixture struct {
	store    *memory.Store
	checking core.Account
	savings  core.Account
	rent     core.Category
	salary   core.Category
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	f := fixture{store: st}
	var err error
	if f.checking, err = st.CreateAccount(ctx, core.Account{UserID: testUser, Name: "checking"}); err != nil {
		t.Fatal(err)
	}
	if f.savings, err = st.CreateAccount(ctx, core.Account{UserID: testUser, Name: "savings"}); err != nil {
		t.Fatal(err)
	}
	if f.rent, err = st.CreateCategory(ctx, core.Category{UserID: testUser, Name: "rent", Type: core.Expense}); err != nil {
		t.Fatal(err)
	}
	if f.salary, err = st.CreateCategory(ctx, core.Category{UserID: testUser, Name: "salary", Type: core.Income}); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f fixture) rentPayload() core.TransactionPayload {
	return core.TransactionPayload{AccountID: f.checking.ID, CategoryID: f.rent.ID}
}

func (f fixture) savingsPayload() core.TransferPayload {
	return core.TransferPayload{OriginAccountID: f.checking.ID, DestinationAccountID: f.savings.ID}
}

func newObligationService(st ports.Store, pub ports.EventPublisher) *ObligationService {
	svc := NewObligationService(st, pub, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC) }
	return svc
}

// nonTxStore hides the Transactor implementation of the wrapped store.
type nonTxStore struct {
	ports.Store
}

// failingAdvanceStore fails every obligation update.
type failingAdvanceStore struct {
	ports.Store
	err error
}

func (s failingAdvanceStore) SaveObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.ID != 0 {
		return core.Obligation{}, s.err
	}
	return s.Store.SaveObligation(ctx, o)
}

// racingStore bumps the stored version right after the first load, as if a
// concurrent edit had landed in between.
type racingStore struct {
	ports.Store
	once sync.Once
}

func (s *racingStore) LoadObligation(ctx context.Context, id, userID int64) (core.Obligation, error) {
	o, err := s.Store.LoadObligation(ctx, id, userID)
	if err != nil {
		return o, err
	}
	s.once.Do(func() {
		_, err = s.Store.SaveObligation(ctx, o.Clone())
	})
	return o, err
}
