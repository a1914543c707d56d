package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/ports"
)

// AccountWithBalance is an account together with its current balance.
type AccountWithBalance struct {
	Account core.Account
	Balance core.Money
}

type BalanceService struct {
	store  ports.Store
	logger *applog.Logger
}

func NewBalanceService(store ports.Store) *BalanceService {
	return &BalanceService{
		store:  store,
		logger: applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentBalance, Handler: slog.Default().Handler()}),
	}
}

type accountLedger struct {
	txs  []core.CategorizedTransaction
	from []core.Transfer
	to   []core.Transfer
}

// load fetches the three entry lists of an account concurrently.
func (s *BalanceService) load(ctx context.Context, accountID, userID int64) (accountLedger, error) {
	if _, err := s.store.GetAccount(ctx, accountID, userID); err != nil {
		return accountLedger{}, storeErr("get account", err)
	}

	var l accountLedger
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		l.txs, err = s.store.TransactionsForAccount(gctx, accountID, userID)
		return storeErr("list transactions", err)
	})
	g.Go(func() error {
		var err error
		l.from, err = s.store.TransfersFromAccount(gctx, accountID, userID)
		return storeErr("list outgoing transfers", err)
	})
	g.Go(func() error {
		var err error
		l.to, err = s.store.TransfersToAccount(gctx, accountID, userID)
		return storeErr("list incoming transfers", err)
	})
	if err := g.Wait(); err != nil {
		return accountLedger{}, err
	}
	return l, nil
}

// AccountBalance returns the balance of one account in cents.
func (s *BalanceService) AccountBalance(ctx context.Context, accountID, userID int64) (core.Money, error) {
	l, err := s.load(ctx, accountID, userID)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: core.Balance(l.txs, l.from, l.to)}, nil
}

// Accounts lists every account of the user with its balance, in account id order.
func (s *BalanceService) Accounts(ctx context.Context, userID int64) ([]AccountWithBalance, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, storeErr("list accounts", err)
	}

	out := make([]AccountWithBalance, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, a := range accounts {
		g.Go(func() error {
			bal, err := s.AccountBalance(gctx, a.ID, userID)
			if err != nil {
				return err
			}
			out[i] = AccountWithBalance{Account: a, Balance: bal}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Failed to compute account balances",
			applog.FieldUserID, userID,
			applog.FieldError, err)
		return nil, err
	}
	return out, nil
}

// Feed returns the unified, newest-first list of entries touching an account.
func (s *BalanceService) Feed(ctx context.Context, accountID, userID int64) ([]core.FeedEntry, error) {
	l, err := s.load(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	return core.Feed(l.txs, l.from, l.to), nil
}
