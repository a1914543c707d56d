package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/observability"
	"finance/internal/ports"
)

// ObligationInput is the caller-supplied shape of an obligation on create
// and edit. Frequency, Interval, Infinite and EndAfter are read only when
// Repeat is set; EndAfter is dropped for infinite schedules.
type ObligationInput struct {
	Value       core.Money
	Description string
	CreatedDate time.Time
	Payload     core.Payload
	Repeat      bool
	Frequency   core.Frequency
	Interval    int
	Infinite    bool
	EndAfter    int
}

// PaymentInput overrides parts of the obligation for one pay call. Zero
// values fall back to the stored obligation; Date falls back to NextDate.
type PaymentInput struct {
	Value       core.Money
	Description *string
	Date        time.Time
	Payload     core.Payload
}

// PayResult describes a completed pay. Obligation holds the advanced
// schedule, or the deleted one when Retired is set.
type PayResult struct {
	Entry      core.LedgerEntry
	Obligation core.Obligation
	Retired    bool
}

// ObligationService owns the lifecycle of scheduled obligations: create,
// edit, pay (materialize then advance or retire) and delete.
type ObligationService struct {
	store   ports.Store
	events  ports.EventPublisher
	metrics *observability.Metrics
	logger  *applog.Logger
	now     func() time.Time
}

func NewObligationService(store ports.Store, events ports.EventPublisher, metrics *observability.Metrics) *ObligationService {
	return &ObligationService{
		store:   store,
		events:  events,
		metrics: metrics,
		logger:  applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentObligation, Handler: slog.Default().Handler()}),
		now:     time.Now,
	}
}

func (in ObligationInput) obligation(userID int64) core.Obligation {
	if !in.CreatedDate.IsZero() {
		in.CreatedDate = core.DateOf(in.CreatedDate)
	}
	o := core.Obligation{
		UserID:      userID,
		Value:       in.Value,
		Description: in.Description,
		CreatedDate: in.CreatedDate,
		NextDate:    in.CreatedDate,
		Payload:     in.Payload,
	}
	if in.Repeat {
		p := &core.RepeatPolicy{Frequency: in.Frequency, Interval: in.Interval, Infinite: in.Infinite}
		if !in.Infinite {
			p.EndAfter = in.EndAfter
		}
		o.Repeat = p
	}
	return o
}

// Create validates and stores a new obligation. The repeat count starts at
// zero and the first occurrence is due on the created date, which defaults
// to today (UTC midnight).
func (s *ObligationService) Create(ctx context.Context, userID int64, in ObligationInput) (core.Obligation, error) {
	if in.CreatedDate.IsZero() {
		in.CreatedDate = s.now().UTC()
	}
	o := in.obligation(userID)
	if err := o.Validate(); err != nil {
		s.metrics.Failure(applog.OpCreate, err)
		return core.Obligation{}, err
	}
	if err := checkReferences(ctx, s.store, userID, o.Payload); err != nil {
		s.metrics.Failure(applog.OpCreate, err)
		return core.Obligation{}, err
	}

	saved, err := s.store.SaveObligation(ctx, o)
	if err != nil {
		err = storeErr("save obligation", err)
		s.metrics.Failure(applog.OpCreate, err)
		return core.Obligation{}, err
	}
	s.metrics.ObligationOp(applog.OpCreate)
	s.logger.InfoContext(ctx, "Obligation created",
		applog.FieldObligationID, saved.ID,
		applog.FieldUserID, userID,
		applog.FieldKind, saved.Kind())
	return saved, nil
}

// Edit replaces the editable fields of an obligation. The created date is
// fixed at creation and the repeat count already paid is preserved, so the
// next date is recomputed from them.
func (s *ObligationService) Edit(ctx context.Context, userID, id int64, in ObligationInput) (core.Obligation, error) {
	cur, err := s.store.LoadObligation(ctx, id, userID)
	if err != nil {
		err = storeErr("load obligation", err)
		s.metrics.Failure(applog.OpUpdate, err)
		return core.Obligation{}, err
	}
	if !in.CreatedDate.IsZero() && !core.DateOf(in.CreatedDate).Equal(cur.CreatedDate) {
		err := fmt.Errorf("%w: %w", core.ErrInvalidSchedule, core.ErrAnchorChanged)
		s.metrics.Failure(applog.OpUpdate, err)
		return core.Obligation{}, err
	}
	in.CreatedDate = cur.CreatedDate

	next := in.obligation(userID)
	next.ID, next.Version = cur.ID, cur.Version
	if next.Repeat != nil && cur.Repeat != nil {
		next.Repeat.Count = cur.Repeat.Count
	}
	if err := next.Validate(); err != nil {
		s.metrics.Failure(applog.OpUpdate, err)
		return core.Obligation{}, err
	}
	if next.Repeat != nil {
		rec, _ := next.Repeat.Recurrence()
		next.NextDate = rec.Occurrence(next.CreatedDate, next.Repeat.Count)
		if !core.InRange(next.NextDate) {
			err := fmt.Errorf("%w: %w", core.ErrInvalidSchedule, core.ErrScheduleTooLong)
			s.metrics.Failure(applog.OpUpdate, err)
			return core.Obligation{}, err
		}
	}
	if err := checkReferences(ctx, s.store, userID, next.Payload); err != nil {
		s.metrics.Failure(applog.OpUpdate, err)
		return core.Obligation{}, err
	}

	saved, err := s.store.SaveObligation(ctx, next)
	if err != nil {
		err = storeErr("save obligation", err)
		s.metrics.Failure(applog.OpUpdate, err)
		return core.Obligation{}, err
	}
	s.metrics.ObligationOp(applog.OpUpdate)
	s.logger.InfoContext(ctx, "Obligation updated",
		applog.FieldObligationID, saved.ID,
		applog.FieldUserID, userID)
	return saved, nil
}

// Delete removes an obligation. Deleting a missing id fails with NotFound.
func (s *ObligationService) Delete(ctx context.Context, userID, id int64) (core.Obligation, error) {
	o, err := s.store.DeleteObligation(ctx, id, userID)
	if err != nil {
		err = storeErr("delete obligation", err)
		s.metrics.Failure(applog.OpDelete, err)
		return core.Obligation{}, err
	}
	s.metrics.ObligationOp(applog.OpDelete)
	s.logger.InfoContext(ctx, "Obligation deleted",
		applog.FieldObligationID, id,
		applog.FieldUserID, userID)
	return o, nil
}

func (s *ObligationService) Get(ctx context.Context, userID, id int64) (core.Obligation, error) {
	o, err := s.store.LoadObligation(ctx, id, userID)
	if err != nil {
		return core.Obligation{}, storeErr("load obligation", err)
	}
	return o, nil
}

// List returns the user's obligations, most recently created first.
func (s *ObligationService) List(ctx context.Context, userID int64) ([]core.Obligation, error) {
	out, err := s.store.ListObligations(ctx, userID)
	if err != nil {
		return nil, storeErr("list obligations", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedDate.Equal(out[j].CreatedDate) {
			return out[i].CreatedDate.After(out[j].CreatedDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Pay materializes the next occurrence of an obligation into the ledger and
// then advances or retires it.
//
// On a store implementing ports.Transactor both steps commit together. On
// any other store they run in sequence, and a failure after the ledger entry
// was written returns *core.AdvanceError so the caller does not pay twice.
func (s *ObligationService) Pay(ctx context.Context, userID, id int64, in PaymentInput) (PayResult, error) {
	var (
		res PayResult
		err error
	)
	if tx, ok := s.store.(ports.Transactor); ok {
		err = tx.WithinTx(ctx, func(st ports.Store) error {
			var payErr error
			res, payErr = s.pay(ctx, st, userID, id, in)
			return payErr
		})
		if err != nil && !classified(err) {
			err = storeErr("pay transaction", err)
		}
	} else {
		res, err = s.pay(ctx, s.store, userID, id, in)
	}

	var advErr *core.AdvanceError
	if errors.As(err, &advErr) {
		s.logger.ErrorContext(ctx, "Payment recorded but schedule not advanced",
			applog.FieldObligationID, id,
			applog.FieldUserID, userID,
			applog.FieldEntryID, advErr.Entry.ID(),
			applog.FieldError, advErr.Err)
		s.publish(ctx, advErr.Entry, id, false)
	}
	if err != nil {
		s.metrics.Failure(applog.OpPay, err)
		return PayResult{}, err
	}

	s.metrics.Payment(res.Entry.Kind, res.Retired)
	s.metrics.LedgerEntry(res.Entry.Kind, true)
	s.logger.InfoContext(ctx, "Obligation paid",
		applog.FieldObligationID, id,
		applog.FieldUserID, userID,
		applog.FieldEntryID, res.Entry.ID(),
		applog.FieldRetired, res.Retired)
	s.publish(ctx, res.Entry, id, res.Retired)
	return res, nil
}

func (s *ObligationService) pay(ctx context.Context, st ports.Store, userID, id int64, in PaymentInput) (PayResult, error) {
	o, err := st.LoadObligation(ctx, id, userID)
	if err != nil {
		return PayResult{}, storeErr("load obligation", err)
	}

	payload := o.Payload
	if in.Payload != nil {
		if in.Payload.Kind() != o.Kind() {
			return PayResult{}, fmt.Errorf("%w: %w", core.ErrBadRequest, core.ErrKindMismatch)
		}
		payload = in.Payload
	}

	entry, err := materialize(ctx, st, o, payload, in)
	if err != nil {
		return PayResult{}, err
	}

	res, err := advance(ctx, st, o)
	if err != nil {
		if _, atomic := s.store.(ports.Transactor); atomic {
			return PayResult{}, err
		}
		return PayResult{}, &core.AdvanceError{ObligationID: o.ID, Entry: entry, Err: err}
	}
	res.Entry = entry
	return res, nil
}

// materialize resolves the payload references and writes the ledger entry.
// Missing transaction references are NotFound while missing transfer
// references are BadRequest.
func materialize(ctx context.Context, st ports.Store, o core.Obligation, payload core.Payload, in PaymentInput) (core.LedgerEntry, error) {
	value := o.Value
	if in.Value.Cents != 0 {
		value = in.Value
	}
	desc := o.Description
	if in.Description != nil {
		desc = *in.Description
	}
	date := o.NextDate
	if !in.Date.IsZero() {
		date = core.DateOf(in.Date)
	}

	switch p := payload.(type) {
	case core.TransactionPayload:
		if _, err := st.GetAccount(ctx, p.AccountID, o.UserID); err != nil {
			return core.LedgerEntry{}, refErr(core.ErrNotFound, "account", p.AccountID, err)
		}
		if _, err := st.GetCategory(ctx, p.CategoryID, o.UserID); err != nil {
			return core.LedgerEntry{}, refErr(core.ErrNotFound, "category", p.CategoryID, err)
		}
		tx := core.Transaction{
			UserID:      o.UserID,
			AccountID:   p.AccountID,
			CategoryID:  p.CategoryID,
			Value:       value,
			Description: desc,
			Date:        date,
		}
		if err := tx.Validate(); err != nil {
			return core.LedgerEntry{}, err
		}
		created, err := st.CreateTransaction(ctx, tx)
		if err != nil {
			return core.LedgerEntry{}, storeErr("create transaction", err)
		}
		return core.LedgerEntry{Kind: core.KindTransaction, Transaction: &created}, nil

	case core.TransferPayload:
		if _, err := st.GetAccount(ctx, p.OriginAccountID, o.UserID); err != nil {
			return core.LedgerEntry{}, refErr(core.ErrBadRequest, "origin account", p.OriginAccountID, err)
		}
		if _, err := st.GetAccount(ctx, p.DestinationAccountID, o.UserID); err != nil {
			return core.LedgerEntry{}, refErr(core.ErrBadRequest, "destination account", p.DestinationAccountID, err)
		}
		tr := core.Transfer{
			UserID:               o.UserID,
			OriginAccountID:      p.OriginAccountID,
			DestinationAccountID: p.DestinationAccountID,
			Value:                value,
			Description:          desc,
			Date:                 date,
		}
		if err := tr.Validate(); err != nil {
			return core.LedgerEntry{}, err
		}
		created, err := st.CreateTransfer(ctx, tr)
		if err != nil {
			return core.LedgerEntry{}, storeErr("create transfer", err)
		}
		return core.LedgerEntry{Kind: core.KindTransfer, Transfer: &created}, nil
	}
	return core.LedgerEntry{}, fmt.Errorf("%w: %w", core.ErrBadRequest, core.ErrMissingPayload)
}

// advance retires a one-shot or exhausted obligation and otherwise moves it
// to its next occurrence with a version-checked save. An infinite schedule
// whose next occurrence falls past core.MaxYear is retired as well.
func advance(ctx context.Context, st ports.Store, o core.Obligation) (PayResult, error) {
	if o.Repeat == nil || o.Repeat.Exhausted(o.Repeat.Count+1) {
		return retire(ctx, st, o)
	}

	next := o.Clone()
	next.Repeat.Count++
	rec, err := next.Repeat.Recurrence()
	if err != nil {
		return PayResult{}, fmt.Errorf("%w: %w", core.ErrInvalidSchedule, err)
	}
	next.NextDate = rec.Occurrence(next.CreatedDate, next.Repeat.Count)
	if !core.InRange(next.NextDate) {
		return retire(ctx, st, o)
	}

	saved, err := st.SaveObligation(ctx, next)
	if err != nil {
		return PayResult{}, storeErr("advance obligation", err)
	}
	return PayResult{Obligation: saved}, nil
}

func retire(ctx context.Context, st ports.Store, o core.Obligation) (PayResult, error) {
	deleted, err := st.DeleteObligation(ctx, o.ID, o.UserID)
	if err != nil {
		return PayResult{}, storeErr("retire obligation", err)
	}
	if deleted.Version != o.Version {
		return PayResult{}, fmt.Errorf("retire obligation: %w", core.ErrConflict)
	}
	return PayResult{Obligation: deleted, Retired: true}, nil
}

func (s *ObligationService) publish(ctx context.Context, entry core.LedgerEntry, obligationID int64, retired bool) {
	if s.events == nil {
		return
	}
	ev := core.EventFromEntry(entry)
	ev.ObligationID = obligationID
	ev.Retired = retired
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			applog.FieldObligationID, obligationID,
			applog.FieldEntryID, entry.ID(),
			applog.FieldError, err)
	}
}

// checkReferences rejects payloads pointing at accounts or categories the
// user does not own.
func checkReferences(ctx context.Context, st ports.Store, userID int64, payload core.Payload) error {
	switch p := payload.(type) {
	case core.TransactionPayload:
		if _, err := st.GetAccount(ctx, p.AccountID, userID); err != nil {
			return refErr(core.ErrBadRequest, "account", p.AccountID, err)
		}
		if _, err := st.GetCategory(ctx, p.CategoryID, userID); err != nil {
			return refErr(core.ErrBadRequest, "category", p.CategoryID, err)
		}
	case core.TransferPayload:
		if _, err := st.GetAccount(ctx, p.OriginAccountID, userID); err != nil {
			return refErr(core.ErrBadRequest, "origin account", p.OriginAccountID, err)
		}
		if _, err := st.GetAccount(ctx, p.DestinationAccountID, userID); err != nil {
			return refErr(core.ErrBadRequest, "destination account", p.DestinationAccountID, err)
		}
	}
	return nil
}
