package core

import (
	"fmt"
	"time"
)

const (
	KindTransaction Kind = "transaction"
	KindTransfer    Kind = "transfer"
)

// Kind tells which ledger entry an obligation materializes into.
type Kind string

// Payload is the kind-specific part of an obligation. It is implemented only
// by TransactionPayload and TransferPayload.
type Payload interface {
	Kind() Kind
	validate() error
}

type TransactionPayload struct {
	AccountID  int64
	CategoryID int64
}

type TransferPayload struct {
	OriginAccountID      int64
	DestinationAccountID int64
}

func (TransactionPayload) Kind() Kind { return KindTransaction }
func (TransferPayload) Kind() Kind    { return KindTransfer }

func (p TransactionPayload) validate() error {
	if p.AccountID <= 0 || p.CategoryID <= 0 {
		return ErrInvalidReference
	}
	return nil
}

func (p TransferPayload) validate() error {
	if p.OriginAccountID <= 0 || p.DestinationAccountID <= 0 {
		return ErrInvalidReference
	}
	if p.OriginAccountID == p.DestinationAccountID {
		return ErrSameAccount
	}
	return nil
}

// RepeatPolicy is present only on repeating obligations. EndAfter is zero
// when Infinite is set. Count is the number of occurrences already paid.
type RepeatPolicy struct {
	Frequency Frequency
	Interval  int
	Infinite  bool
	EndAfter  int
	Count     int
}

// Recurrence builds the calculator for this policy.
func (p RepeatPolicy) Recurrence() (Recurrence, error) {
	return NewRecurrence(p.Frequency, p.Interval)
}

// Exhausted reports whether paying with the given count retires a finite schedule.
func (p RepeatPolicy) Exhausted(count int) bool {
	return !p.Infinite && count >= p.EndAfter
}

// Obligation is a scheduled, possibly recurring, transaction or transfer.
// CreatedDate anchors every occurrence and never changes after creation.
// Version is bumped by the store on each update and guards concurrent pays.
type Obligation struct {
	ID          int64
	UserID      int64
	Value       Money
	Description string
	CreatedDate time.Time
	Payload     Payload
	Repeat      *RepeatPolicy
	NextDate    time.Time
	Version     int64
}

// Kind is derived from the payload; it is empty when the payload is missing.
func (o Obligation) Kind() Kind {
	if o.Payload == nil {
		return ""
	}
	return o.Payload.Kind()
}

func (o Obligation) Repeats() bool { return o.Repeat != nil }

// Clone returns a copy that does not share the repeat policy.
func (o Obligation) Clone() Obligation {
	if o.Repeat != nil {
		r := *o.Repeat
		o.Repeat = &r
	}
	return o
}

// Validate checks the obligation invariants without touching any store.
// Every failure wraps ErrInvalidSchedule together with a precise cause.
func (o Obligation) Validate() error {
	if err := o.Value.Validate(); err != nil {
		return invalidSchedule(err)
	}
	if len(o.Description) > maxDescriptionLen {
		return invalidSchedule(ErrDescriptionTooLong)
	}
	if o.CreatedDate.IsZero() {
		return invalidSchedule(ErrMissingCreatedDate)
	}
	if !InRange(o.CreatedDate) {
		return invalidSchedule(ErrDateOutOfRange)
	}
	if o.Payload == nil {
		return invalidSchedule(ErrMissingPayload)
	}
	if err := o.Payload.validate(); err != nil {
		return invalidSchedule(err)
	}

	if o.Repeat == nil {
		if !o.NextDate.Equal(o.CreatedDate) {
			return invalidSchedule(ErrNextDateMismatch)
		}
		return nil
	}

	r := o.Repeat
	rec, err := r.Recurrence()
	if err != nil {
		return invalidSchedule(err)
	}
	if r.Count < 0 {
		return invalidSchedule(ErrNegativeRepeatCount)
	}
	if r.Infinite {
		if r.EndAfter != 0 {
			return invalidSchedule(ErrUnexpectedEndAfter)
		}
		return nil
	}
	if r.EndAfter < 1 {
		return invalidSchedule(ErrMissingEndAfter)
	}
	if r.EndAfter <= r.Count {
		return invalidSchedule(ErrRepeatCapReached)
	}
	if last := rec.Occurrence(o.CreatedDate, r.EndAfter-1); !InRange(last) {
		return invalidSchedule(fmt.Errorf("%w: %w", ErrInvalidInterval, ErrScheduleTooLong))
	}
	return nil
}

// InRange reports whether t falls in the years every store can hold.
func InRange(t time.Time) bool {
	y := t.Year()
	return y >= 1 && y <= MaxYear
}

// DateOf returns the calendar date of t, as written in t's own zone, at UTC
// midnight. Stored schedule and ledger dates are always in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
