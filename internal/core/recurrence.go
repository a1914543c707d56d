package core

import (
	"fmt"
	"time"
)

const (
	Days   Frequency = "days"
	Weeks  Frequency = "weeks"
	Months Frequency = "months"
	Years  Frequency = "years"
)

// MaxYear is the last year a schedule date may fall in.
const MaxYear = 9999

// maxSteps bounds interval*index per frequency to about ten thousand years,
// which keeps every occurrence far from int and time.Time overflow.
var maxSteps = map[Frequency]int{
	Days:   3_652_425,
	Weeks:  521_775,
	Months: 120_000,
	Years:  10_000,
}

// Frequency is the calendar unit a schedule repeats on.
type Frequency string

func (f Frequency) Valid() bool {
	switch f {
	case Days, Weeks, Months, Years:
		return true
	}
	return false
}

// ParseFrequency accepts the canonical names plus their singular and
// "-ly" spellings (day, daily, week, weekly, ...).
func ParseFrequency(s string) (Frequency, error) {
	switch s {
	case "days", "day", "daily":
		return Days, nil
	case "weeks", "week", "weekly":
		return Weeks, nil
	case "months", "month", "monthly":
		return Months, nil
	case "years", "year", "yearly":
		return Years, nil
	case "":
		return "", ErrMissingRepeatFrequency
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
}

// Recurrence computes occurrence dates for a fixed frequency and interval.
// Build it with NewRecurrence; the zero value is not usable.
type Recurrence struct {
	freq     Frequency
	interval int
}

// NewRecurrence rejects intervals below 1 and unknown frequencies, so that
// Occurrence itself cannot fail.
func NewRecurrence(freq Frequency, interval int) (Recurrence, error) {
	if freq == "" {
		return Recurrence{}, ErrMissingRepeatFrequency
	}
	if !freq.Valid() {
		return Recurrence{}, fmt.Errorf("%w: %q", ErrInvalidFrequency, freq)
	}
	if interval < 1 {
		return Recurrence{}, ErrInvalidInterval
	}
	if limit := maxSteps[freq]; interval > limit {
		return Recurrence{}, fmt.Errorf("%w: at most %d %s", ErrInvalidInterval, limit, freq)
	}
	return Recurrence{freq: freq, interval: interval}, nil
}

func (r Recurrence) Frequency() Frequency { return r.freq }
func (r Recurrence) Interval() int        { return r.interval }

// Occurrence returns the index-th occurrence counted from anchor, where index
// 0 is the anchor itself. It always starts from the anchor, never from a
// previous occurrence, so month-end clamping does not accumulate: Jan 31
// gives Feb 29 (2024) for index 1 and Mar 31 for index 2.
//
// Days and weeks step by calendar days. Months and years add calendar
// months and clamp the day to the last day of the target month when the
// anchor day does not exist there. Negative indexes are treated as 0, and
// indexes beyond roughly ten thousand years saturate at that bound.
func (r Recurrence) Occurrence(anchor time.Time, index int) time.Time {
	if index <= 0 || r.interval < 1 {
		return anchor
	}
	if limit := maxSteps[r.freq] / r.interval; index > limit {
		index = limit
	}
	steps := index * r.interval
	switch r.freq {
	case Days:
		return anchor.AddDate(0, 0, steps)
	case Weeks:
		return anchor.AddDate(0, 0, 7*steps)
	case Months:
		return addMonthsClamped(anchor, steps)
	case Years:
		return addMonthsClamped(anchor, 12*steps)
	}
	return anchor
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) - 1 + months
	year += total / 12
	month = time.Month(total%12 + 1)
	if last := daysIn(year, month, t.Location()); day > last {
		day = last
	}
	hour, min, sec := t.Clock()
	return time.Date(year, month, day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
