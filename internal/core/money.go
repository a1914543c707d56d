package core

import (
	"strconv"
	"strings"
)

// ParseMoney converts a positive decimal amount such as "12.34" or "12,34"
// into minor units. A third fractional digit rounds half-up; anything past it
// is ignored. Zero, negative and malformed input yield ErrInvalidAmount.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || s[0] == '+' || s[0] == '-' {
		return Money{}, ErrInvalidAmount
	}
	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") || !digits(whole) || !digits(frac) {
		return Money{}, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > (1<<63-1)/100-1 {
		return Money{}, ErrInvalidAmount
	}

	frac += "000"
	cents := int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	total := units*100 + cents
	if total <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: total}, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String renders the amount with two decimals, e.g. "-12.05".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	frac := strconv.FormatInt(c%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + frac
}
