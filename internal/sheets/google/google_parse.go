package google

import (
	"strconv"
	"strings"
)

// rowOf extracts the first row number from an A1 range such as
// "'2024 Ledger'!A5:J5". It returns false when no row is present.
func rowOf(a1 string) (int, bool) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	start := strings.IndexFunc(a1, func(r rune) bool { return r >= '0' && r <= '9' })
	if start <= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(a1[start:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
