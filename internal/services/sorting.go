package services

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CompareCueNumbers orders cue numbers numerically ("9" < "12" < "12.5"); non-numeric
// values sort after numeric ones, lexically, and empty values sort last.
func CompareCueNumbers(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}

	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	switch {
	case errA == nil && errB == nil:
		return da.Cmp(db)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// ComparePageNumbers orders script pages naturally: "2" < "10" < "10a" < "10b" < "11".
// Pages without a leading number sort after numbered pages, lexically.
func ComparePageNumbers(a, b string) int {
	na, sa, okA := splitPageNumber(a)
	nb, sb, okB := splitPageNumber(b)
	switch {
	case okA && !okB:
		return -1
	case !okA && okB:
		return 1
	case okA && okB:
		if c := na.Cmp(nb); c != 0 {
			return c
		}
	}
	return strings.Compare(sa, sb)
}

// splitPageNumber separates the leading integer of a page number from its suffix
func splitPageNumber(page string) (decimal.Decimal, string, bool) {
	page = strings.ToLower(strings.TrimSpace(page))
	end := strings.IndexFunc(page, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(page)
	}
	if end == 0 {
		return decimal.Zero, page, false
	}
	n, err := decimal.NewFromString(page[:end])
	if err != nil {
		return decimal.Zero, page, false
	}
	return n, strings.TrimSpace(page[end:]), true
}
