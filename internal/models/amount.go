package models

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// amountLimit is the exclusive upper bound for a single expense amount.
var amountLimit = decimal.NewFromInt(1_000_000_000)

// ParseAmount converts user input to an amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. At most two
// fraction digits are allowed. An empty string parses to zero, which filters
// treat as "no amount".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount checks that d is non-negative, below the limit and has at most two fraction digits.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThanOrEqual(amountLimit) {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// ParseEnteredAmount parses the amount of an expense being created or edited.
// Unlike ParseAmount, blank input is rejected instead of meaning "no amount".
func ParseEnteredAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	return ParseAmount(s)
}

// FormatAmount renders an amount with the currency symbol, thousands grouping and two fraction digits.
func FormatAmount(symbol string, d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	return sign + symbol + humanize.BigComma(d.Truncate(0).BigInt()) + fixed[len(fixed)-3:]
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether t falls on ref's calendar day, read in ref's location.
// Stored dates keep the offset they were written with, so ref is the caller's
// date and decides which calendar applies.
func SameDay(t, ref time.Time) bool {
	y1, m1, d1 := t.In(ref.Location()).Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
