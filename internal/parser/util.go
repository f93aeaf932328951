package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount converts a source amount string into a decimal, normalizing the
// three numeric notations that appear across statement exports:
//
//	1.234,56  (thousands dot, decimal comma)
//	1,234.56  (thousands comma, decimal dot)
//	123,45    (bare decimal comma)
//
// Currency symbols and other stray characters are stripped after the decimal
// separator is normalized.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("ParseAmount: empty amount")
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		// Whichever separator appears last is the decimal one.
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("ParseAmount: no digits in amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %w", err)
	}
	return d, nil
}

// ExpandYear resolves a two-digit year using the statement pivot rule:
// 70 and above are 19xx, everything below is 20xx.
func ExpandYear(yy int) int {
	if yy >= 70 {
		return 1900 + yy
	}
	return 2000 + yy
}
