package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MT940Parser parses SWIFT MT940/MT942 statement messages.
//
// The message is line-oriented: a :61: statement line opens a transaction
// (booking date, credit/debit indicator, amount), a :86: information line and
// any unstructured continuation line feed the open transaction's description.
type MT940Parser struct{}

// statementLinePattern captures the :61: fields used here: a 6-digit value
// date (YYMMDD), an optional 4-digit entry date, the debit/credit indicator
// (including the reversal forms RD/RC), and a decimal-comma amount.
var statementLinePattern = regexp.MustCompile(`^:61:(\d{6})(\d{4})?(R?[CD])(\d+,\d*)`)

func (p *MT940Parser) Parse(ctx context.Context, data []byte) ([]LooseRow, error) {
	var (
		rows    []LooseRow
		current *LooseRow
		desc    []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(desc, " "))
		rows = append(rows, *current)
		current, desc = nil, nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " ")
		switch {
		case strings.HasPrefix(line, ":61:"):
			flush()
			row, err := parseStatementLine(line)
			if err != nil {
				// A malformed single line must not abort an otherwise-valid
				// message; the transaction it would have opened is dropped.
				continue
			}
			current = row
		case strings.HasPrefix(line, ":86:"):
			if current != nil {
				desc = append(desc, strings.TrimSpace(strings.TrimPrefix(line, ":86:")))
			}
		case strings.HasPrefix(line, ":"):
			// Other tags (:20:, :25:, :62F:, ...) carry no transaction data.
		default:
			if current != nil && strings.TrimSpace(line) != "" {
				desc = append(desc, strings.TrimSpace(line))
			}
		}
	}
	flush()

	return rows, nil
}

func parseStatementLine(line string) (*LooseRow, error) {
	m := statementLinePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("parseStatementLine: line does not match :61: grammar")
	}

	date, err := expandBookingDate(m[1])
	if err != nil {
		return nil, fmt.Errorf("parseStatementLine: %w", err)
	}

	amount, err := ParseAmount(m[4])
	if err != nil {
		return nil, fmt.Errorf("parseStatementLine: %w", err)
	}

	indicator := "credit"
	if strings.HasSuffix(m[3], "D") {
		indicator = "debit"
	}

	return &LooseRow{
		Date:      date,
		Amount:    amount,
		Indicator: indicator,
	}, nil
}

// expandBookingDate turns a YYMMDD value date into an ISO date, expanding the
// two-digit year with the pivot rule.
func expandBookingDate(s string) (string, error) {
	yy, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	dd, _ := strconv.Atoi(s[4:6])
	if mm < 1 || mm > 12 || dd < 1 || dd > 31 {
		return "", fmt.Errorf("expandBookingDate: invalid booking date %q", s)
	}
	return fmt.Sprintf("%04d-%02d-%02d", ExpandYear(yy), mm, dd), nil
}
