package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finstream/bankfeed/internal/parser"
)

// ErrInvalidDate marks a loose row with no derivable transaction date. This
// is the only per-row fatal condition: a missing date usually means the
// format assumption itself is wrong, so the whole import is aborted rather
// than silently skipping rows.
var ErrInvalidDate = errors.New("missing or invalid transaction date")

// RowError is a fatal normalization failure scoped to one row.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// descriptionPlaceholder is used when no free-text candidate survives
// sanitization.
const descriptionPlaceholder = "Transaction"

// Normalize converts one loose row into a canonical transaction record for
// the given account. The date is resolved through a cascade of recognized
// encodings; an explicit credit/debit indicator overrides whatever sign the
// parser guessed; the final amount sign always matches the resolved type.
func Normalize(row parser.LooseRow, accountID, homeCurrency string) (*Transaction, error) {
	date, err := resolveDate(row.Date)
	if err != nil {
		return nil, err
	}

	description := resolveDescription(row)

	txType := row.Indicator
	if txType != TypeCredit && txType != TypeDebit {
		if row.Amount.IsNegative() {
			txType = TypeDebit
		} else {
			txType = TypeCredit
		}
	}

	amount := row.Amount.Abs()
	if txType == TypeDebit {
		amount = amount.Neg()
	}

	currency := strings.ToUpper(strings.TrimSpace(row.Currency))
	if currency == "" {
		currency = homeCurrency
	}

	return &Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        txType,
		Reference:   strings.TrimSpace(row.Reference),
		Currency:    currency,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// NormalizeAll normalizes a whole parse result. The first row failure aborts
// the batch, wrapped in a RowError carrying the row index.
func NormalizeAll(rows []parser.LooseRow, accountID, homeCurrency string) ([]*Transaction, error) {
	txs := make([]*Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := Normalize(row, accountID, homeCurrency)
		if err != nil {
			return nil, &RowError{Index: i, Err: err}
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

var (
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dotDatePattern   = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2}|\d{4})$`)
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	sixDigitPattern  = regexp.MustCompile(`^\d{6}$`)
)

// Layouts tried as a last resort before giving up on a date.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006/01/02",
	"02-01-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// resolveDate runs the date cascade: ISO passthrough, dot day-month-year,
// slash month-day-year, bare 6-digit year-month-day with the two-digit-year
// pivot, then generic layouts.
func resolveDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}

	if isoDatePattern.MatchString(s) {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	if m := dotDatePattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year = parser.ExpandYear(year)
		}
		return calendarDate(year, month, day, s)
	}

	if m := slashDatePattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return calendarDate(year, month, day, s)
	}

	if sixDigitPattern.MatchString(s) {
		year, _ := strconv.Atoi(s[0:2])
		month, _ := strconv.Atoi(s[2:4])
		day, _ := strconv.Atoi(s[4:6])
		return calendarDate(parser.ExpandYear(year), month, day, s)
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// calendarDate builds a UTC date and rejects component combinations that
// time.Date would silently normalize (month 13, day 32).
func calendarDate(year, month, day int, raw string) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// resolveDescription falls through the free-text candidates and sanitizes the
// first one that survives; everything empty yields the generic placeholder.
func resolveDescription(row parser.LooseRow) string {
	for _, candidate := range []string{row.Description, row.Purpose, row.Counterparty, row.Reference} {
		if s := sanitizeText(candidate); s != "" {
			return s
		}
	}
	return descriptionPlaceholder
}

// sanitizeText trims, collapses internal whitespace to single spaces, and
// strips non-printable and non-ASCII characters.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r < 127 {
			b.WriteRune(r)
		} else if r == '\t' || r == '\n' || r == '\r' {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
