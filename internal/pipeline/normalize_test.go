package pipeline

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finstream/bankfeed/internal/parser"
)

func TestResolveDate_RoundTrip(t *testing.T) {
	// Every supported source encoding of the same calendar day.
	tests := []struct {
		name  string
		input string
	}{
		{"iso", "2024-12-31"},
		{"dot day-month-year", "31.12.2024"},
		{"dot two-digit year", "31.12.24"},
		{"slash month-day-year", "12/31/2024"},
		{"six digit", "241231"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveDate(tt.input)
			if err != nil {
				t.Fatalf("resolveDate(%q) failed: %v", tt.input, err)
			}
			if iso := got.Format("2006-01-02"); iso != "2024-12-31" {
				t.Errorf("resolveDate(%q) = %s, want 2024-12-31", tt.input, iso)
			}
		})
	}
}

func TestResolveDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "not a date", "31.13.2024", "241332", "99.99.99"} {
		t.Run(input, func(t *testing.T) {
			if _, err := resolveDate(input); !errors.Is(err, ErrInvalidDate) {
				t.Errorf("resolveDate(%q) error = %v, want ErrInvalidDate", input, err)
			}
		})
	}
}

func TestNormalize_SignInvariant(t *testing.T) {
	tests := []struct {
		name       string
		row        parser.LooseRow
		wantType   string
		wantAmount string
	}{
		{
			name:       "negative amount no indicator",
			row:        parser.LooseRow{Date: "2024-01-02", Description: "Rent", Amount: decimal.RequireFromString("-950.00")},
			wantType:   TypeDebit,
			wantAmount: "-950.00",
		},
		{
			name:       "positive amount no indicator",
			row:        parser.LooseRow{Date: "2024-01-05", Description: "Salary", Amount: decimal.RequireFromString("2500.00")},
			wantType:   TypeCredit,
			wantAmount: "2500.00",
		},
		{
			name:       "explicit debit overrides positive sign",
			row:        parser.LooseRow{Date: "2024-01-02", Description: "Rent", Amount: decimal.RequireFromString("123.45"), Indicator: "debit"},
			wantType:   TypeDebit,
			wantAmount: "-123.45",
		},
		{
			name:       "explicit credit overrides negative sign",
			row:        parser.LooseRow{Date: "2024-01-02", Description: "Refund", Amount: decimal.RequireFromString("-10.00"), Indicator: "credit"},
			wantType:   TypeCredit,
			wantAmount: "10.00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := Normalize(tt.row, "acc-1", "EUR")
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if tx.Type != tt.wantType {
				t.Errorf("type = %q, want %q", tx.Type, tt.wantType)
			}
			if !tx.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("amount = %s, want %s", tx.Amount, tt.wantAmount)
			}
			// Invariant: debit iff amount < 0.
			if (tx.Type == TypeDebit) != tx.Amount.IsNegative() {
				t.Errorf("type %q inconsistent with amount %s", tx.Type, tx.Amount)
			}
		})
	}
}

func TestNormalize_MissingDateFatal(t *testing.T) {
	_, err := Normalize(parser.LooseRow{Description: "No date", Amount: decimal.NewFromInt(1)}, "acc-1", "EUR")
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestNormalizeAll_RowErrorCarriesIndex(t *testing.T) {
	rows := []parser.LooseRow{
		{Date: "2024-01-02", Description: "ok", Amount: decimal.NewFromInt(1)},
		{Date: "bogus", Description: "bad", Amount: decimal.NewFromInt(1)},
	}
	_, err := NormalizeAll(rows, "acc-1", "EUR")
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %v", err)
	}
	if rowErr.Index != 1 {
		t.Errorf("row index = %d, want 1", rowErr.Index)
	}
}

func TestNormalize_CurrencyDefaultsToAccountHome(t *testing.T) {
	tx, err := Normalize(parser.LooseRow{Date: "2024-01-02", Description: "x", Amount: decimal.NewFromInt(1)}, "acc-1", "CHF")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tx.Currency != "CHF" {
		t.Errorf("currency = %q, want CHF", tx.Currency)
	}

	tx, err = Normalize(parser.LooseRow{Date: "2024-01-02", Description: "x", Amount: decimal.NewFromInt(1), Currency: "usd"}, "acc-1", "CHF")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tx.Currency != "USD" {
		t.Errorf("currency = %q, want USD", tx.Currency)
	}
}

func TestNormalize_SemicolonDialectScenario(t *testing.T) {
	// End-to-end check of the regional export scenario: the parsed row must
	// normalize to an ISO date, a debit, and the source currency.
	row := parser.LooseRow{
		Date:        "02.01.24",
		Description: "Miete Januar",
		Amount:      decimal.RequireFromString("-950.00"),
		Currency:    "EUR",
	}
	tx, err := Normalize(row, "acc-1", "EUR")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if tx.DateISO() != "2024-01-02" {
		t.Errorf("date = %s, want 2024-01-02", tx.DateISO())
	}
	if tx.Description != "Miete Januar" {
		t.Errorf("description = %q", tx.Description)
	}
	if tx.Type != TypeDebit || !tx.Amount.Equal(decimal.RequireFromString("-950.00")) {
		t.Errorf("got %s %s, want debit -950.00", tx.Type, tx.Amount)
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim and collapse", "  Rent   payment \t Jan ", "Rent payment Jan"},
		{"strip non-ascii", "Café Müller", "Caf Mller"},
		{"strip control chars", "abc\x01\x02def", "abcdef"},
		{"newlines become spaces", "line1\nline2", "line1 line2"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeText(tt.input); got != tt.want {
				t.Errorf("sanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveDescription_Fallback(t *testing.T) {
	row := parser.LooseRow{Purpose: "Standing order"}
	if got := resolveDescription(row); got != "Standing order" {
		t.Errorf("got %q, want purpose fallback", got)
	}

	row = parser.LooseRow{Counterparty: "ACME GmbH"}
	if got := resolveDescription(row); got != "ACME GmbH" {
		t.Errorf("got %q, want counterparty fallback", got)
	}

	if got := resolveDescription(parser.LooseRow{}); got != descriptionPlaceholder {
		t.Errorf("got %q, want placeholder", got)
	}
}
