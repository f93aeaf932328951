package parser

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMT940Parser_Parse(t *testing.T) {
	input := ":20:STARTUMSE\n" +
		":25:10020030/1234567\n" +
		":28C:00001/001\n" +
		":60F:C240101EUR1000,00\n" +
		":61:2401020102D123,45NTRFNONREF\n" +
		":86:Rent payment\n" +
		":61:2401050105C2500,00NTRFNONREF\n" +
		":86:Salary\n" +
		"January\n" +
		":62F:C240131EUR3376,55\n"

	rows, err := (&MT940Parser{}).Parse(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	rent := rows[0]
	if rent.Date != "2024-01-02" {
		t.Errorf("date = %q, want 2024-01-02", rent.Date)
	}
	if rent.Indicator != "debit" {
		t.Errorf("indicator = %q, want debit", rent.Indicator)
	}
	if !rent.Amount.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("amount = %s, want 123.45", rent.Amount)
	}
	if rent.Description != "Rent payment" {
		t.Errorf("description = %q, want 'Rent payment'", rent.Description)
	}

	salary := rows[1]
	if salary.Indicator != "credit" {
		t.Errorf("indicator = %q, want credit", salary.Indicator)
	}
	if salary.Description != "Salary January" {
		t.Errorf("continuation line not appended: description = %q", salary.Description)
	}
}

func TestMT940Parser_LastTransactionFlushedAtEOF(t *testing.T) {
	input := ":61:2401020102D10,00NTRF\n:86:Final entry"

	rows, err := (&MT940Parser{}).Parse(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Description != "Final entry" {
		t.Errorf("description = %q", rows[0].Description)
	}
}

func TestMT940Parser_MalformedStatementLineDropped(t *testing.T) {
	input := ":61:garbage\n" +
		":86:orphaned text\n" +
		":61:2401020102D10,00NTRF\n" +
		":86:Valid entry\n"

	rows, err := (&MT940Parser{}).Parse(context.Background(), []byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("malformed :61: line must be dropped, not fatal: got %d rows", len(rows))
	}
	if rows[0].Description != "Valid entry" {
		t.Errorf("orphaned :86: text leaked into %q", rows[0].Description)
	}
}

func TestExpandBookingDate(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"240102", "2024-01-02", false},
		{"991231", "1999-12-31", false},
		{"700101", "1970-01-01", false},
		{"691231", "2069-12-31", false},
		{"241301", "", true},
		{"240100", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := expandBookingDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandBookingDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expandBookingDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
