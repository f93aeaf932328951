// Package parser turns raw bank statement files into loose transaction rows.
//
// Each supported statement format has its own StatementParser implementation.
// Parsers only extract what the source encodes; canonicalization (dates, sign
// convention, sanitization) happens downstream in the pipeline package.
package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Format identifies a supported statement file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatPDF
	FormatImage
	FormatMT940
	FormatCAMT
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatPDF:
		return "pdf"
	case FormatImage:
		return "image"
	case FormatMT940:
		return "mt940"
	case FormatCAMT:
		return "camt"
	default:
		return "unknown"
	}
}

// ErrUnsupportedFormat is returned when a file cannot be matched to any
// supported statement format, or when a parser finds no usable content at all.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// ErrMissingCredential is returned by the vision parser when the extraction
// API credential is not configured. It is raised before any network call.
var ErrMissingCredential = errors.New("missing extraction API credential")

// LooseRow is the minimally-typed intermediate record produced by a parser.
// Only a date and an amount are guaranteed to be derivable from it; everything
// else is optional and format-specific.
type LooseRow struct {
	// Date is the raw source date text, in whatever encoding the format uses.
	Date string

	// Description candidates, in decreasing priority. Formats that carry
	// several free-text fields fill more than one.
	Description  string
	Purpose      string
	Counterparty string

	// Amount as parsed from the source. The sign is a guess until the
	// normalizer reconciles it with Indicator.
	Amount decimal.Decimal

	// Indicator is an explicit credit/debit marker when the source has one
	// ("credit" or "debit"), empty otherwise.
	Indicator string

	Reference string
	Currency  string
}

// StatementParser parses raw statement file bytes into loose rows.
type StatementParser interface {
	Parse(ctx context.Context, data []byte) ([]LooseRow, error)
}

// ForFormat returns the parser for the given format. The switch is exhaustive
// over all supported formats so that adding a new one is a compile-visible
// change here rather than a silent fallthrough.
func ForFormat(f Format) (StatementParser, error) {
	switch f {
	case FormatCSV:
		return &CSVParser{}, nil
	case FormatPDF:
		return &PDFParser{}, nil
	case FormatImage:
		return NewVisionParser(), nil
	case FormatMT940:
		return &MT940Parser{}, nil
	case FormatCAMT:
		return &CAMTParser{}, nil
	case FormatUnknown:
		return nil, fmt.Errorf("ForFormat: %w", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("ForFormat: no parser registered for format %q", f)
	}
}
