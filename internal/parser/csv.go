package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVParser parses comma- or semicolon-delimited statement exports.
//
// Two sub-dialects are supported: a header-driven generic dialect where the
// date/description/amount columns are auto-detected from the header row, and
// a semicolon regional dialect (German-style exports) with decimal-comma
// amounts where summary lines are interleaved with transactions.
type CSVParser struct{}

// Column keyword lists for header auto-detection, matched case-insensitively
// as substrings of header cells. English and German terms are covered.
var (
	dateKeywords      = []string{"date", "datum", "buchungstag", "valuta"}
	descKeywords      = []string{"description", "verwendungszweck", "buchungstext", "beschreibung", "details", "memo", "narrative"}
	amountKeywords    = []string{"amount", "betrag", "value", "sum"}
	indicatorKeywords = []string{"credit/debit", "soll/haben", "c/d", "dc", "direction", "type", "umsatzart"}
	referenceKeywords = []string{"reference", "referenz"}
	currencyKeywords  = []string{"currency", "währung", "waehrung", "ccy"}
)

func (p *CSVParser) Parse(ctx context.Context, data []byte) ([]LooseRow, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if isSemicolonDialect(text) {
		return p.parseSemicolon(text)
	}
	return p.parseGeneric(text)
}

// isSemicolonDialect reports whether the text looks like a semicolon regional
// export: either a recognizable semicolon-separated header keyword, or more
// than three semicolon-delimited fields on the first non-empty line.
func isSemicolonDialect(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, ";") &&
			(strings.Contains(lower, "buchungstag") || strings.Contains(lower, "verwendungszweck") || strings.Contains(lower, "betrag")) {
			return true
		}
		// More than three semicolon-delimited fields per line.
		return strings.Count(line, ";") >= 3
	}
	return false
}

type columnMap struct {
	date, desc, amount, indicator, reference, currency int
}

func newColumnMap() columnMap {
	return columnMap{date: -1, desc: -1, amount: -1, indicator: -1, reference: -1, currency: -1}
}

func matchColumn(cell string, keywords []string) bool {
	cell = strings.ToLower(strings.TrimSpace(cell))
	for _, kw := range keywords {
		if strings.Contains(cell, kw) {
			return true
		}
	}
	return false
}

func resolveColumns(header []string) columnMap {
	cols := newColumnMap()
	for i, cell := range header {
		switch {
		case cols.date < 0 && matchColumn(cell, dateKeywords):
			cols.date = i
		case cols.amount < 0 && matchColumn(cell, amountKeywords) && !matchColumn(cell, dateKeywords):
			// A cell like "Value Date" matches an amount keyword but names a
			// date column; it must never bind the amount.
			cols.amount = i
		case cols.desc < 0 && matchColumn(cell, descKeywords):
			cols.desc = i
		case cols.indicator < 0 && matchColumn(cell, indicatorKeywords):
			cols.indicator = i
		case cols.reference < 0 && matchColumn(cell, referenceKeywords):
			cols.reference = i
		case cols.currency < 0 && matchColumn(cell, currencyKeywords):
			cols.currency = i
		}
	}
	return cols
}

// parseGeneric handles the header-driven dialect. Column auto-detection must
// resolve date, description and amount; a partial mapping is rejected outright
// because a silently wrong column would corrupt amounts.
func (p *CSVParser) parseGeneric(text string) ([]LooseRow, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVParser: reading delimited text: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSVParser: no data rows below header: %w", ErrUnsupportedFormat)
	}

	cols := resolveColumns(records[0])
	if cols.date < 0 || cols.desc < 0 || cols.amount < 0 {
		return nil, fmt.Errorf("CSVParser: could not resolve date/description/amount columns from header %v: %w",
			records[0], ErrUnsupportedFormat)
	}

	var rows []LooseRow
	for _, rec := range records[1:] {
		if cols.date >= len(rec) || cols.desc >= len(rec) || cols.amount >= len(rec) {
			continue
		}
		amount, err := ParseAmount(rec[cols.amount])
		if err != nil {
			// Malformed single line, drop it.
			continue
		}
		row := LooseRow{
			Date:        strings.TrimSpace(rec[cols.date]),
			Description: strings.TrimSpace(rec[cols.desc]),
			Amount:      amount,
		}
		if cols.indicator >= 0 && cols.indicator < len(rec) {
			row.Indicator = normalizeIndicator(rec[cols.indicator])
		}
		if cols.reference >= 0 && cols.reference < len(rec) {
			row.Reference = strings.TrimSpace(rec[cols.reference])
		}
		if cols.currency >= 0 && cols.currency < len(rec) {
			row.Currency = strings.ToUpper(strings.TrimSpace(rec[cols.currency]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// normalizeIndicator maps the explicit credit/debit markers seen in exports
// onto the canonical labels. Unrecognized markers are dropped so the sign of
// the amount decides.
func normalizeIndicator(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "credit", "cr", "c", "h", "haben", "in":
		return "credit"
	case "debit", "dr", "d", "s", "soll", "out":
		return "debit"
	default:
		return ""
	}
}

// Fixed column positions for headerless semicolon exports.
const (
	semiDateCol     = 0
	semiDescCol     = 1
	semiAmountCol   = 2
	semiCurrencyCol = 3
)

// parseSemicolon handles the semicolon regional dialect: decimal-comma
// amounts, an optional German header row, and balance/summary lines
// interleaved with transactions. Lines that do not yield a finite non-zero
// amount are skipped rather than failing the file.
func (p *CSVParser) parseSemicolon(text string) ([]LooseRow, error) {
	lines := strings.Split(text, "\n")

	dateCol, descCol, amountCol, currencyCol := semiDateCol, semiDescCol, semiAmountCol, semiCurrencyCol
	start := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if cols := resolveColumns(strings.Split(line, ";")); cols.date >= 0 && cols.amount >= 0 {
			dateCol, amountCol = cols.date, cols.amount
			if cols.desc >= 0 {
				descCol = cols.desc
			}
			if cols.currency >= 0 {
				currencyCol = cols.currency
			}
			start = i + 1
		}
		break
	}

	var rows []LooseRow
	for _, line := range lines[start:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		if dateCol >= len(fields) || descCol >= len(fields) || amountCol >= len(fields) {
			continue
		}
		amount, err := ParseAmount(fields[amountCol])
		if err != nil || amount.IsZero() {
			// Balance and summary lines carry no usable amount.
			continue
		}
		row := LooseRow{
			Date:        strings.TrimSpace(fields[dateCol]),
			Description: strings.TrimSpace(fields[descCol]),
			Amount:      amount,
		}
		if currencyCol < len(fields) {
			row.Currency = strings.ToUpper(strings.TrimSpace(fields[currencyCol]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
