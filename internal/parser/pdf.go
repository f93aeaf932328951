package parser

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts the text layer of a statement document and applies a
// single line grammar: DATE DESCRIPTION AMOUNT [CURRENCY], with dot-separated
// day-month-year dates. Scanned documents without a text layer are rejected;
// those go through the image path instead.
type PDFParser struct{}

// pdfLinePattern matches one statement line. The amount requires a decimal
// separator so bare integers inside descriptions are not mistaken for amounts.
var pdfLinePattern = regexp.MustCompile(
	`^(\d{1,2}\.\d{1,2}\.\d{2,4})\s+(.+?)\s+(-?\d[\d.,]*[.,]\d{1,2})(?:\s+([A-Z]{3}))?$`)

func (p *PDFParser) Parse(ctx context.Context, data []byte) ([]LooseRow, error) {
	pages, err := extractPageText(data)
	if err != nil {
		return nil, fmt.Errorf("PDFParser: extracting text layer: %w", err)
	}

	rows := parseStatementLines(pages)
	if len(rows) == 0 {
		return nil, fmt.Errorf("PDFParser: no transaction lines in text layer (scanned or unsupported document): %w",
			ErrUnsupportedFormat)
	}
	return rows, nil
}

// extractPageText reads page text in reading order. The library panics on
// some malformed documents, so extraction is fenced with a recover.
func extractPageText(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("document parser crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}

// parseStatementLines applies the line grammar to every extracted line.
// Lines that do not match are discarded.
func parseStatementLines(pages []string) []LooseRow {
	var rows []LooseRow
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			m := pdfLinePattern.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			amount, err := ParseAmount(m[3])
			if err != nil {
				continue
			}
			rows = append(rows, LooseRow{
				Date:        m[1],
				Description: strings.TrimSpace(m[2]),
				Amount:      amount,
				Currency:    m[4],
			})
		}
	}
	return rows
}
