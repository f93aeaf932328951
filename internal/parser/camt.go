package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// CAMTParser parses ISO 20022 bank-to-customer XML statements (camt.052/053).
// It iterates every statement entry regardless of where in the document tree
// it sits, so both statement and report message shapes are covered.
type CAMTParser struct{}

type camtEntry struct {
	Ref       string     `xml:"NtryRef"`
	Amount    camtAmount `xml:"Amt"`
	CdtDbtInd string     `xml:"CdtDbtInd"`
	BookgDt   camtDate   `xml:"BookgDt"`
	ValDt     camtDate   `xml:"ValDt"`
	AddtlInf  string     `xml:"AddtlNtryInf"`
	Details   []camtTx   `xml:"NtryDtls>TxDtls"`
}

type camtAmount struct {
	Ccy   string `xml:"Ccy,attr"`
	Value string `xml:",chardata"`
}

type camtDate struct {
	Dt   string `xml:"Dt"`
	DtTm string `xml:"DtTm"`
}

type camtTx struct {
	EndToEndID string   `xml:"Refs>EndToEndId"`
	Ustrd      []string `xml:"RmtInf>Ustrd"`
	AddtlTxInf string   `xml:"AddtlTxInf"`
	CdtrName   string   `xml:"RltdPties>Cdtr>Nm"`
	DbtrName   string   `xml:"RltdPties>Dbtr>Nm"`
}

func (p *CAMTParser) Parse(ctx context.Context, data []byte) ([]LooseRow, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var rows []LooseRow
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CAMTParser: malformed XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Ntry" {
			continue
		}

		var entry camtEntry
		if err := decoder.DecodeElement(&entry, &start); err != nil {
			return nil, fmt.Errorf("CAMTParser: decoding statement entry: %w", err)
		}
		if row, ok := entryToRow(entry); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// entryToRow maps one statement entry to a loose row. Entries without an
// amount are skipped; a missing or ambiguous credit/debit indicator defaults
// to credit.
func entryToRow(e camtEntry) (LooseRow, bool) {
	value := strings.TrimSpace(e.Amount.Value)
	if value == "" {
		return LooseRow{}, false
	}
	amount, err := ParseAmount(value)
	if err != nil {
		return LooseRow{}, false
	}

	indicator := "credit"
	if strings.EqualFold(strings.TrimSpace(e.CdtDbtInd), "DBIT") {
		indicator = "debit"
	}

	row := LooseRow{
		Date:      entryDate(e),
		Amount:    amount,
		Indicator: indicator,
		Currency:  strings.ToUpper(strings.TrimSpace(e.Amount.Ccy)),
		Reference: entryReference(e),
	}
	row.Description, row.Purpose, row.Counterparty = entryDescriptions(e)
	return row, true
}

// entryDate takes the booking date from the first present of three candidate
// elements: booking date, booking datetime, value date.
func entryDate(e camtEntry) string {
	if e.BookgDt.Dt != "" {
		return e.BookgDt.Dt
	}
	if e.BookgDt.DtTm != "" {
		if len(e.BookgDt.DtTm) >= 10 {
			return e.BookgDt.DtTm[:10]
		}
		return e.BookgDt.DtTm
	}
	return e.ValDt.Dt
}

// entryDescriptions collects the free-text candidates in priority order:
// unstructured remittance info, additional entry info, additional transaction
// info, counterparty name. The normalizer applies the placeholder when every
// candidate is empty.
func entryDescriptions(e camtEntry) (desc, purpose, counterparty string) {
	var tx camtTx
	if len(e.Details) > 0 {
		tx = e.Details[0]
	}
	desc = strings.TrimSpace(strings.Join(tx.Ustrd, " "))
	purpose = strings.TrimSpace(e.AddtlInf)
	if purpose == "" {
		purpose = strings.TrimSpace(tx.AddtlTxInf)
	}
	counterparty = strings.TrimSpace(tx.CdtrName)
	if counterparty == "" {
		counterparty = strings.TrimSpace(tx.DbtrName)
	}
	return desc, purpose, counterparty
}

// entryReference prefers the end-to-end id and falls back to the entry
// reference.
func entryReference(e camtEntry) string {
	for _, tx := range e.Details {
		if ref := strings.TrimSpace(tx.EndToEndID); ref != "" && !strings.EqualFold(ref, "NOTPROVIDED") {
			return ref
		}
	}
	return strings.TrimSpace(e.Ref)
}
