// Package pipeline turns parsed statement rows into canonical ledger records
// and drives one import end to end: normalize, hash, deduplicate, insert in
// chunks, recalculate the account balance.
package pipeline

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical transaction type labels. The label is always consistent with the
// sign of the amount: debit means negative, credit means positive.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Transaction is the canonical, store-ready representation of one ledger
// entry. Records are created once by the normalizer and immutable afterwards;
// reconciliation re-derives, it never mutates.
type Transaction struct {
	ID        string
	AccountID string

	// Date is the booking date, calendar precision.
	Date time.Time

	// Description is sanitized free text: trimmed, inner whitespace collapsed,
	// non-printable and non-ASCII characters stripped.
	Description string

	// Amount is signed: positive for credits, negative for debits.
	Amount decimal.Decimal

	// Type is "credit" or "debit", consistent with the sign of Amount.
	Type string

	Reference string
	Currency  string

	// Hash is the content fingerprint used as the sole deduplication key.
	// Computed once at creation, never recomputed.
	Hash string

	CreatedAt time.Time
}

// DateISO returns the transaction date formatted as YYYY-MM-DD.
func (t *Transaction) DateISO() string {
	return t.Date.Format("2006-01-02")
}

// Account is the owning account as seen by this subsystem. Balance fields are
// a cache: always equal to the sum of amounts over the account's stored
// transactions after a successful recalculation.
type Account struct {
	ID               string
	Name             string
	Currency         string
	Balance          decimal.Decimal
	AvailableBalance decimal.Decimal
	CreatedAt        time.Time
}

// Stats summarizes one import for the caller.
type Stats struct {
	Total      int `json:"total"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// File is one statement file handed to the importer.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
