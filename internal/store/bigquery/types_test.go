package bigquery

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finstream/bankfeed/internal/pipeline"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	tx := &pipeline.Transaction{
		ID:          "tx-1",
		AccountID:   "acc-1",
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Description: "Miete Januar",
		Amount:      decimal.RequireFromString("-950.00"),
		Type:        pipeline.TypeDebit,
		Reference:   "NONREF",
		Currency:    "EUR",
		Hash:        "abc123",
		CreatedAt:   time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}

	got := fromTransactionRow(toTransactionRow(tx))

	if got.ID != tx.ID || got.AccountID != tx.AccountID || got.Hash != tx.Hash {
		t.Errorf("identity fields changed: %+v", got)
	}
	if !got.Date.Equal(tx.Date) {
		t.Errorf("date = %s, want %s", got.Date, tx.Date)
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, tx.Amount)
	}
	if got.Type != tx.Type || got.Currency != tx.Currency || got.Reference != tx.Reference {
		t.Errorf("attributes changed: %+v", got)
	}
}

func TestRatToDecimal_NilIsZero(t *testing.T) {
	if got := ratToDecimal(nil); !got.IsZero() {
		t.Errorf("ratToDecimal(nil) = %s, want 0", got)
	}
}
