package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/finstream/bankfeed/internal/pipeline"
)

type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED

	AccountName string `bigquery:"account_name"` // NULLABLE (empty string → "")
	Currency    string `bigquery:"currency"`     // NULLABLE

	Balance          *big.Rat `bigquery:"balance"`           // NUMERIC, NULLABLE
	AvailableBalance *big.Rat `bigquery:"available_balance"` // NUMERIC, NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	AccountID     string `bigquery:"account_id"`     // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED DATE

	Description string   `bigquery:"description"` // REQUIRED STRING
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC, signed
	Direction   string   `bigquery:"direction"`   // REQUIRED STRING (credit|debit)

	ExternalReference string `bigquery:"external_reference"` // NULLABLE
	Currency          string `bigquery:"currency"`           // REQUIRED STRING

	TransactionHash string `bigquery:"transaction_hash"` // REQUIRED, dedup key

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func toTransactionRow(tx *pipeline.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:     tx.ID,
		AccountID:         tx.AccountID,
		TransactionDate:   civil.DateOf(tx.Date),
		Description:       tx.Description,
		Amount:            tx.Amount.Rat(),
		Direction:         tx.Type,
		ExternalReference: tx.Reference,
		Currency:          tx.Currency,
		TransactionHash:   tx.Hash,
		CreatedTS:         tx.CreatedAt,
	}
}

func fromTransactionRow(row *TransactionRow) *pipeline.Transaction {
	return &pipeline.Transaction{
		ID:          row.TransactionID,
		AccountID:   row.AccountID,
		Date:        row.TransactionDate.In(time.UTC),
		Description: row.Description,
		Amount:      ratToDecimal(row.Amount),
		Type:        row.Direction,
		Reference:   row.ExternalReference,
		Currency:    row.Currency,
		Hash:        row.TransactionHash,
		CreatedAt:   row.CreatedTS,
	}
}

func fromAccountRow(row *AccountRow) *pipeline.Account {
	return &pipeline.Account{
		ID:               row.AccountID,
		Name:             row.AccountName,
		Currency:         row.Currency,
		Balance:          ratToDecimal(row.Balance),
		AvailableBalance: ratToDecimal(row.AvailableBalance),
		CreatedAt:        row.CreatedTS,
	}
}

// ratToDecimal converts a BigQuery NUMERIC value at cent precision.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, 2)
}
