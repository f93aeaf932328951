package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RecalculateBalance re-derives the account's balance from the full set of
// stored transactions and writes it back as both balance and available
// balance. The balance is always a pure function of the ledger: never
// adjusted incrementally, so running this twice with no new transactions is a
// no-op.
func RecalculateBalance(ctx context.Context, store Store, accountID string) error {
	txs, err := store.ListTransactions(ctx, accountID)
	if err != nil {
		return fmt.Errorf("RecalculateBalance: listing transactions: %w", err)
	}

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}

	if err := store.UpdateAccountBalance(ctx, accountID, sum, sum); err != nil {
		return fmt.Errorf("RecalculateBalance: updating account: %w", err)
	}
	return nil
}
