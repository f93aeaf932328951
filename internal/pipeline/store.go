package pipeline

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the persistence boundary consumed by the pipeline. Implementations
// live under internal/store; the pipeline never holds one in static scope,
// callers inject it.
type Store interface {
	// FindAccount returns the account with the given id, or nil when it does
	// not exist.
	FindAccount(ctx context.Context, accountID string) (*Account, error)

	// FirstAccount returns the oldest account, or nil when none exist. Used
	// as the fallback when an import carries no account hint.
	FirstAccount(ctx context.Context) (*Account, error)

	CreateAccount(ctx context.Context, account *Account) error

	// ExistingHashes reports which of the given transaction hashes are
	// already stored for the account.
	ExistingHashes(ctx context.Context, accountID string, hashes []string) (map[string]struct{}, error)

	// InsertTransactions writes one batch of canonical records. The batch is
	// all-or-nothing from the pipeline's point of view: on error the whole
	// batch counts as failed.
	InsertTransactions(ctx context.Context, txs []*Transaction) error

	// ListTransactions returns every stored record for the account.
	ListTransactions(ctx context.Context, accountID string) ([]*Transaction, error)

	// UpdateAccountBalance writes the recalculated balance fields.
	UpdateAccountBalance(ctx context.Context, accountID string, balance, available decimal.Decimal) error
}
