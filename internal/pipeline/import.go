package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finstream/bankfeed/internal/logger"
	"github.com/finstream/bankfeed/internal/parser"
)

// DefaultCurrency is the home currency assigned to accounts created on the
// fly when an import has no account to attach to.
const DefaultCurrency = "EUR"

// Importer drives one statement import end to end. It holds no mutable state
// of its own; the injected store is the only shared resource it touches.
type Importer struct {
	store Store
}

func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// ImportFile runs the full pipeline for one statement file, strictly
// sequentially: resolve account, detect format, parse, normalize, hash,
// deduplicate, insert in chunks, recalculate the balance.
//
// Fatal conditions (unsupported format, a row without a derivable date, a
// missing extraction credential) surface as the sole result; nothing is
// inserted. Partial insert failures and a failed balance refresh are absorbed
// and reflected only in the returned stats and logs.
func (imp *Importer) ImportFile(ctx context.Context, file File, accountID string) (*Stats, error) {
	log := logger.FromContext(ctx)

	account, err := imp.resolveAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: resolving account: %w", err)
	}

	format, err := parser.Detect(file.Name, file.ContentType, file.Data)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: %w", err)
	}
	log.Info().
		Str("file", file.Name).
		Str("format", format.String()).
		Str("account_id", account.ID).
		Msg("Starting statement import")

	p, err := parser.ForFormat(format)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: %w", err)
	}

	rows, err := p.Parse(ctx, file.Data)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: parsing %s content: %w", format, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ImportFile: %s content yielded no transactions: %w", format, parser.ErrUnsupportedFormat)
	}

	txs, err := NormalizeAll(rows, account.ID, account.Currency)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: normalizing rows: %w", err)
	}
	for _, tx := range txs {
		tx.Hash = Fingerprint(tx)
	}

	fresh, duplicates, err := Deduplicate(ctx, imp.store, account.ID, txs)
	if err != nil {
		return nil, fmt.Errorf("ImportFile: %w", err)
	}

	inserted, failed := InsertChunked(ctx, imp.store, fresh)

	// Balance is a cache over durable rows: a failed refresh is stale, not
	// lost data, so it does not fail the import.
	if err := RecalculateBalance(ctx, imp.store, account.ID); err != nil {
		log.Warn().Err(err).Str("account_id", account.ID).Msg("Balance recalculation failed")
	}

	stats := &Stats{
		Total:      len(txs),
		Imported:   inserted,
		Duplicates: len(duplicates),
		Failed:     failed,
	}
	log.Info().
		Int("total", stats.Total).
		Int("imported", stats.Imported).
		Int("duplicates", stats.Duplicates).
		Int("failed", stats.Failed).
		Msg("Statement import finished")
	return stats, nil
}

// RefreshBalance re-derives an account's balance outside of an import.
func (imp *Importer) RefreshBalance(ctx context.Context, accountID string) error {
	return RecalculateBalance(ctx, imp.store, accountID)
}

// resolveAccount fetches the target account, falling back to the first
// available account when no hint is given, and creating a default account
// when the store has none at all.
func (imp *Importer) resolveAccount(ctx context.Context, accountID string) (*Account, error) {
	if accountID != "" {
		account, err := imp.store.FindAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return account, nil
		}
		account = &Account{ID: accountID, Name: "Imported account", Currency: DefaultCurrency}
		if err := imp.store.CreateAccount(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}

	account, err := imp.store.FirstAccount(ctx)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &Account{ID: uuid.NewString(), Name: "Default account", Currency: DefaultCurrency}
	if err := imp.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
