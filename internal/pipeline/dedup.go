package pipeline

import (
	"context"
	"fmt"
)

// Deduplicate partitions a batch into records not yet stored for the account
// and already-seen duplicates. One batch existence query is issued per call;
// an empty batch short-circuits without touching the store. Repeats of the
// same hash inside the batch also count as duplicates.
func Deduplicate(ctx context.Context, store Store, accountID string, txs []*Transaction) (fresh, duplicates []*Transaction, err error) {
	if len(txs) == 0 {
		return nil, nil, nil
	}

	hashes := make([]string, 0, len(txs))
	for _, tx := range txs {
		hashes = append(hashes, tx.Hash)
	}

	existing, err := store.ExistingHashes(ctx, accountID, hashes)
	if err != nil {
		return nil, nil, fmt.Errorf("Deduplicate: querying existing hashes: %w", err)
	}

	seen := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		if _, ok := existing[tx.Hash]; ok {
			duplicates = append(duplicates, tx)
			continue
		}
		if _, ok := seen[tx.Hash]; ok {
			duplicates = append(duplicates, tx)
			continue
		}
		seen[tx.Hash] = struct{}{}
		fresh = append(fresh, tx)
	}
	return fresh, duplicates, nil
}
