package pipeline

import (
	"context"

	"github.com/finstream/bankfeed/internal/logger"
)

// insertChunkSize bounds how many records go into one store insert. Chunking
// bounds memory and keeps the blast radius of one bad chunk small in stores
// that reject a whole batch over one bad row.
const insertChunkSize = 500

// InsertChunked writes the records in fixed-size chunks, sequentially. A
// failed chunk is counted and logged, and processing continues with the next
// chunk; one failure never aborts the rest of the batch.
func InsertChunked(ctx context.Context, store Store, txs []*Transaction) (inserted, failed int) {
	log := logger.FromContext(ctx)

	for start := 0; start < len(txs); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(txs) {
			end = len(txs)
		}
		chunk := txs[start:end]

		if err := store.InsertTransactions(ctx, chunk); err != nil {
			log.Warn().
				Err(err).
				Int("chunk_start", start).
				Int("chunk_size", len(chunk)).
				Msg("Chunk insert failed, continuing with next chunk")
			failed += len(chunk)
			continue
		}
		inserted += len(chunk)
	}
	return inserted, failed
}
