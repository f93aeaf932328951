package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint computes the stable content hash used as this subsystem's sole
// deduplication key: a SHA-256 digest over the pipe-joined tuple of date,
// amount rounded to two decimals, lower-cased trimmed description, and
// lower-cased type. Reference and currency are deliberately excluded, so two
// distinct transactions that coincide on all four fields collapse into one.
func Fingerprint(t *Transaction) string {
	payload := strings.Join([]string{
		t.DateISO(),
		t.Amount.StringFixed(2),
		strings.ToLower(strings.TrimSpace(t.Description)),
		strings.ToLower(t.Type),
	}, "|")

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
