package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StableID derives a deterministic identifier from a natural key. Repeated
// ingestion ticks produce the same id for the same key, so writes overwrite
// instead of duplicating rows. The id must stay stable across process
// restarts and runtimes because persisted data depends on it.
func StableID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "#")))
	return hex.EncodeToString(sum[:])[:16]
}
