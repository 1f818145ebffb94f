package indexing

import (
	"crypto/sha256"
	"fmt"
)

// pointID derives a deterministic UUID-shaped id for one chunk so that
// re-indexing the same document overwrites its previous points.
func pointID(docType string, sourceID int64, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", docType, sourceID, chunkIndex)))
	hex := fmt.Sprintf("%x", sum)
	return fmt.Sprintf("%s-%s-%s-%s-%s", hex[0:8], hex[8:12], hex[12:16], hex[16:20], hex[20:32])
}
