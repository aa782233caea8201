// Package docid derives stable identifiers for documents and chunks.
//
// IDs are content-derived so that re-ingesting the same corpus with the same
// chunking parameters produces byte-identical chunk sequences and an
// identical index.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// docIDPrefixLen caps how much content participates in the hash; enough to
// distinguish documents without hashing multi-megabyte bodies twice.
const docIDPrefixLen = 500

// DocID returns a stable 12-hex-char identifier derived from title and the
// leading content of a document.
func DocID(title, content string) string {
	if len(content) > docIDPrefixLen {
		content = content[:docIDPrefixLen]
	}
	sum := sha256.Sum256([]byte(title + ":" + content))
	return hex.EncodeToString(sum[:])[:12]
}

// ChunkID returns the deterministic identifier for the i-th chunk of a document.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}
