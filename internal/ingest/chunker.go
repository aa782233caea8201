// Package ingest provides corpus loading, chunking, and index building.
package ingest

import (
	"strings"

	"github.com/medintel/medrag/internal/docid"
	"github.com/medintel/medrag/internal/models"
)

// Chunker splits text into overlapping character windows. Windows are
// measured in runes so multibyte text never splits mid-character.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into DocumentChunks with overlapping windows. Chunk IDs
// are deterministic: the same docID and text always produce the same chunks.
// Text at or under the chunk size yields a single chunk. Mid-document windows
// are always kept, even when whitespace-only, so the concatenated non-overlap
// regions reconstruct the document exactly; only the trailing whitespace-only
// remainder is dropped.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	chunks := make([]*models.DocumentChunk, 0, (len(runes)/step)+1)
	for i := 0; i < len(runes); i += step {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunkIndex := len(chunks)
		chunks = append(chunks, &models.DocumentChunk{
			ID:         docid.ChunkID(docID, chunkIndex),
			DocumentID: docID,
			Content:    string(runes[i:end]),
			ChunkIndex: chunkIndex,
		})
		if end >= len(runes) {
			break
		}
	}
	for len(chunks) > 0 && strings.TrimSpace(chunks[len(chunks)-1].Content) == "" {
		chunks = chunks[:len(chunks)-1]
	}
	return chunks
}
