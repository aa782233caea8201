package vector

import "fmt"

// IndexType selects the vector index backend.
type IndexType string

const (
	// IndexTypeMemory uses in-memory brute-force search. Exact; adequate for
	// corpora up to a few hundred thousand chunks.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses FAISS IndexFlatIP for large corpora.
	// Requires the FAISS C library and building with -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// NewIndex creates a vector index of the given type ("memory" by default).
// FAISS requires building with -tags=faiss and an installed FAISS library;
// without it the faiss type returns an error callers may fall back from.
func NewIndex(indexType string, dimensions int) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, faiss)", indexType)
	}
}

// IsFAISSAvailable reports whether FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
