// Package vector provides the vector index and similarity search.
package vector

import "context"

// Index defines vector storage and nearest-neighbor search over chunk embeddings.
//
// An index is built once per ingestion run and is read-only while serving;
// there is no removal or incremental update. Replacing an index is done by
// building a new one and atomically swapping the persisted artifact.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to k nearest neighbors by inner product over
	// normalized vectors (cosine similarity), descending. Ties are broken by
	// insertion order. An empty index returns an empty result, never an error.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Close() error
}

// Result is a single vector search hit; ID is the chunk ID.
type Result struct {
	ID    string
	Score float64 // cosine similarity over normalized vectors, clamped to [0,1]
}
