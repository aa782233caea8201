// Package embedding provides text embedding behind a capability interface,
// with hosted (OpenAI), local (ONNX), and deterministic mock backends.
package embedding

import "context"

// Embedder produces fixed-length vector embeddings for text. Implementations
// must return unit-normalized vectors and preserve input order in EmbedBatch.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// ModelID identifies the embedding model. It is recorded in the index
	// manifest at build time and checked at query time; vectors from
	// different models are not comparable.
	ModelID() string
	Dimensions() int
	Close() error
}
