package embedding

import (
	"context"
	"math"
	"strings"
)

// MockModelID is the model identifier recorded for mock embeddings.
const MockModelID = "mock-hash-v1"

// MockEmbedder is a deterministic embedder for tests and offline development.
// Each word and word stem contributes hash-derived components, so texts
// sharing vocabulary get higher cosine similarity than unrelated texts, and
// the same text always gets the same unit vector.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit embedding derived from word hashes.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range tokenize(text) {
		e.addComponents(emb, word)
		// A short stem lets inflected forms ("vitamin"/"vitamins") overlap.
		if len(word) > 4 {
			e.addComponents(emb, word[:4])
		}
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	} else {
		// Empty text still gets a valid unit vector.
		emb[0] = 1
	}
	return emb, nil
}

func (e *MockEmbedder) addComponents(emb []float32, token string) {
	h := hashString(token)
	for i := 0; i < 3; i++ {
		emb[(h+i*131)%e.dimensions] += 1
	}
}

// EmbedBatch calls Embed for each text, preserving order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// ModelID returns the mock model identifier.
func (e *MockEmbedder) ModelID() string {
	return MockModelID
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

func tokenize(text string) []string {
	var tokens []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
		})
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
