package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// DefaultBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
const DefaultBatchSize = 500

// OpenAIEmbedder embeds text via the OpenAI embeddings API. Batches are
// retried with exponential backoff on rate-limit and 5xx responses; other
// failures are permanent and surfaced immediately.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	batchSize  int
	cache      *Cache
}

// NewOpenAIEmbedder creates a hosted embedder for the given model. The
// client must already be configured (API key from the environment).
func NewOpenAIEmbedder(client *openai.Client, model string, dimensions, batchSize, cacheSize int) *OpenAIEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
		cache:      NewCache(cacheSize),
	}
}

// Embed returns the embedding for a single text, using the cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	embs, err := e.embedBatchWithRetry(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, embs[0])
	return embs[0], nil
}

// EmbedBatch embeds texts in configured batch sizes, preserving input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		embs, err := e.embedBatchWithRetry(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, embs...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: e.model,
		})
		if err != nil {
			if isRetryable(err) {
				return &TransientError{Err: err}
			}
			return backoff.Permanent(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Data), len(texts)))
		}
		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			if len(data.Embedding) != e.dimensions {
				return backoff.Permanent(fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(data.Embedding), e.dimensions))
			}
			embeddings[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// ModelID returns the configured embedding model identifier.
func (e *OpenAIEmbedder) ModelID() string {
	return e.model
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// isRetryable reports whether the upstream error is a rate limit or server error.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	// Network-level failures have no status code; treat as transient.
	return true
}

func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
