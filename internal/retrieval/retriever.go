// Package retrieval finds the corpus chunks most similar to a question.
package retrieval

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/embedding"
	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
)

// Retriever embeds a question and searches the vector index, filtering hits
// below the similarity floor and hydrating survivors from storage.
type Retriever struct {
	storage   storage.Storage
	embedder  embedding.Embedder
	index     vector.Index
	indexPath string
	logger    *zap.Logger
}

// NewRetriever creates a retriever over the given index and storage.
// indexPath points at the persisted index artifact; its manifest is checked
// on every retrieval so a rebuild under a different embedding model is
// caught immediately.
func NewRetriever(
	store storage.Storage,
	embedder embedding.Embedder,
	index vector.Index,
	indexPath string,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		storage:   store,
		embedder:  embedder,
		index:     index,
		indexPath: indexPath,
		logger:    logger,
	}
}

// Retrieve returns up to topK chunks with similarity at or above floor,
// ordered by descending similarity. An empty result is a valid outcome, not
// an error. Returns vector.ErrModelMismatch (wrapped) when the index was
// built with a different embedding model than the one configured.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int, floor float64) (*models.RetrievalResult, error) {
	if err := r.checkManifest(); err != nil {
		return nil, err
	}

	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := r.index.Search(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	result := &models.RetrievalResult{}
	for _, hit := range hits {
		if hit.Score < floor {
			continue
		}
		chunk, err := r.storage.GetChunk(ctx, hit.ID)
		if err != nil {
			// Index and storage are rebuilt together; a miss here means a
			// partial manual edit of the data directory.
			r.logger.Warn("indexed chunk missing from storage",
				zap.String("chunk_id", hit.ID), zap.Error(err))
			continue
		}
		doc, err := r.storage.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			r.logger.Warn("chunk references missing document",
				zap.String("chunk_id", hit.ID), zap.String("document_id", chunk.DocumentID), zap.Error(err))
			continue
		}
		result.Chunks = append(result.Chunks, &models.RetrievedChunk{
			Chunk:      chunk,
			Document:   doc,
			Similarity: hit.Score,
		})
	}

	r.logger.Debug("retrieval complete",
		zap.Int("candidates", len(hits)),
		zap.Int("retained", len(result.Chunks)),
		zap.Float64("floor", floor),
	)
	return result, nil
}

// checkManifest verifies the persisted index was built with the configured
// embedding model. A missing manifest (no ingest has run yet) is not an
// error; the in-memory index is empty and retrieval returns no chunks.
func (r *Retriever) checkManifest() error {
	if _, err := os.Stat(vector.ManifestPath(r.indexPath)); os.IsNotExist(err) {
		return nil
	}
	m, err := vector.LoadManifest(r.indexPath)
	if err != nil {
		return fmt.Errorf("load index manifest: %w", err)
	}
	return m.CheckModel(r.embedder.ModelID())
}
