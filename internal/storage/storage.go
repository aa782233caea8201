// Package storage defines the persistence interface for documents and chunks.
package storage

import (
	"context"

	"github.com/medintel/medrag/internal/models"
)

// Storage defines document and chunk persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)

	// Batch operations
	BatchCreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error

	// StartStaging opens a staging area for a full corpus rebuild. Writes to
	// it are invisible to readers until Commit swaps them in.
	StartStaging(ctx context.Context) (Staging, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}

// Staging accepts the documents and chunks of a corpus rebuild while the old
// corpus keeps serving reads. Commit atomically replaces the live corpus with
// the staged one; Discard throws the staged data away. Exactly one of the two
// must be called.
type Staging interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	BatchCreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error
	Commit(ctx context.Context) error
	Discard() error
}
