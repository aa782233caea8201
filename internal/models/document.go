// Package models defines core data structures for documents, queries, and answers.
package models

import "time"

// Document represents a source medical document with metadata.
// Documents are immutable once ingested; only their chunks are retrieved.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Title     string                 `json:"title" db:"title"`
	Source    string                 `json:"source" db:"source"`
	Content   string                 `json:"content" db:"content"`
	Year      string                 `json:"year,omitempty" db:"year"`
	URL       string                 `json:"url,omitempty" db:"url"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// DocumentChunk is a contiguous piece of a document's content, the unit of retrieval.
// Chunk IDs are deterministic (see docid.ChunkID) so re-ingesting the same corpus
// with the same parameters produces an identical index.
type DocumentChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	Embedding  []float32 `json:"-" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the input for ingesting a single document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Title    string                 `json:"title"`
	Source   string                 `json:"source,omitempty"`
	Content  string                 `json:"content"`
	Year     string                 `json:"year,omitempty"`
	URL      string                 `json:"url,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
