package models

import "fmt"

// QueryRequest represents an incoming question with retrieval parameters.
// Zero-valued tunables fall back to configured defaults in Validate.
type QueryRequest struct {
	Question        string  `json:"question"`
	TopK            int     `json:"top_k,omitempty"`
	SimilarityFloor float64 `json:"similarity_floor,omitempty"`
}

// Validate checks the request and applies the given defaults for unset fields.
// Returns an error if the question is empty.
func (q *QueryRequest) Validate(defaultTopK int, defaultFloor float64) error {
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > 20 {
		q.TopK = 20
	}
	if q.SimilarityFloor <= 0 {
		q.SimilarityFloor = defaultFloor
	}
	return nil
}

// RetrievedChunk pairs a chunk with its similarity score for one query.
type RetrievedChunk struct {
	Chunk      *DocumentChunk `json:"chunk"`
	Document   *Document      `json:"-"`
	Similarity float64        `json:"similarity"`
}

// RetrievalResult is the ranked outcome of a single retrieval, ordered by
// descending similarity. Ephemeral; never persisted.
type RetrievalResult struct {
	Chunks []*RetrievedChunk `json:"chunks"`
}

// Empty reports whether no chunk survived the similarity floor.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}

// TopScore returns the highest similarity, or 0 when empty.
func (r *RetrievalResult) TopScore() float64 {
	if r.Empty() {
		return 0
	}
	return r.Chunks[0].Similarity
}
