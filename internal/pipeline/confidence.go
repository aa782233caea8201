package pipeline

import (
	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/pkg/utils"
)

// topWeight biases confidence toward the best hit; a single strong match is
// worth more than several mediocre ones.
const topWeight = 0.7

// Confidence scores how well retrieval supports answering, from the retained
// similarity scores: a weighted blend of the top score and the mean over all
// retained chunks, clamped to [0,1]. An empty result scores exactly 0.
func Confidence(result *models.RetrievalResult) float64 {
	if result.Empty() {
		return 0
	}
	var sum float64
	for _, c := range result.Chunks {
		sum += c.Similarity
	}
	mean := sum / float64(len(result.Chunks))
	return utils.Clamp01(topWeight*result.TopScore() + (1-topWeight)*mean)
}
