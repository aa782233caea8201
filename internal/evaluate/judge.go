// Package evaluate scores answer quality with an LLM judge.
package evaluate

import (
	"context"

	"github.com/medintel/medrag/internal/models"
)

// Sample is one question/answer pair with the contexts the answer was
// grounded in. Reference is an optional ground-truth answer; it enables the
// context recall metric.
type Sample struct {
	Question  string
	Answer    string
	Contexts  []string
	Reference string
}

// Judge scores a sample on faithfulness, answer relevance, context
// precision, and (with a reference) context recall, each in [0,1].
type Judge interface {
	Score(ctx context.Context, sample *Sample) (*models.MetricScores, error)
}

// FillOverall sets Overall to the equal-weight mean of the metrics present.
// Absent metrics are excluded from the mean, not treated as zero; Overall
// stays nil when no metric was computed.
func FillOverall(s *models.MetricScores) {
	var sum float64
	var n int
	for _, m := range []*float64{s.Faithfulness, s.ContextPrecision, s.AnswerRelevance, s.ContextRecall} {
		if m != nil {
			sum += *m
			n++
		}
	}
	if n == 0 {
		s.Overall = nil
		return
	}
	mean := sum / float64(n)
	s.Overall = &mean
}
