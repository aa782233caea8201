package models

// Source is a citation entry in a query response.
type Source struct {
	DocID          string  `json:"doc_id"`
	Title          string  `json:"title"`
	Year           string  `json:"year,omitempty"`
	URL            string  `json:"url,omitempty"`
	Excerpt        string  `json:"excerpt"`
	RelevanceScore float64 `json:"relevance_score"`
}

// QueryResponse is the answer returned for one question.
type QueryResponse struct {
	QueryID          string    `json:"query_id"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	Sources          []*Source `json:"sources"`
	Confidence       float64   `json:"confidence"`
	RetrievalTimeMs  int64     `json:"retrieval_time_ms"`
	GenerationTimeMs int64     `json:"generation_time_ms"`
	TotalTimeMs      int64     `json:"total_time_ms"`
	// Warning carries the standing medical disclaimer, or a degraded-response
	// note when generation failed but retrieval succeeded.
	Warning string `json:"warning,omitempty"`
}

// EvaluationRequest asks for quality metrics over a set of questions.
// ReferenceAnswers is optional; when present it must align by index with
// Questions and enables the context_recall metric.
type EvaluationRequest struct {
	Questions        []string `json:"questions"`
	ReferenceAnswers []string `json:"reference_answers,omitempty"`
}

// MetricScores holds the judged quality metrics for one answer or an aggregate.
// Nil pointers mean the metric was not computed (judge unavailable or, for
// ContextRecall, no reference answer) — explicitly absent, never defaulted to 0.
type MetricScores struct {
	Faithfulness     *float64 `json:"faithfulness"`
	ContextPrecision *float64 `json:"context_precision"`
	AnswerRelevance  *float64 `json:"answer_relevance"`
	ContextRecall    *float64 `json:"context_recall,omitempty"`
	// Overall is the equal-weight mean of the metrics present; nil when none are.
	Overall *float64 `json:"overall"`
}

// EvaluationItem is the per-question detail in an evaluation report.
type EvaluationItem struct {
	Question         string       `json:"question"`
	Answer           string       `json:"answer,omitempty"`
	Confidence       float64      `json:"confidence"`
	NumSources       int          `json:"num_sources"`
	RetrievalTimeMs  int64        `json:"retrieval_time_ms"`
	GenerationTimeMs int64        `json:"generation_time_ms"`
	Scores           MetricScores `json:"scores"`
	Error            string       `json:"error,omitempty"`
}

// EvaluationReport aggregates per-question metrics over an evaluation run.
type EvaluationReport struct {
	Aggregate MetricScores      `json:"aggregate"`
	Items     []*EvaluationItem `json:"items"`
}
