package evaluate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/pipeline"
)

// Evaluator runs questions through the query pipeline and has a judge grade
// each answer. Judge failures degrade to absent metrics for the affected
// question; the evaluation itself still completes.
type Evaluator struct {
	pipeline *pipeline.Pipeline
	judge    Judge
	logger   *zap.Logger
}

// NewEvaluator creates an evaluator over the given pipeline and judge.
func NewEvaluator(p *pipeline.Pipeline, judge Judge, logger *zap.Logger) *Evaluator {
	return &Evaluator{pipeline: p, judge: judge, logger: logger}
}

// Run evaluates every question in req. Reference answers, when given, must
// align with questions by index. Questions whose pipeline run fails are
// reported with the error and absent metrics rather than aborting the batch.
func (e *Evaluator) Run(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationReport, error) {
	if len(req.Questions) == 0 {
		return nil, fmt.Errorf("no questions to evaluate")
	}
	if len(req.ReferenceAnswers) > 0 && len(req.ReferenceAnswers) != len(req.Questions) {
		return nil, fmt.Errorf("reference answers (%d) do not align with questions (%d)",
			len(req.ReferenceAnswers), len(req.Questions))
	}

	report := &models.EvaluationReport{}
	for i, question := range req.Questions {
		item := e.evaluateOne(ctx, question, referenceAt(req.ReferenceAnswers, i))
		report.Items = append(report.Items, item)
	}
	report.Aggregate = aggregate(report.Items)
	return report, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, question, reference string) *models.EvaluationItem {
	item := &models.EvaluationItem{Question: question}

	resp, included, err := e.pipeline.QueryDetailed(ctx, &models.QueryRequest{Question: question})
	if err != nil {
		e.logger.Warn("evaluation query failed", zap.String("question", question), zap.Error(err))
		item.Error = err.Error()
		return item
	}
	item.Answer = resp.Answer
	item.Confidence = resp.Confidence
	item.NumSources = len(resp.Sources)
	item.RetrievalTimeMs = resp.RetrievalTimeMs
	item.GenerationTimeMs = resp.GenerationTimeMs

	contexts := make([]string, len(included))
	for i, rc := range included {
		contexts[i] = rc.Chunk.Content
	}

	scores, err := e.judge.Score(ctx, &Sample{
		Question:  question,
		Answer:    resp.Answer,
		Contexts:  contexts,
		Reference: reference,
	})
	if err != nil {
		// Metrics stay nil: absent, never zero.
		e.logger.Warn("judge unavailable for question", zap.String("question", question), zap.Error(err))
		item.Error = fmt.Sprintf("judge unavailable: %v", err)
		return item
	}
	item.Scores = *scores
	return item
}

// aggregate means each metric over the items where it was computed.
func aggregate(items []*models.EvaluationItem) models.MetricScores {
	var agg models.MetricScores
	agg.Faithfulness = meanOf(items, func(s *models.MetricScores) *float64 { return s.Faithfulness })
	agg.ContextPrecision = meanOf(items, func(s *models.MetricScores) *float64 { return s.ContextPrecision })
	agg.AnswerRelevance = meanOf(items, func(s *models.MetricScores) *float64 { return s.AnswerRelevance })
	agg.ContextRecall = meanOf(items, func(s *models.MetricScores) *float64 { return s.ContextRecall })
	FillOverall(&agg)
	return agg
}

func meanOf(items []*models.EvaluationItem, pick func(*models.MetricScores) *float64) *float64 {
	var sum float64
	var n int
	for _, it := range items {
		if v := pick(&it.Scores); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

func referenceAt(refs []string, i int) string {
	if i < len(refs) {
		return refs[i]
	}
	return ""
}
