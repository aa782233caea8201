package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/pkg/utils"
)

// judgeInstruction asks the model to grade on the standard retrieval-QA
// axes. The JSON response format keeps parsing deterministic.
const judgeInstruction = `You are a strict evaluator of retrieval-grounded medical answers.
Given a question, an answer, the retrieved contexts the answer was based on,
and optionally a reference answer, score each metric from 0.0 to 1.0:

- faithfulness: every claim in the answer is supported by the contexts
- answer_relevance: the answer addresses the question directly and completely
- context_precision: the contexts are relevant to the question
- context_recall: the contexts cover the facts in the reference answer
  (omit this field when no reference answer is given)

Respond with JSON only:
{"faithfulness": 0.0, "answer_relevance": 0.0, "context_precision": 0.0, "context_recall": 0.0}`

// OpenAIJudge scores samples via the OpenAI chat completions API with a JSON
// response format.
type OpenAIJudge struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIJudge creates a judge using the given model.
func NewOpenAIJudge(client *openai.Client, model string, timeout time.Duration) *OpenAIJudge {
	return &OpenAIJudge{client: client, model: model, timeout: timeout}
}

// Score grades one sample. Any upstream or parse failure is returned as an
// error; the evaluator reports such samples with absent metrics rather than
// inventing zeros.
func (j *OpenAIJudge) Score(ctx context.Context, sample *Sample) (*models.MetricScores, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(judgeInstruction),
			openai.UserMessage(formatSample(sample)),
		},
		Model: j.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("judge completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("judge returned no choices")
	}

	var graded struct {
		Faithfulness     *float64 `json:"faithfulness"`
		AnswerRelevance  *float64 `json:"answer_relevance"`
		ContextPrecision *float64 `json:"context_precision"`
		ContextRecall    *float64 `json:"context_recall"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &graded); err != nil {
		return nil, fmt.Errorf("parse judge response: %w", err)
	}

	scores := &models.MetricScores{
		Faithfulness:     clampMetric(graded.Faithfulness),
		AnswerRelevance:  clampMetric(graded.AnswerRelevance),
		ContextPrecision: clampMetric(graded.ContextPrecision),
	}
	if sample.Reference != "" {
		scores.ContextRecall = clampMetric(graded.ContextRecall)
	}
	FillOverall(scores)
	return scores, nil
}

func clampMetric(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := utils.Clamp01(*v)
	return &c
}

func formatSample(sample *Sample) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(sample.Question)
	b.WriteString("\n\nAnswer: ")
	b.WriteString(sample.Answer)
	b.WriteString("\n\nContexts:\n")
	for i, c := range sample.Contexts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c)
	}
	if sample.Reference != "" {
		b.WriteString("\nReference answer: ")
		b.WriteString(sample.Reference)
	}
	return b.String()
}
