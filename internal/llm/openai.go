package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
)

// OpenAIGenerator generates answers via the OpenAI chat completions API.
// A transient upstream failure is retried exactly once; permanent failures
// surface immediately.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewOpenAIGenerator creates a generator for the given model. The client
// must already be configured (API key from the environment).
func NewOpenAIGenerator(client *openai.Client, model string, temperature float64, maxTokens int, timeout time.Duration) *OpenAIGenerator {
	return &OpenAIGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

// Generate produces a completion for the system and user messages. Returns a
// GenerationError; callers inspect Transient to decide whether the answer
// can be degraded rather than failed.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	answer, err := g.complete(ctx, system, user)
	if err == nil {
		return answer, nil
	}
	if !IsTransient(err) {
		return "", err
	}
	// One retry for rate limits and server hiccups. Anything beyond that is
	// the caller's policy, not ours.
	return g.complete(ctx, system, user)
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, user string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               g.model,
		Temperature:         openai.Float(g.temperature),
		MaxCompletionTokens: openai.Int(int64(g.maxTokens)),
	})
	if err != nil {
		return "", &GenerationError{Err: err, Transient: isRetryable(err)}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Err: fmt.Errorf("empty completion response"), Transient: true}
	}
	return resp.Choices[0].Message.Content, nil
}

// isRetryable reports whether the upstream error is a rate limit, server
// error, or network-level failure.
func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Network-level failures have no status code; treat as transient.
	return true
}
