// Package pipeline orchestrates the query flow from question to answer.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/config"
	"github.com/medintel/medrag/internal/llm"
	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/prompt"
	"github.com/medintel/medrag/internal/retrieval"
	"github.com/medintel/medrag/pkg/utils"
)

// excerptMaxLen caps the per-source excerpt in responses.
const excerptMaxLen = 200

// degradedWarning is set on responses whose generation permanently failed
// after successful retrieval; the sources are still returned.
const degradedWarning = "answer generation failed; sources are provided without a synthesized answer"

// Pipeline answers questions over the ingested corpus. The flow has exactly
// one branch: when retrieval yields nothing above the floor, or the
// retrieval-derived confidence is below the configured minimum, a fixed
// refusal is returned and the generator is never invoked.
type Pipeline struct {
	retriever *retrieval.Retriever
	assembler *prompt.Assembler
	generator llm.Generator
	cfg       *config.RetrievalConfig
	logger    *zap.Logger
}

// NewPipeline wires the query flow.
func NewPipeline(
	retriever *retrieval.Retriever,
	generator llm.Generator,
	cfg *config.RetrievalConfig,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		retriever: retriever,
		assembler: prompt.NewAssembler(cfg.MaxContextChars),
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Query answers one question. Returns an error only for invalid requests or
// infrastructure failures (index mismatch, storage trouble); an unanswerable
// question is a refusal response, not an error.
func (p *Pipeline) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	resp, _, err := p.QueryDetailed(ctx, req)
	return resp, err
}

// QueryDetailed is Query plus the chunks that entered the prompt, in [DOC_i]
// order. Evaluation judges answers against the full chunk texts rather than
// the truncated excerpts in the response.
func (p *Pipeline) QueryDetailed(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, []*models.RetrievedChunk, error) {
	start := time.Now()
	if err := req.Validate(p.cfg.TopK, p.cfg.SimilarityFloor); err != nil {
		return nil, nil, err
	}

	resp := &models.QueryResponse{
		QueryID:  uuid.New().String(),
		Question: req.Question,
	}

	retrievalStart := time.Now()
	result, err := p.retriever.Retrieve(ctx, req.Question, req.TopK, req.SimilarityFloor)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve: %w", err)
	}
	resp.RetrievalTimeMs = time.Since(retrievalStart).Milliseconds()

	confidence := Confidence(result)
	if result.Empty() || confidence < p.cfg.ConfidenceFloor {
		p.logger.Info("refusing query",
			zap.String("query_id", resp.QueryID),
			zap.Int("retained", len(result.Chunks)),
			zap.Float64("confidence", confidence),
		)
		resp.Answer = prompt.RefusalAnswer
		resp.Confidence = 0
		resp.TotalTimeMs = time.Since(start).Milliseconds()
		return resp, nil, nil
	}
	resp.Confidence = confidence

	assembled := p.assembler.Assemble(req.Question, result)
	resp.Sources = buildSources(assembled.Included)

	generationStart := time.Now()
	answer, err := p.generator.Generate(ctx, assembled.System, assembled.User)
	resp.GenerationTimeMs = time.Since(generationStart).Milliseconds()
	if err != nil {
		if llm.IsTransient(err) {
			return nil, nil, fmt.Errorf("generate: %w", err)
		}
		// Permanent generation failure: the retrieval work is still useful,
		// so return the sources without an answer.
		p.logger.Error("generation failed, returning degraded response",
			zap.String("query_id", resp.QueryID), zap.Error(err))
		resp.Answer = ""
		resp.Warning = degradedWarning
		resp.TotalTimeMs = time.Since(start).Milliseconds()
		return resp, assembled.Included, nil
	}

	if !prompt.HasCitations(answer) {
		// The system instruction demands citations; an uncited answer is
		// worth flagging even though it is still returned.
		p.logger.Warn("generated answer carries no citations",
			zap.String("query_id", resp.QueryID), zap.Int("sources", len(resp.Sources)))
	}
	resp.Answer = prompt.EnsureDisclaimer(answer)
	resp.TotalTimeMs = time.Since(start).Milliseconds()

	p.logger.Info("query answered",
		zap.String("query_id", resp.QueryID),
		zap.Int("sources", len(resp.Sources)),
		zap.Float64("confidence", resp.Confidence),
		zap.Int64("total_ms", resp.TotalTimeMs),
	)
	return resp, assembled.Included, nil
}

// buildSources converts the chunks that made it into the prompt into citation
// entries: Sources[i] corresponds to the [DOC_i+1] marker the generator saw.
// Excerpts are flattened to single-line text since PDF extraction leaves
// ragged newlines in chunk content.
func buildSources(included []*models.RetrievedChunk) []*models.Source {
	sources := make([]*models.Source, len(included))
	for i, rc := range included {
		sources[i] = &models.Source{
			DocID:          fmt.Sprintf("DOC_%d", i+1),
			Title:          rc.Document.Title,
			Year:           rc.Document.Year,
			URL:            rc.Document.URL,
			Excerpt:        utils.Truncate(utils.CollapseWhitespace(rc.Chunk.Content), excerptMaxLen),
			RelevanceScore: rc.Similarity,
		}
	}
	return sources
}
