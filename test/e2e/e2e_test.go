package e2e

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/config"
	"github.com/medintel/medrag/internal/embedding"
	"github.com/medintel/medrag/internal/extract"
	"github.com/medintel/medrag/internal/ingest"
	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/pipeline"
	"github.com/medintel/medrag/internal/prompt"
	"github.com/medintel/medrag/internal/retrieval"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
)

const e2eDimensions = 64

// echoGenerator cites every context block it receives, so citation grounding
// can be checked against what the assembler actually included.
type echoGenerator struct {
	calls int
	user  string
}

func (g *echoGenerator) Generate(_ context.Context, _, user string) (string, error) {
	g.calls++
	g.user = user
	n := strings.Count(user, "[DOC_")
	var b strings.Builder
	b.WriteString("Based on the provided documents:")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, " claim %d [DOC_%d].", i, i)
	}
	return b.String(), nil
}

type stack struct {
	cfg       *config.Config
	store     storage.Storage
	embedder  embedding.Embedder
	index     vector.Index
	ingestor  *ingest.Ingestor
	retriever *retrieval.Retriever
	generator *echoGenerator
	pipeline  *pipeline.Pipeline
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "medrag.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "index.bin")
	cfg.Embedding.Dimensions = e2eDimensions

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := embedding.NewMockEmbedder(e2eDimensions)
	index, err := vector.NewMemoryIndex(e2eDimensions)
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	gen := &echoGenerator{}
	retriever := retrieval.NewRetriever(store, embedder, index, cfg.Storage.VectorIndexPath, logger)
	return &stack{
		cfg:       cfg,
		store:     store,
		embedder:  embedder,
		index:     index,
		ingestor:  ingest.NewIngestor(store, embedder, index, extract.NewExtractor(), cfg, logger),
		retriever: retriever,
		generator: gen,
		pipeline:  pipeline.NewPipeline(retriever, gen, &cfg.Retrieval, logger),
	}
}

func writeCorpus(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestE2E_TwoDocumentScenario(t *testing.T) {
	s := newStack(t)
	corpus := writeCorpus(t, map[string]string{
		"vitamin_d.txt": "Vitamin D deficiency causes fatigue and bone pain.",
		"diabetes.txt":  "Diabetes symptoms include thirst and frequent urination.",
	})
	if _, err := s.ingestor.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	result, err := s.retriever.Retrieve(context.Background(),
		"What causes fatigue related to vitamins?", 1, s.cfg.Retrieval.SimilarityFloor)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(result.Chunks))
	}
	if got := result.Chunks[0].Document.Title; got != "vitamin_d.txt" {
		t.Errorf("retrieved wrong document: %s", got)
	}
	if result.Chunks[0].Similarity < s.cfg.Retrieval.SimilarityFloor {
		t.Errorf("similarity %f below floor", result.Chunks[0].Similarity)
	}
}

func TestE2E_AnsweredQueryEndToEnd(t *testing.T) {
	s := newStack(t)
	corpus := writeCorpus(t, map[string]string{
		"vitamin_d.txt": "Vitamin D deficiency causes fatigue and bone pain.",
		"diabetes.txt":  "Diabetes symptoms include thirst and frequent urination.",
	})
	if _, err := s.ingestor.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	resp, err := s.pipeline.Query(context.Background(), &models.QueryRequest{
		Question: "What causes fatigue related to vitamins?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer == prompt.RefusalAnswer {
		t.Fatal("expected an answer, got refusal")
	}
	if resp.Confidence <= 0 {
		t.Errorf("expected positive confidence, got %f", resp.Confidence)
	}
	if !strings.Contains(resp.Answer, "educational purposes") {
		t.Error("disclaimer missing from answer")
	}
	if len(resp.Sources) == 0 {
		t.Fatal("expected sources")
	}
	if resp.Sources[0].Title != "vitamin_d.txt" {
		t.Errorf("top source should be the vitamin document, got %s", resp.Sources[0].Title)
	}
}

func TestE2E_CitationGrounding(t *testing.T) {
	s := newStack(t)
	corpus := writeCorpus(t, map[string]string{
		"vitamin_d.txt":   "Vitamin D deficiency causes fatigue and bone pain.",
		"vitamin_b12.txt": "Vitamin B12 deficiency causes fatigue and anemia.",
	})
	if _, err := s.ingestor.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	resp, err := s.pipeline.Query(context.Background(), &models.QueryRequest{
		Question: "Which vitamin deficiencies cause fatigue?",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Every [DOC_i] in the answer must reference a block present in the
	// assembled context, which maps one-to-one onto the returned sources.
	markers := regexp.MustCompile(`\[DOC_(\d+)\]`).FindAllStringSubmatch(resp.Answer, -1)
	if len(markers) == 0 {
		t.Fatal("generated answer carries no citations")
	}
	for _, m := range markers {
		i, _ := strconv.Atoi(m[1])
		if i < 1 || i > len(resp.Sources) {
			t.Errorf("citation [DOC_%d] out of range: %d sources", i, len(resp.Sources))
		}
		if !strings.Contains(s.generator.user, fmt.Sprintf("[DOC_%d]", i)) {
			t.Errorf("citation [DOC_%d] not present in assembled context", i)
		}
	}
}

func TestE2E_RefusalPathNeverGenerates(t *testing.T) {
	s := newStack(t)
	corpus := writeCorpus(t, map[string]string{
		"diabetes.txt": "Diabetes symptoms include thirst and frequent urination.",
	})
	if _, err := s.ingestor.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	resp, err := s.pipeline.Query(context.Background(), &models.QueryRequest{
		Question: "quantum chromodynamics lattice gauge theory",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != prompt.RefusalAnswer {
		t.Errorf("expected fixed refusal text, got %q", resp.Answer)
	}
	if resp.Confidence != 0 {
		t.Errorf("refusal confidence must be exactly 0, got %f", resp.Confidence)
	}
	if s.generator.calls != 0 {
		t.Errorf("generator called %d times on refusal path", s.generator.calls)
	}
}

func TestE2E_EmptyCorpus(t *testing.T) {
	s := newStack(t)
	if _, err := s.ingestor.Rebuild(context.Background(), t.TempDir()); err != nil {
		t.Fatal(err)
	}

	resp, err := s.pipeline.Query(context.Background(), &models.QueryRequest{Question: "any question"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Answer != prompt.RefusalAnswer || resp.Confidence != 0 {
		t.Errorf("empty corpus must refuse with confidence 0: %+v", resp)
	}
}

func TestE2E_ThresholdMonotonicity(t *testing.T) {
	s := newStack(t)
	corpus := writeCorpus(t, map[string]string{
		"vitamin_d.txt":   "Vitamin D deficiency causes fatigue and bone pain.",
		"vitamin_b12.txt": "Vitamin B12 deficiency causes fatigue and anemia.",
		"diabetes.txt":    "Diabetes symptoms include thirst and frequent urination.",
	})
	if _, err := s.ingestor.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	question := "vitamin deficiency fatigue"
	prev := -1
	for _, floor := range []float64{0.05, 0.2, 0.4, 0.6, 0.8} {
		result, err := s.retriever.Retrieve(context.Background(), question, 10, floor)
		if err != nil {
			t.Fatal(err)
		}
		if prev >= 0 && len(result.Chunks) > prev {
			t.Errorf("raising floor to %f increased results: %d > %d", floor, len(result.Chunks), prev)
		}
		prev = len(result.Chunks)
	}
}

func TestE2E_IndexRoundTrip(t *testing.T) {
	s := newStack(t)
	corpus := writeCorpus(t, map[string]string{
		"vitamin_d.txt": "Vitamin D deficiency causes fatigue and bone pain. " +
			strings.Repeat("Vitamin D supports calcium absorption in the gut. ", 20),
		"diabetes.txt": "Diabetes symptoms include thirst and frequent urination.",
	})
	if _, err := s.ingestor.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Reload the persisted artifact into a fresh index; every chunk must be
	// its own nearest neighbor.
	reloaded, err := vector.NewMemoryIndex(e2eDimensions)
	if err != nil {
		t.Fatal(err)
	}
	if err := reloaded.Load(s.cfg.Storage.VectorIndexPath); err != nil {
		t.Fatal(err)
	}
	if reloaded.Size() != s.index.Size() {
		t.Fatalf("reloaded size %d != live size %d", reloaded.Size(), s.index.Size())
	}

	docs, err := s.store.ListDocuments(ctx, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	for _, doc := range docs {
		chunks, err := s.store.GetChunksByDocumentID(ctx, doc.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, ch := range chunks {
			vec, err := s.embedder.Embed(ctx, ch.Content)
			if err != nil {
				t.Fatal(err)
			}
			hits, err := reloaded.Search(ctx, vec, 1)
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != 1 || hits[0].ID != ch.ID {
				t.Errorf("chunk %s is not its own top-1 neighbor", ch.ID)
			}
		}
	}
}

func TestE2E_ChunkDeterminismAcrossRebuilds(t *testing.T) {
	s := newStack(t)
	long := strings.Repeat("Vitamin D deficiency causes fatigue and bone pain. ", 30)
	corpus := writeCorpus(t, map[string]string{"vitamin_d.txt": long})
	ctx := context.Background()

	if _, err := s.ingestor.Rebuild(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	first := dumpChunks(t, s.store)

	if _, err := s.ingestor.Rebuild(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	second := dumpChunks(t, s.store)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ between rebuilds: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between rebuilds", i)
		}
	}
}

// dumpChunks returns "id\x00content" for every chunk, in document order.
func dumpChunks(t *testing.T, store storage.Storage) []string {
	t.Helper()
	ctx := context.Background()
	docs, err := store.ListDocuments(ctx, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, doc := range docs {
		chunks, err := store.GetChunksByDocumentID(ctx, doc.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, ch := range chunks {
			out = append(out, ch.ID+"\x00"+ch.Content)
		}
	}
	return out
}
