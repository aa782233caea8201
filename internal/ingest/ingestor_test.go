package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/config"
	"github.com/medintel/medrag/internal/embedding"
	"github.com/medintel/medrag/internal/extract"
	"github.com/medintel/medrag/internal/retrieval"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
)

func newTestIngestor(t *testing.T) (*Ingestor, storage.Storage, vector.Index, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "medrag.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "index.bin")
	cfg.Ingestion.ChunkSize = 50
	cfg.Ingestion.ChunkOverlap = 10

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := embedding.NewMockEmbedder(64)
	idx, err := vector.NewMemoryIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	ing := NewIngestor(store, embedder, idx, extract.NewExtractor(), cfg, zap.NewNop())
	return ing, store, idx, cfg
}

func TestRebuild_TextFiles(t *testing.T) {
	ing, store, idx, _ := newTestIngestor(t)
	corpus := t.TempDir()
	text := "Vitamin D deficiency can cause fatigue and bone pain. Adults need sufficient sun exposure."
	if err := os.WriteFile(filepath.Join(corpus, "vitd.txt"), []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := ing.Rebuild(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 1 {
		t.Errorf("expected 1 document, got %d", stats.Documents)
	}
	if stats.Chunks < 2 {
		t.Errorf("expected multiple chunks for %d chars, got %d", len(text), stats.Chunks)
	}
	if idx.Size() != stats.Chunks {
		t.Errorf("index size %d != chunk count %d", idx.Size(), stats.Chunks)
	}

	nd, _ := store.CountDocuments(context.Background())
	nc, _ := store.CountChunks(context.Background())
	if nd != 1 || int(nc) != stats.Chunks {
		t.Errorf("storage has %d docs %d chunks, want 1/%d", nd, nc, stats.Chunks)
	}
}

func TestRebuild_CorpusJSON(t *testing.T) {
	ing, _, _, _ := newTestIngestor(t)
	corpus := t.TempDir()
	doc := `[
		{"title": "Vitamin D Deficiency", "content": "Vitamin D deficiency can cause fatigue.", "source": "NIH", "year": "2023"},
		{"title": "Type 2 Diabetes", "content": "Type 2 diabetes symptoms include increased thirst.", "source": "CDC"}
	]`
	if err := os.WriteFile(filepath.Join(corpus, "corpus.json"), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := ing.Rebuild(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 2 {
		t.Errorf("expected 2 documents, got %d", stats.Documents)
	}
	if stats.Skipped != 0 {
		t.Errorf("expected no skips, got %d", stats.Skipped)
	}
}

func TestRebuild_SkipsBadDocuments(t *testing.T) {
	ing, _, _, _ := newTestIngestor(t)
	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "good.txt"), []byte("Aspirin reduces fever."), 0644); err != nil {
		t.Fatal(err)
	}
	// Malformed PDF: extraction fails, the run continues.
	if err := os.WriteFile(filepath.Join(corpus, "bad.pdf"), []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	// Whitespace-only document has nothing to chunk.
	if err := os.WriteFile(filepath.Join(corpus, "empty.txt"), []byte("   \n"), 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := ing.Rebuild(context.Background(), corpus)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 1 {
		t.Errorf("expected 1 good document, got %d", stats.Documents)
	}
	if stats.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", stats.Skipped)
	}
}

func TestRebuild_WritesManifest(t *testing.T) {
	ing, _, _, cfg := newTestIngestor(t)
	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "a.txt"), []byte("Ibuprofen is an NSAID."), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.Rebuild(context.Background(), corpus); err != nil {
		t.Fatal(err)
	}

	m, err := vector.LoadManifest(cfg.Storage.VectorIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	if m.EmbeddingModel != embedding.MockModelID {
		t.Errorf("manifest model %q, want %q", m.EmbeddingModel, embedding.MockModelID)
	}
	if m.ChunkSize != cfg.Ingestion.ChunkSize || m.ChunkOverlap != cfg.Ingestion.ChunkOverlap {
		t.Errorf("manifest chunk params %d/%d", m.ChunkSize, m.ChunkOverlap)
	}
	if m.ChunkCount == 0 {
		t.Error("manifest chunk count should be positive")
	}
}

func TestRebuild_ClearsPreviousCorpus(t *testing.T) {
	ing, store, _, _ := newTestIngestor(t)
	first := t.TempDir()
	if err := os.WriteFile(filepath.Join(first, "a.txt"), []byte("Old corpus content."), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.Rebuild(context.Background(), first); err != nil {
		t.Fatal(err)
	}

	second := t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "b.txt"), []byte("New corpus content."), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.Rebuild(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	docs, err := store.ListDocuments(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Title != "b.txt" {
		t.Errorf("expected only the new corpus, got %+v", docs)
	}
}

// embedderWithHook runs a callback before every batch embed, so tests can
// observe the serving side while a rebuild is in flight.
type embedderWithHook struct {
	embedding.Embedder
	onBatch func()
}

func (e *embedderWithHook) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.onBatch != nil {
		e.onBatch()
	}
	return e.Embedder.EmbedBatch(ctx, texts)
}

func TestRebuild_OldCorpusServesDuringRebuild(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "medrag.db")
	cfg.Storage.VectorIndexPath = filepath.Join(dir, "index.bin")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	hooked := &embedderWithHook{Embedder: embedding.NewMockEmbedder(64)}
	idx, err := vector.NewMemoryIndex(64)
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()
	ing := NewIngestor(store, hooked, idx, extract.NewExtractor(), cfg, logger)
	r := retrieval.NewRetriever(store, hooked, idx, cfg.Storage.VectorIndexPath, logger)
	ctx := context.Background()

	corpus := t.TempDir()
	if err := os.WriteFile(filepath.Join(corpus, "vitd.txt"),
		[]byte("Vitamin D deficiency causes fatigue and bone pain."), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ing.Rebuild(ctx, corpus); err != nil {
		t.Fatal(err)
	}

	question := "What causes fatigue related to vitamins?"
	before, err := r.Retrieve(ctx, question, 3, cfg.Retrieval.SimilarityFloor)
	if err != nil {
		t.Fatal(err)
	}
	if before.Empty() {
		t.Fatal("corpus should answer the question before the rebuild")
	}

	// Queries landing while the second rebuild is re-embedding must still
	// hit the old corpus, not an emptied one.
	var midResultEmpty bool
	var midErr error
	hooked.onBatch = func() {
		result, err := r.Retrieve(ctx, question, 3, cfg.Retrieval.SimilarityFloor)
		midErr = err
		midResultEmpty = result.Empty()
	}
	if _, err := ing.Rebuild(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	if midErr != nil {
		t.Fatalf("mid-rebuild retrieval failed: %v", midErr)
	}
	if midResultEmpty {
		t.Error("mid-rebuild retrieval lost the old corpus")
	}

	after, err := r.Retrieve(ctx, question, 3, cfg.Retrieval.SimilarityFloor)
	if err != nil {
		t.Fatal(err)
	}
	if after.Empty() {
		t.Error("corpus should still answer after the rebuild")
	}
}

func TestRebuild_EmptyCorpus(t *testing.T) {
	ing, _, idx, _ := newTestIngestor(t)
	stats, err := ing.Rebuild(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 0 || stats.Chunks != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
	if idx.Size() != 0 {
		t.Errorf("expected empty index, got %d", idx.Size())
	}
}
