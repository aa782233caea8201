package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/config"
	"github.com/medintel/medrag/internal/docid"
	"github.com/medintel/medrag/internal/embedding"
	"github.com/medintel/medrag/internal/extract"
	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
)

// Ingestor builds the corpus: it extracts documents, chunks them, embeds the
// chunks, and persists everything to storage and the vector index.
//
// Ingestion is always a full rebuild, and the old corpus serves queries for
// its whole duration. Documents and chunks go into a storage staging area and
// the new vectors into an index built aside; only after every document has
// been processed are both swapped in. A crash mid-ingest leaves the old
// corpus intact and serving.
type Ingestor struct {
	storage   storage.Storage
	embedder  embedding.Embedder
	index     vector.Index
	chunker   *Chunker
	extractor *extract.Extractor
	cfg       *config.Config
	logger    *zap.Logger
}

// Stats summarizes an ingestion run.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Skipped   int `json:"skipped"`
}

// NewIngestor creates an ingestor with the given dependencies. The index is
// the live serving index; Rebuild swaps its contents after a successful run.
func NewIngestor(
	store storage.Storage,
	embedder embedding.Embedder,
	index vector.Index,
	extractor *extract.Extractor,
	cfg *config.Config,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		storage:   store,
		embedder:  embedder,
		index:     index,
		chunker:   NewChunker(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap),
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Rebuild re-ingests the corpus from the given paths (files or directories).
// The old corpus keeps serving until the very end: documents are written to a
// storage staging area and vectors to a fresh index; once everything is
// processed the index is persisted atomically, the staged corpus committed,
// and the live index reloaded. A document that fails to extract or embed is
// skipped with a warning and counted in Stats.Skipped; the run fails only
// when nothing can be ingested at all or the swap fails.
func (ing *Ingestor) Rebuild(ctx context.Context, paths ...string) (*Stats, error) {
	start := time.Now()
	staging, err := ing.storage.StartStaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("start staging: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = staging.Discard()
		}
	}()

	fresh, err := ing.newIndex()
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	stats := &Stats{}
	for _, p := range paths {
		if err := ing.ingestPath(ctx, staging, fresh, p, stats); err != nil {
			return nil, err
		}
	}

	indexPath := ing.cfg.Storage.VectorIndexPath
	if err := fresh.Save(indexPath); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	manifest := &vector.Manifest{
		EmbeddingModel: ing.embedder.ModelID(),
		Dimensions:     ing.embedder.Dimensions(),
		ChunkSize:      ing.cfg.Ingestion.ChunkSize,
		ChunkOverlap:   ing.cfg.Ingestion.ChunkOverlap,
		ChunkCount:     fresh.Size(),
		BuiltAt:        time.Now().UTC(),
	}
	if err := vector.SaveManifest(indexPath, manifest); err != nil {
		return nil, fmt.Errorf("persist manifest: %w", err)
	}
	if err := staging.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit staged corpus: %w", err)
	}
	committed = true
	if err := ing.index.Load(indexPath); err != nil {
		return nil, fmt.Errorf("load rebuilt index: %w", err)
	}

	ing.logger.Info("corpus rebuilt",
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}

// newIndex creates the rebuild-side index per the configured backend, falling
// back to the memory index when the configured one is unavailable.
func (ing *Ingestor) newIndex() (vector.Index, error) {
	fresh, err := vector.NewIndex(ing.cfg.Vector.IndexType, ing.embedder.Dimensions())
	if err != nil && ing.cfg.Vector.IndexType != string(vector.IndexTypeMemory) && ing.cfg.Vector.IndexType != "" {
		ing.logger.Warn("configured vector index unavailable, building memory index",
			zap.String("requested_type", ing.cfg.Vector.IndexType), zap.Error(err))
		return vector.NewMemoryIndex(ing.embedder.Dimensions())
	}
	return fresh, err
}

// ingestPath ingests a file or walks a directory, filtering by configured extensions.
func (ing *Ingestor) ingestPath(ctx context.Context, dest storage.Staging, target vector.Index, path string, stats *Stats) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", absPath, err)
	}
	if !info.IsDir() {
		ing.ingestFile(ctx, dest, target, absPath, stats)
		return nil
	}
	return filepath.WalkDir(absPath, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !extensionAllowed(filepath.Ext(p), ing.cfg.Ingestion.Extensions) {
			return nil
		}
		finfo, statErr := os.Stat(p)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		ing.ingestFile(ctx, dest, target, p, stats)
		return nil
	})
}

// ingestFile ingests one file, logging and counting failures rather than
// aborting the run. JSON files are treated as corpus files holding one or
// more documents with metadata; everything else is extracted as a single
// document titled by its filename.
func (ing *Ingestor) ingestFile(ctx context.Context, dest storage.Staging, target vector.Index, path string, stats *Stats) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		ing.ingestCorpusFile(ctx, dest, target, path, stats)
		return
	}
	text, err := ing.extractor.Extract(path)
	if err != nil {
		ing.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
		stats.Skipped++
		return
	}
	input := &models.DocumentInput{
		Title:   filepath.Base(path),
		Source:  path,
		Content: text,
	}
	n, err := ing.ingestDocument(ctx, dest, target, input)
	if err != nil {
		ing.logger.Warn("skipping document", zap.String("path", path), zap.Error(err))
		stats.Skipped++
		return
	}
	stats.Documents++
	stats.Chunks += n
}

// ingestCorpusFile parses a JSON corpus file: either an array of documents or
// an object with a "documents" array.
func (ing *Ingestor) ingestCorpusFile(ctx context.Context, dest storage.Staging, target vector.Index, path string, stats *Stats) {
	data, err := os.ReadFile(path)
	if err != nil {
		ing.logger.Warn("skipping unreadable corpus file", zap.String("path", path), zap.Error(err))
		stats.Skipped++
		return
	}
	inputs, err := parseCorpus(data)
	if err != nil {
		ing.logger.Warn("skipping malformed corpus file", zap.String("path", path), zap.Error(err))
		stats.Skipped++
		return
	}
	for i, input := range inputs {
		if input.Source == "" {
			input.Source = path
		}
		n, err := ing.ingestDocument(ctx, dest, target, input)
		if err != nil {
			ing.logger.Warn("skipping corpus document",
				zap.String("path", path), zap.Int("entry", i), zap.Error(err))
			stats.Skipped++
			continue
		}
		stats.Documents++
		stats.Chunks += n
	}
}

func parseCorpus(data []byte) ([]*models.DocumentInput, error) {
	var list []*models.DocumentInput
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapper struct {
		Documents []*models.DocumentInput `json:"documents"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return wrapper.Documents, nil
}

// ingestDocument stages one document, chunks and embeds it, and adds the
// chunk vectors to target. Returns the number of chunks created.
func (ing *Ingestor) ingestDocument(ctx context.Context, dest storage.Staging, target vector.Index, input *models.DocumentInput) (int, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return 0, fmt.Errorf("document %q has no content", input.Title)
	}
	id := input.ID
	if id == "" {
		id = docid.DocID(input.Title, content)
	}
	doc := &models.Document{
		ID:       id,
		Title:    input.Title,
		Source:   input.Source,
		Content:  content,
		Year:     input.Year,
		URL:      input.URL,
		Metadata: input.Metadata,
	}
	if err := dest.CreateDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("stage document: %w", err)
	}

	chunks := ing.chunker.Chunk(doc.ID, doc.Content)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q produced no chunks", input.Title)
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	embeddings, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	if err := dest.BatchCreateChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("stage chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := target.Add(ctx, ids, embeddings); err != nil {
		return 0, fmt.Errorf("index vectors: %w", err)
	}
	return len(chunks), nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
