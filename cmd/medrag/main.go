// Package main is the MedRAG CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"go.uber.org/zap"

	"github.com/medintel/medrag/internal/config"
	"github.com/medintel/medrag/internal/embedding"
	"github.com/medintel/medrag/internal/evaluate"
	"github.com/medintel/medrag/internal/extract"
	"github.com/medintel/medrag/internal/ingest"
	"github.com/medintel/medrag/internal/llm"
	"github.com/medintel/medrag/internal/models"
	"github.com/medintel/medrag/internal/pipeline"
	"github.com/medintel/medrag/internal/retrieval"
	"github.com/medintel/medrag/internal/server"
	"github.com/medintel/medrag/internal/storage"
	"github.com/medintel/medrag/internal/vector"
	"github.com/medintel/medrag/internal/watcher"
	"github.com/medintel/medrag/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/medrag/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "pubmed":
		runPubMed()
	case "query":
		runQuery()
	case "evaluate":
		runEvaluate()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("medrag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		dirs := cfg.Watch.Directories
		watchSvc = watcher.NewWatcher(
			dirs,
			cfg.Ingestion.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func() {
				if _, err := components.Ingestor.Rebuild(context.Background(), dirs...); err != nil {
					logger.Warn("watch-triggered rebuild failed", zap.Error(err))
				}
			},
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Evaluator,
		components.Storage,
		components.VectorIndex,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = cfg.Watch.Directories
	}
	if len(paths) == 0 {
		fmt.Println("Usage: medrag ingest [flags] <file-or-directory>...")
		fmt.Println("(or configure watch.directories in config.yaml)")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	stats, err := components.Ingestor.Rebuild(context.Background(), paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d document(s), %d chunk(s); %d skipped\n",
		stats.Documents, stats.Chunks, stats.Skipped)
}

// runPubMed downloads abstracts from PubMed and writes them as a JSON corpus
// file, which the normal ingest path then picks up like any other .json
// document set.
func runPubMed() {
	fs := flag.NewFlagSet("pubmed", flag.ExitOnError)
	query := fs.String("query", "", "PubMed search term (required)")
	max := fs.Int("max", 20, "maximum number of articles to download")
	email := fs.String("email", "", "contact email sent to NCBI per its usage policy")
	out := fs.String("out", "pubmed_corpus.json", "output corpus file")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if strings.TrimSpace(*query) == "" {
		fmt.Println("Usage: medrag pubmed --query <term> [--max N] [--email addr] [--out file.json]")
		os.Exit(1)
	}

	logger, err := utils.NewLogger(*debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	client := ingest.NewPubMedClient(*email, logger)
	docs, err := client.Download(context.Background(), *query, *max)
	if err != nil {
		fmt.Fprintf(os.Stderr, "PubMed download failed: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Fprintf(os.Stderr, "No articles with abstracts found for %q\n", *query)
		os.Exit(1)
	}

	corpus := struct {
		Documents []*models.DocumentInput `json:"documents"`
	}{Documents: docs}
	data, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode corpus failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Write %s failed: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d article(s) to %s\n", len(docs), *out)
	fmt.Printf("Run `medrag ingest %s` (or drop it in a watched directory) to index it.\n", *out)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally without a server)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: medrag query [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: medrag query [flags] <question>")
		os.Exit(1)
	}
	req := &models.QueryRequest{Question: question, TopK: *topK}

	var resp *models.QueryResponse
	if *serverURL != "" {
		var err error
		resp, err = queryViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		resp, err = components.Pipeline.Query(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(resp.Answer)
		if resp.Warning != "" {
			fmt.Printf("\nwarning: %s\n", resp.Warning)
		}
		if len(resp.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range resp.Sources {
				fmt.Printf("  [%s] %s (score %.3f)\n", src.DocID, src.Title, src.RelevanceScore)
			}
		}
		fmt.Printf("\nconfidence: %.3f  (retrieval %dms, generation %dms, total %dms)\n",
			resp.Confidence, resp.RetrievalTimeMs, resp.GenerationTimeMs, resp.TotalTimeMs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func queryViaHTTP(serverURL string, req *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runEvaluate() {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = evaluate locally without a server)")
	file := fs.String("file", "", "JSON file with {\"questions\": [...], \"reference_answers\": [...]}")
	_ = fs.Parse(os.Args[2:])

	var req models.EvaluationRequest
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse %s: %v\n", *file, err)
			os.Exit(1)
		}
	} else {
		req.Questions = fs.Args()
	}
	if len(req.Questions) == 0 {
		fmt.Println("Usage: medrag evaluate [flags] <question>...")
		fmt.Println("       medrag evaluate --file questions.json")
		os.Exit(1)
	}

	var report *models.EvaluationReport
	if *serverURL != "" {
		var err error
		report, err = evaluateViaHTTP(*serverURL, &req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		report, err = components.Evaluator.Run(context.Background(), &req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Evaluation failed: %v\n", err)
			os.Exit(1)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func evaluateViaHTTP(serverURL string, req *models.EvaluationRequest) (*models.EvaluationReport, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 15 * time.Minute}
	resp, err := client.Post(serverURL+"/api/v1/evaluate", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var report models.EvaluationReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &report, nil
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Documents       int64                  `json:"documents"`
	Chunks          int64                  `json:"chunks"`
	VectorIndexSize int                    `json:"vector_index_size"`
	DiskUsageBytes  *int64                 `json:"disk_usage_bytes,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:       docCount,
			Chunks:          chunkCount,
			VectorIndexSize: components.VectorIndex.Size(),
			Config: map[string]interface{}{
				"embedding_provider": cfg.Embedding.Provider,
				"embedding_model":    cfg.Embedding.Model,
				"generation_model":   cfg.Generation.Model,
				"chunk_size":         cfg.Ingestion.ChunkSize,
				"chunk_overlap":      cfg.Ingestion.ChunkOverlap,
				"similarity_floor":   cfg.Retrieval.SimilarityFloor,
			},
		}
		if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:          %d\n", status.Documents)
		fmt.Printf("chunks:             %d\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
		}
		if len(status.Config) > 0 {
			fmt.Println("\n# configuration")
			for _, key := range []string{"embedding_provider", "embedding_model", "generation_model", "chunk_size", "chunk_overlap", "similarity_floor"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-20s%v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Embedder    embedding.Embedder
	VectorIndex vector.Index
	Retriever   *retrieval.Retriever
	Generator   llm.Generator
	Pipeline    *pipeline.Pipeline
	Ingestor    *ingest.Ingestor
	Evaluator   *evaluate.Evaluator
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := openai.NewClient()

	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	case "onnx":
		onnxEmbedder, onnxErr := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if onnxErr != nil {
			logger.Warn("onnx embedder unavailable, falling back to mock", zap.Error(onnxErr))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		} else {
			embedder = onnxEmbedder
		}
	default:
		embedder = embedding.NewOpenAIEmbedder(
			&client,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			cfg.Embedding.BatchSize,
			cfg.Embedding.CacheSize,
		)
	}

	index, err := vector.NewIndex(cfg.Vector.IndexType, cfg.Embedding.Dimensions)
	if err != nil {
		// Fall back to the memory index if the configured backend is
		// unavailable (e.g. FAISS not compiled in).
		if cfg.Vector.IndexType != string(vector.IndexTypeMemory) && cfg.Vector.IndexType != "" {
			logger.Warn("failed to create vector index, falling back to memory",
				zap.String("requested_type", cfg.Vector.IndexType), zap.Error(err))
			index, err = vector.NewMemoryIndex(cfg.Embedding.Dimensions)
		}
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", cfg.Vector.IndexType),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))
	if _, statErr := os.Stat(cfg.Storage.VectorIndexPath); statErr == nil {
		if loadErr := index.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped (run ingest to rebuild)",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		} else {
			logger.Info("vector index loaded",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Int("vectors", index.Size()))
		}
	}

	retriever := retrieval.NewRetriever(store, embedder, index, cfg.Storage.VectorIndexPath, logger)
	generator := llm.NewOpenAIGenerator(
		&client,
		cfg.Generation.Model,
		cfg.Generation.Temperature,
		cfg.Generation.MaxTokens,
		time.Duration(cfg.Generation.TimeoutSeconds)*time.Second,
	)
	pipe := pipeline.NewPipeline(retriever, generator, &cfg.Retrieval, logger)
	ingestor := ingest.NewIngestor(store, embedder, index, extract.NewExtractor(), cfg, logger)
	judge := evaluate.NewOpenAIJudge(&client, cfg.Evaluation.JudgeModel,
		time.Duration(cfg.Evaluation.TimeoutSeconds)*time.Second)
	evaluator := evaluate.NewEvaluator(pipe, judge, logger)

	return &Components{
		Storage:     store,
		Embedder:    embedder,
		VectorIndex: index,
		Retriever:   retriever,
		Generator:   generator,
		Pipeline:    pipe,
		Ingestor:    ingestor,
		Evaluator:   evaluator,
	}, nil
}

func printUsage() {
	fmt.Println(`medrag - Retrieval-grounded medical question answering

Usage:
  medrag server [flags]               Start the HTTP API server
  medrag ingest [flags] <path>...     Rebuild the corpus from files/directories
  medrag pubmed [flags]               Download PubMed abstracts into a JSON corpus file
  medrag query [flags] <question>     Ask a question
  medrag evaluate [flags] <q>...      Judge answer quality over questions
  medrag status [flags]               Show corpus/index status
  medrag version                      Show version
  medrag help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/medrag/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path
                     Paths default to watch.directories from config.

PubMed Flags:
  --query string     PubMed search term (required)
  --max int          Maximum number of articles (default: 20)
  --email string     Contact email sent to NCBI per its usage policy
  --out string       Output corpus file (default: pubmed_corpus.json)

Query Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to answer locally.
  --top-k int        Number of chunks to retrieve (0 = config default)
  --output string    Output format: text or json (default: text)

Evaluate Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to evaluate locally.
  --file string      JSON file with questions and optional reference_answers

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  medrag ingest ./corpus
  medrag pubmed --query "vitamin d deficiency" --max 50 --out corpus/pubmed.json
  medrag server
  medrag query "What are the symptoms of vitamin D deficiency?"
  medrag query --output json "Can ibuprofen reduce fever?"
  medrag evaluate --file eval_questions.json
  medrag status --output json

OPENAI_API_KEY must be set (environment or .env) for the openai embedding
provider, generation, and evaluation.`)
}
