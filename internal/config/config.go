// Package config provides configuration loading and structs for the medrag service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chunk database and vector index artifact.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// VectorConfig selects the vector index backend: "memory" (default) or
// "faiss" (requires building with -tags=faiss).
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// EmbeddingConfig holds embedder settings. Provider is "openai", "onnx", or "mock".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
	// ModelPath and MaxTokens apply to the onnx provider only.
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
}

// GenerationConfig holds LLM generation settings.
type GenerationConfig struct {
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// RetrievalConfig holds retrieval and answer-policy settings.
//
// SimilarityFloor is the single most consequential tunable: too low admits
// irrelevant passages the generator may cite spuriously, too high starves it
// of context. The default is tuned for the default embedding model; retune
// when the model changes.
type RetrievalConfig struct {
	TopK            int     `yaml:"top_k"`
	SimilarityFloor float64 `yaml:"similarity_floor"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	MaxContextChars int     `yaml:"max_context_chars"`
}

// IngestionConfig holds chunking parameters and corpus extensions.
type IngestionConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Extensions   []string `yaml:"extensions"`
}

// EvaluationConfig holds LLM-judge settings.
type EvaluationConfig struct {
	JudgeModel     string `yaml:"judge_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// WatchConfig holds corpus directory watch settings. A change in a watched
// directory triggers a debounced full re-ingest (there is no incremental update).
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if chunking
// parameters are inconsistent (overlap must be smaller than size).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Ingestion.ChunkOverlap, c.Ingestion.ChunkSize)
	}
	if c.Retrieval.SimilarityFloor < 0 || c.Retrieval.SimilarityFloor > 1 {
		return fmt.Errorf("similarity_floor must be in [0,1], got %f", c.Retrieval.SimilarityFloor)
	}
	if c.Retrieval.ConfidenceFloor < 0 || c.Retrieval.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor must be in [0,1], got %f", c.Retrieval.ConfidenceFloor)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
