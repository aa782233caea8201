package config

// Default model identifiers. The embedding model id is recorded in the index
// manifest and checked at query time; changing it requires a full re-ingest.
const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultGeneratorModel = "gpt-4o-mini"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/medrag/data/db/corpus.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/medrag/data/indices/vectors"
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultEmbeddingModel
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 500
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = DefaultGeneratorModel
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.1
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1000
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 60
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.SimilarityFloor == 0 {
		cfg.Retrieval.SimilarityFloor = 0.3
	}
	if cfg.Retrieval.ConfidenceFloor == 0 {
		cfg.Retrieval.ConfidenceFloor = 0.25
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 8000
	}
	if cfg.Ingestion.ChunkSize == 0 {
		cfg.Ingestion.ChunkSize = 500
	}
	if cfg.Ingestion.ChunkOverlap == 0 {
		cfg.Ingestion.ChunkOverlap = 50
	}
	if cfg.Ingestion.Extensions == nil {
		cfg.Ingestion.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx", ".json"}
	}
	if cfg.Evaluation.JudgeModel == "" {
		cfg.Evaluation.JudgeModel = DefaultGeneratorModel
	}
	if cfg.Evaluation.TimeoutSeconds == 0 {
		cfg.Evaluation.TimeoutSeconds = 120
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
